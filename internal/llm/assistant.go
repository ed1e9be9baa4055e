package llm

import (
	"context"
	"fmt"
)

// DefaultSystemPrompt frames the trip assistant. Kept in one place so
// deployments can override it via ASSISTANT_SYSTEM_PROMPT later without
// hunting through handlers.
const DefaultSystemPrompt = `You are Voyara's trip planning assistant for a travel booking platform.

## What you can do
- Search live travel offers (flights, hotels, activities, transfers, insurance) across integrated providers
- Look up providers and their current health before recommending them
- Answer questions about destinations, routes, and trip logistics

## Guidelines
1. Use search_offers for any request involving prices or availability — never invent offers
2. Prefer providers whose recent health is good; mention degraded providers only with a caveat
3. Quote prices exactly as returned, with their currency
4. Be concise: travelers want options, not essays
5. If a search returns nothing, say so and suggest adjusting dates or destination`

// Assistant runs the gated chat loop: model answers, requested tools are
// executed against the platform API, results feed back, bounded by maxTurns.
type Assistant struct {
	client   *Client
	tools    *Registry
	maxTurns int
}

// NewAssistant creates an Assistant. maxTurns bounds the number of chat
// completions per exchange; values below 1 are raised to 1.
func NewAssistant(client *Client, tools *Registry, maxTurns int) *Assistant {
	if maxTurns < 1 {
		maxTurns = 1
	}
	return &Assistant{client: client, tools: tools, maxTurns: maxTurns}
}

// Reply is one completed assistant exchange.
type Reply struct {
	Message   string   `json:"message"`
	Model     string   `json:"model"`
	ToolsUsed []string `json:"tools_used,omitempty"`
	Turns     int      `json:"turns"`
	Usage     Usage    `json:"usage"`
}

// Respond runs one user message through the tool loop and returns the
// final assistant message. model selects which model serves the exchange;
// the rollout gate decides it per caller.
func (a *Assistant) Respond(ctx context.Context, model, userMessage string) (*Reply, error) {
	messages := []Message{
		{Role: "system", Content: DefaultSystemPrompt},
		{Role: "user", Content: userMessage},
	}

	var toolDefs []ToolDefinition
	if a.tools != nil {
		toolDefs = a.tools.Tools()
	}

	reply := &Reply{Model: model}
	var lastContent string

	for turn := 1; turn <= a.maxTurns; turn++ {
		resp, err := a.client.Chat(ctx, ChatRequest{
			Model:    model,
			Messages: messages,
			Tools:    toolDefs,
		})
		if err != nil {
			return nil, fmt.Errorf("llm chat turn %d: %w", turn, err)
		}
		if len(resp.Choices) == 0 {
			return nil, fmt.Errorf("llm returned no choices on turn %d", turn)
		}

		reply.Turns = turn
		reply.Usage.PromptTokens += resp.Usage.PromptTokens
		reply.Usage.CompletionTokens += resp.Usage.CompletionTokens
		reply.Usage.TotalTokens += resp.Usage.TotalTokens

		assistantMsg := resp.Choices[0].Message
		messages = append(messages, assistantMsg)
		if assistantMsg.Content != "" {
			lastContent = assistantMsg.Content
		}

		// No tool calls means the model is done.
		if len(assistantMsg.ToolCalls) == 0 {
			reply.Message = assistantMsg.Content
			return reply, nil
		}

		for _, tc := range assistantMsg.ToolCalls {
			result, execErr := a.tools.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
			if execErr != nil {
				result = fmt.Sprintf(`{"error":"%s"}`, execErr.Error())
			}

			messages = append(messages, Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
			})
			reply.ToolsUsed = append(reply.ToolsUsed, tc.Function.Name)
		}
	}

	// Turn budget exhausted with tools still pending; surface whatever
	// content the last turn produced.
	if lastContent != "" {
		reply.Message = lastContent
		return reply, nil
	}
	return nil, fmt.Errorf("assistant exceeded %d turns without a final answer", a.maxTurns)
}
