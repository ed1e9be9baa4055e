package request

// AssistantChat holds the request body for a gated assistant exchange.
type AssistantChat struct {
	UserID  string `json:"user_id" validate:"required"`
	Message string `json:"message" validate:"required,min=1,max=8000"`
}
