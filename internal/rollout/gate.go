package rollout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrPhaseNotFound is returned by SetPhase for names outside the
// registered set. The transition fails closed: state is untouched.
var ErrPhaseNotFound = errors.New("rollout phase not found")

// Store persists gate state across restarts. The gate itself is a pure
// in-memory state machine; a nil store keeps it process-local.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}

const (
	maxHistory    = 50
	statusHistory = 5
)

// Gate owns the assistant rollout state machine: which phase is current,
// who the current phase admits, and which model each caller is served.
// All reads and mutations go through its methods; the mutex keeps
// administrative updates from tearing concurrent dashboard reads.
type Gate struct {
	mu     sync.RWMutex
	state  *State
	store  Store
	logger zerolog.Logger
}

// NewGate builds a gate over the standard phase table, current phase
// "disabled". Call Hydrate to replace it with persisted state.
func NewGate(store Store, logger zerolog.Logger) *Gate {
	g, _ := NewGateWithState(DefaultState(), store, logger)
	return g
}

// NewGateWithState builds a gate over a custom phase table. The current
// phase name must be registered in it.
func NewGateWithState(state *State, store Store, logger zerolog.Logger) (*Gate, error) {
	if err := validateState(state); err != nil {
		return nil, err
	}
	return &Gate{state: state.clone(), store: store, logger: logger}, nil
}

func validateState(state *State) error {
	if state == nil || len(state.Phases) == 0 {
		return fmt.Errorf("rollout state has no phases")
	}
	if _, ok := state.Phases[state.Current]; !ok {
		return fmt.Errorf("current phase %q: %w", state.Current, ErrPhaseNotFound)
	}
	return nil
}

// Hydrate replaces in-memory state with the persisted one, if any. With no
// persisted state it saves the current defaults so the next boot finds
// them. Invalid persisted state is rejected rather than half-applied.
func (g *Gate) Hydrate(ctx context.Context) error {
	if g.store == nil {
		return nil
	}
	state, err := g.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load rollout state: %w", err)
	}
	if state == nil {
		g.mu.RLock()
		snapshot := g.state.clone()
		g.mu.RUnlock()
		if err := g.store.Save(ctx, snapshot); err != nil {
			return fmt.Errorf("save initial rollout state: %w", err)
		}
		return nil
	}
	if err := validateState(state); err != nil {
		return fmt.Errorf("persisted rollout state: %w", err)
	}
	g.mu.Lock()
	g.state = state.clone()
	g.mu.Unlock()
	return nil
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
	Phase   string `json:"phase"`
}

// CheckAccess decides whether a caller with the given role and tier may
// use the assistant under the current phase. The role check deliberately
// takes precedence over the tier check. Unknown roles and tiers are not
// errors; they simply fail both membership tests.
func (g *Gate) CheckAccess(role, tier string) Decision {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cur := g.state.Phases[g.state.Current]
	if !cur.Enabled {
		return Decision{Allowed: false, Reason: "disabled", Phase: cur.Name}
	}
	if contains(cur.Roles, role) {
		return Decision{Allowed: true, Reason: fmt.Sprintf("role %s permitted", role), Phase: cur.Name}
	}
	if contains(cur.Tiers, tier) {
		return Decision{Allowed: true, Reason: fmt.Sprintf("tier %s permitted", tier), Phase: cur.Name}
	}
	return Decision{Allowed: false, Reason: "not eligible in current phase", Phase: cur.Name}
}

// SelectModel resolves which model to serve a caller under the current
// phase. Precedence is fixed: admin roles get the phase's admin model, a
// tier-specific entry comes next, then the phase default. A tier entry
// must never shadow an admin role match.
func (g *Gate) SelectModel(role, tier string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cur := g.state.Phases[g.state.Current]
	if role == RoleAdmin || role == RoleSuperadmin {
		if m := cur.Models[ModelKeyAdmin]; m != "" {
			return m
		}
		return cur.defaultModel()
	}
	if m := cur.Models[tier]; m != "" {
		return m
	}
	return cur.defaultModel()
}

// Transition reports a completed SetPhase call.
type Transition struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Enabled   bool      `json:"enabled"`
	ChangedAt time.Time `json:"changed_at"`
}

// SetPhase switches the current phase, applies the enabled flag, merges
// any model overrides into the target phase's model map (keys not named
// are preserved), and appends one history entry. Unregistered names fail
// closed with ErrPhaseNotFound. Persistence is best-effort: the in-memory
// transition is the source of truth and a store failure only logs.
func (g *Gate) SetPhase(ctx context.Context, name string, enabled bool, modelOverrides map[string]string) (*Transition, error) {
	g.mu.Lock()
	phase, ok := g.state.Phases[name]
	if !ok {
		g.mu.Unlock()
		return nil, fmt.Errorf("set phase %q: %w", name, ErrPhaseNotFound)
	}

	prev := g.state.Current
	g.state.Current = name
	phase.Enabled = enabled
	if len(modelOverrides) > 0 && phase.Models == nil {
		phase.Models = make(map[string]string, len(modelOverrides))
	}
	for k, v := range modelOverrides {
		phase.Models[k] = v
	}

	change := Change{
		ChangedAt: time.Now().UTC(),
		OldPhase:  prev,
		NewPhase:  name,
		Enabled:   enabled,
	}
	g.state.History = append(g.state.History, change)
	if len(g.state.History) > maxHistory {
		g.state.History = g.state.History[len(g.state.History)-maxHistory:]
	}
	snapshot := g.state.clone()
	g.mu.Unlock()

	if g.store != nil {
		if err := g.store.Save(ctx, snapshot); err != nil {
			g.logger.Error().Err(err).Str("phase", name).Msg("failed to persist rollout state")
		}
	}

	g.logger.Info().Str("from", prev).Str("to", name).Bool("enabled", enabled).Msg("rollout phase changed")
	return &Transition{From: prev, To: name, Enabled: enabled, ChangedAt: change.ChangedAt}, nil
}

// Status is the current phase's full configuration plus recent history.
type Status struct {
	Phase   Phase    `json:"phase"`
	History []Change `json:"history"`
}

// Status returns the current phase configuration and up to the five most
// recent history entries, newest first.
func (g *Gate) Status() Status {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cur := g.state.Phases[g.state.Current].clone()
	n := len(g.state.History)
	limit := statusHistory
	if n < limit {
		limit = n
	}
	history := make([]Change, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		history = append(history, g.state.History[i])
	}
	return Status{Phase: *cur, History: history}
}

// Summary is one row of ListPhases.
type Summary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
	Current     bool   `json:"current"`
}

// ListPhases enumerates every registered phase, sorted by name, flagging
// which is current.
func (g *Gate) ListPhases() []Summary {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Summary, 0, len(g.state.Phases))
	for name, p := range g.state.Phases {
		out = append(out, Summary{
			Name:        name,
			Description: p.Description,
			Enabled:     p.Enabled,
			Current:     name == g.state.Current,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
