package rollout

import "time"

// Phase names. The set is closed: phases are registered at construction
// and SetPhase refuses names outside it.
const (
	PhaseDisabled   = "disabled"
	PhaseAdminOnly  = "admin_only"
	PhaseNFTHolders = "nft_holders"
	PhaseAllUsers   = "all_users"
)

// Roles that are always served the admin model.
const (
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// Reserved model map keys. Every other key is a tier name.
const (
	ModelKeyAdmin   = "admin"
	ModelKeyDefault = "default"
)

// FallbackModel is served when a phase's model map carries neither the
// requested key nor a default entry. This is the only place the fallback
// is defined; callers must not duplicate it.
const FallbackModel = "gpt-4o-mini"

// Phase is one named rollout stage: whether the assistant is on, who the
// stage admits, and which model each tier is served.
type Phase struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Enabled     bool              `json:"enabled"`
	Roles       []string          `json:"roles"`
	Tiers       []string          `json:"tiers"`
	Models      map[string]string `json:"models"`
}

func (p *Phase) clone() *Phase {
	c := *p
	c.Roles = append([]string(nil), p.Roles...)
	c.Tiers = append([]string(nil), p.Tiers...)
	c.Models = make(map[string]string, len(p.Models))
	for k, v := range p.Models {
		c.Models[k] = v
	}
	return &c
}

// defaultModel resolves the phase's default entry, falling back to the
// global constant when the map has none.
func (p *Phase) defaultModel() string {
	if m := p.Models[ModelKeyDefault]; m != "" {
		return m
	}
	return FallbackModel
}

// Change is one immutable history entry recording a phase transition.
type Change struct {
	ChangedAt time.Time `json:"changed_at"`
	OldPhase  string    `json:"old_phase"`
	NewPhase  string    `json:"new_phase"`
	Enabled   bool      `json:"enabled"`
}

// State is the full serializable gate state: the phase table, which phase
// is current, and the capped transition history.
type State struct {
	Current string            `json:"current"`
	Phases  map[string]*Phase `json:"phases"`
	History []Change          `json:"history"`
}

func (s *State) clone() *State {
	c := &State{
		Current: s.Current,
		Phases:  make(map[string]*Phase, len(s.Phases)),
		History: append([]Change(nil), s.History...),
	}
	for name, p := range s.Phases {
		c.Phases[name] = p.clone()
	}
	return c
}

// DefaultState returns the standard four-phase table with the assistant
// switched off. Deployments start here unless a persisted state exists.
func DefaultState() *State {
	allTiers := []string{"Bronze", "Silver", "Gold", "Platinum"}
	return &State{
		Current: PhaseDisabled,
		Phases: map[string]*Phase{
			PhaseDisabled: {
				Name:        PhaseDisabled,
				Description: "Assistant switched off for everyone",
				Enabled:     false,
				Models: map[string]string{
					ModelKeyDefault: FallbackModel,
				},
			},
			PhaseAdminOnly: {
				Name:        PhaseAdminOnly,
				Description: "Internal dogfooding: platform admins only",
				Enabled:     true,
				Roles:       []string{RoleAdmin, RoleSuperadmin},
				Models: map[string]string{
					ModelKeyAdmin:   "gpt-4o",
					ModelKeyDefault: FallbackModel,
				},
			},
			PhaseNFTHolders: {
				Name:        PhaseNFTHolders,
				Description: "Early access for membership pass holders",
				Enabled:     true,
				Roles:       []string{RoleAdmin, RoleSuperadmin},
				Tiers:       allTiers,
				Models: map[string]string{
					ModelKeyAdmin:   "gpt-4o",
					"Platinum":      "o1",
					"Gold":          "gpt-4o",
					ModelKeyDefault: FallbackModel,
				},
			},
			PhaseAllUsers: {
				Name:        PhaseAllUsers,
				Description: "General availability",
				Enabled:     true,
				Roles:       []string{RoleAdmin, RoleSuperadmin, "user"},
				Tiers:       allTiers,
				Models: map[string]string{
					ModelKeyAdmin:   "gpt-4o",
					"Platinum":      "o1",
					"Gold":          "gpt-4o",
					"Silver":        FallbackModel,
					"Bronze":        FallbackModel,
					ModelKeyDefault: FallbackModel,
				},
			},
		},
	}
}
