package request

// SetPhase holds the request body for switching the rollout phase.
// Enabled and Models are optional adjustments applied to the named
// phase before it becomes current.
type SetPhase struct {
	Phase   string            `json:"phase" validate:"required"`
	Enabled *bool             `json:"enabled"`
	Models  map[string]string `json:"models" validate:"omitempty,dive,keys,min=1,endkeys,min=1"`
}

// CheckAccess holds the request body for evaluating rollout access for
// an explicit role and tier pair.
type CheckAccess struct {
	Role string `json:"role"`
	Tier string `json:"tier"`
}
