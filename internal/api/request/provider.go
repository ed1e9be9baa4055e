package request

// CreateProvider holds the request body for registering a provider.
// Name is the unique probe handle; when omitted it is derived from the
// display name.
type CreateProvider struct {
	Name        string  `json:"name" validate:"omitempty,slug"`
	DisplayName string  `json:"display_name" validate:"required,min=1,max=255"`
	Category    string  `json:"category" validate:"required,oneof=flights hotels activities transfers insurance"`
	PartnerID   *string `json:"partner_id"`
	HealthURL   *string `json:"health_url" validate:"omitempty,url"`
	APIURL      *string `json:"api_url" validate:"omitempty,url"`
}

// UpdateProvider holds the request body for updating a provider's
// directory fields.
type UpdateProvider struct {
	DisplayName string  `json:"display_name" validate:"required,min=1,max=255"`
	Category    string  `json:"category" validate:"required,oneof=flights hotels activities transfers insurance"`
	HealthURL   *string `json:"health_url" validate:"omitempty,url"`
	APIURL      *string `json:"api_url" validate:"omitempty,url"`
}

// SetProviderStatus holds the request body for activating or
// deactivating a provider.
type SetProviderStatus struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}
