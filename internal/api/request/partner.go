package request

// CreatePartner holds the request body for onboarding a partner.
type CreatePartner struct {
	Name         string `json:"name" validate:"required,min=1,max=255"`
	Slug         string `json:"slug" validate:"omitempty,slug"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
	Password     string `json:"password" validate:"omitempty,min=12"`
}

// UpdatePartner holds the request body for updating a partner.
type UpdatePartner struct {
	Name         string `json:"name" validate:"required,min=1,max=255"`
	ContactEmail string `json:"contact_email" validate:"required,email"`
}

// SetPartnerPassword holds the request body for replacing a partner's
// portal password.
type SetPartnerPassword struct {
	Password string `json:"password" validate:"required,min=12"`
}

// PartnerLogin holds the request body for verifying portal credentials.
type PartnerLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SetPartnerStatus holds the request body for suspending or reactivating
// a partner.
type SetPartnerStatus struct {
	Status string `json:"status" validate:"required,oneof=active suspended"`
}
