package core

// Services bundles the platform's core services for constructor injection.
type Services struct {
	Provider  *ProviderService
	HealthLog *HealthLogService
	Partner   *PartnerService
	APIKey    *APIKeyService
	Email     *EmailService
	Dashboard *DashboardService
	Search    *SearchService
	Audit     *AuditService
}

func NewServices(db DB) *Services {
	return &Services{
		Provider:  NewProviderService(db),
		HealthLog: NewHealthLogService(db),
		Partner:   NewPartnerService(db),
		APIKey:    NewAPIKeyService(db),
		Email:     NewEmailService(db),
		Dashboard: NewDashboardService(db),
		Search:    NewSearchService(db),
		Audit:     NewAuditService(db),
	}
}
