// Package api provides the travel platform REST API.
//
//	@title						Voyara Platform API
//	@version					1.0
//	@description				Travel platform API: provider directory, partner accounts, marketplace search, rollout gate, and the trip assistant.
//	@BasePath					/api/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						X-API-Key
package api
