package middleware

import (
	"context"
	"net/http"

	"github.com/voyara/platform/internal/api/response"
)

// GetIdentity extracts the APIKeyIdentity from the request context.
func GetIdentity(ctx context.Context) *APIKeyIdentity {
	identity, _ := ctx.Value(APIKeyIdentityKey).(*APIKeyIdentity)
	return identity
}

// HasScope checks if the identity has the given resource:action scope (or the *:* wildcard).
func HasScope(identity *APIKeyIdentity, resource, action string) bool {
	if identity == nil {
		return false
	}
	target := resource + ":" + action
	for _, s := range identity.Scopes {
		if s == "*:*" || s == target {
			return true
		}
		// resource-level wildcard, e.g. "providers:*"
		if s == resource+":*" {
			return true
		}
	}
	return false
}

// IsPlatformKey checks if the identity is a platform-level key, i.e. one
// not bound to a single partner.
func IsPlatformKey(identity *APIKeyIdentity) bool {
	return identity != nil && identity.PartnerID == nil
}

// RequireScope returns middleware that checks the key has the given resource:action scope.
func RequireScope(resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if !HasScope(identity, resource, action) {
				response.WriteError(w, http.StatusForbidden, "insufficient scope: requires "+resource+":"+action)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePlatformKey returns middleware that rejects partner-bound keys.
// Administrative surfaces (rollout control, key minting, audit trail) are
// platform-only.
func RequirePlatformKey() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := GetIdentity(r.Context())
			if !IsPlatformKey(identity) {
				response.WriteError(w, http.StatusForbidden, "platform key required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PartnerFilter returns the partner ID the identity is bound to, or nil
// for platform-level keys, for use in partner-scoped query filtering.
func PartnerFilter(ctx context.Context) *string {
	identity := GetIdentity(ctx)
	if identity == nil {
		return nil
	}
	return identity.PartnerID
}
