package handlers

import (
	"net/http"

	"github.com/loomhq/tenantgate/app"
	"github.com/loomhq/tenantgate/middleware"
	"github.com/loomhq/tenantgate/utils"
)

// CurrentUserHandler returns the caller's identity and, when resolved,
// their tenant context. Everything here comes from request-scoped state
// attached by the pipeline; no storage is queried.
func CurrentUserHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		identity := middleware.GetIdentityFromContext(ctx)
		if identity == nil {
			_ = utils.WriteUnauthorized(w, "")
			return
		}

		response := map[string]interface{}{
			"user_id": identity.UserID,
			"email":   identity.Email,
		}

		if tc := middleware.GetTenantFromContext(ctx); tc != nil {
			response["organization_id"] = tc.OrgID
			response["role"] = tc.Role
		}

		_ = utils.WriteOK(w, response)
	}
}
