package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/loomhq/tenantgate/app"
	"github.com/loomhq/tenantgate/middleware"
	"github.com/loomhq/tenantgate/repositories"
	"github.com/loomhq/tenantgate/utils"
	"go.uber.org/zap"
)

// updateOrganizationRequest is the admin-editable organization settings payload
type updateOrganizationRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"required,max=100"`
}

// GetOrganizationHandler returns the resolved tenant for the request.
// Reachable by any member; the pipeline has already confirmed
// membership before this runs.
func GetOrganizationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tc := middleware.GetTenantFromContext(ctx)
		if tc == nil {
			_ = utils.WriteForbidden(w, "")
			return
		}

		org, err := deps.Organizations.GetByID(ctx, tc.OrgID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				_ = utils.WriteNotFound(w, "Organization not found")
				return
			}
			deps.Logger.Error("failed to load organization",
				zap.String("org_id", tc.OrgID.String()),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		_ = utils.WriteOK(w, map[string]interface{}{
			"organization": org,
			"role":         tc.Role,
		})
	}
}

// UpdateOrganizationHandler is the admin-guarded settings endpoint.
// The role guard runs before this handler; by the time it executes the
// caller is at least an admin.
func UpdateOrganizationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tc := middleware.GetTenantFromContext(ctx)
		if tc == nil {
			_ = utils.WriteForbidden(w, "")
			return
		}

		var req updateOrganizationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			_ = utils.WriteBadRequest(w, "Invalid request body", nil)
			return
		}

		if err := utils.ValidateStruct(req); err != nil {
			details := make(map[string]interface{})
			for field, msg := range utils.GetValidationFields(err) {
				details[field] = msg
			}
			_ = utils.WriteBadRequest(w, "Validation failed", details)
			return
		}

		org, err := deps.Organizations.GetByID(ctx, tc.OrgID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				_ = utils.WriteNotFound(w, "Organization not found")
				return
			}
			deps.Logger.Error("failed to load organization",
				zap.String("org_id", tc.OrgID.String()),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		org.Name = req.Name
		org.Slug = req.Slug
		if err := deps.Organizations.Update(ctx, org); err != nil {
			deps.Logger.Error("failed to update organization",
				zap.String("org_id", tc.OrgID.String()),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		utils.WriteNoContent(w)
	}
}

// DeleteOrganizationHandler is the owner-guarded deletion endpoint.
// Membership rows cascade at the schema level.
func DeleteOrganizationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		tc := middleware.GetTenantFromContext(ctx)
		if tc == nil {
			_ = utils.WriteForbidden(w, "")
			return
		}

		if err := deps.Organizations.Delete(ctx, tc.OrgID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				_ = utils.WriteNotFound(w, "Organization not found")
				return
			}
			deps.Logger.Error("failed to delete organization",
				zap.String("org_id", tc.OrgID.String()),
				zap.Error(err))
			_ = utils.WriteInternalServerError(w, "")
			return
		}

		utils.WriteNoContent(w)
	}
}
