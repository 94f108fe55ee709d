package httpapi

import (
	"errors"
	"net/http"

	"github.com/yikev/saas-skeleton/internal/audit"
	"github.com/yikev/saas-skeleton/internal/auth"
)

type seedAdminRequest struct {
	OrgName  string `json:"orgName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSeedAdmin provisions an org with a single admin user. Only mounted
// outside production.
func (a *API) handleSeedAdmin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req seedAdminRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := a.auth.SeedAdmin(r.Context(), req.OrgName, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "orgName, email and password are required")
			return
		}
		writeError(w, http.StatusInternalServerError, "seed failed")
		return
	}

	code := http.StatusCreated
	if result.AlreadyExisted {
		code = http.StatusOK
	} else {
		_ = audit.LogEvent(r.Context(), "dev.seed_admin", map[string]any{
			"org_id":  result.OrgID,
			"user_id": result.UserID,
		})
	}
	writeJSON(w, code, map[string]any{
		"orgId":          result.OrgID,
		"userId":         result.UserID,
		"email":          result.Email,
		"role":           result.Role.String(),
		"alreadyExisted": result.AlreadyExisted,
	})
}
