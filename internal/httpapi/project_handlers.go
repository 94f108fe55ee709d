package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/yikev/saas-skeleton/internal/audit"
	"github.com/yikev/saas-skeleton/internal/auth"
)

type createProjectRequest struct {
	Name string `json:"name"`
}

type projectResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	CreatedByUserID string    `json:"createdByUserId"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (a *API) handleProjects(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	switch r.Method {
	case http.MethodGet:
		projects, err := a.auth.ListProjects(r.Context(), principal)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "list projects failed")
			return
		}
		out := make([]projectResponse, 0, len(projects))
		for _, p := range projects {
			out = append(out, projectResponse{
				ID:              p.ID,
				Name:            p.Name,
				CreatedByUserID: p.CreatedByUserID,
				CreatedAt:       p.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req createProjectRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		project, err := a.auth.CreateProject(r.Context(), principal, req.Name)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidInput):
				writeError(w, http.StatusBadRequest, "project name is required")
			case errors.Is(err, auth.ErrForbidden):
				writeError(w, http.StatusForbidden, "forbidden")
			default:
				writeError(w, http.StatusInternalServerError, "create project failed")
			}
			return
		}
		_ = audit.LogEvent(r.Context(), "project.created", map[string]any{
			"project_id": project.ID,
		})
		writeJSON(w, http.StatusCreated, projectResponse{
			ID:              project.ID,
			Name:            project.Name,
			CreatedByUserID: project.CreatedByUserID,
			CreatedAt:       project.CreatedAt,
		})

	default:
		methodNotAllowed(w, "GET, POST")
	}
}
