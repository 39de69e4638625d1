package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/talent-pipeline/internal/rbac"
	"github.com/jonathan/talent-pipeline/internal/server/middleware"
)

// principal returns the authenticated caller. The auth middleware guarantees
// it is present on API routes.
func (s *Server) principal(w http.ResponseWriter, r *http.Request) (rbac.Principal, bool) {
	p, err := middleware.GetPrincipal(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return rbac.Principal{}, false
	}
	return p, true
}

// pathID parses a UUID path parameter.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}
