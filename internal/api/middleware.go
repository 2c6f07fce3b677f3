package api

import (
	"context"
	"net/http"
	"strings"

	"perpdesk/internal/domain"

	"github.com/google/uuid"
)

type contextKey string

const identityKey contextKey = "identity"

// requireAuth resolves the Authorization bearer token to a user identity
// before the wrapped handler runs. No query executes for an unauthenticated
// caller.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, domain.ErrUnauthorized)
			return
		}

		userID, err := s.verifier.Verify(token)
		if err != nil {
			s.writeError(w, domain.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// callerIdentity returns the authenticated user id placed by requireAuth.
func callerIdentity(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(identityKey).(uuid.UUID)
	return id, ok
}
