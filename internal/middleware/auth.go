package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/duetapp/pairing-server-go/internal/audit"
	"github.com/duetapp/pairing-server-go/internal/model"
	"github.com/duetapp/pairing-server-go/internal/repository"
	"github.com/duetapp/pairing-server-go/internal/util"
)

type contextKey string

const ProfileContextKey contextKey = "profile"

func GetProfile(ctx context.Context) *model.Profile {
	if profile, ok := ctx.Value(ProfileContextKey).(*model.Profile); ok {
		return profile
	}
	return nil
}

// AuthMiddleware binds the calling session to a known identity: every
// pairing operation takes its userId from the authenticated profile, never
// from the request body.
type AuthMiddleware struct {
	profileRepo repository.ProfileRepository
}

func NewAuthMiddleware(profileRepo repository.ProfileRepository) *AuthMiddleware {
	return &AuthMiddleware{profileRepo: profileRepo}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Missing authentication token",
			})
			return
		}

		tokenHash := util.HashToken(token)
		profile, err := m.profileRepo.FindByTokenHash(r.Context(), tokenHash)
		if err != nil {
			log.Error().Err(err).Msg("auth middleware: store error")
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"error": "Authentication failed",
			})
			return
		}

		if profile == nil {
			log.Warn().Msg("auth middleware: invalid token attempt")
			audit.LogFromRequest(r, audit.Event{Type: audit.EventAuthFailure})
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Invalid token",
			})
			return
		}

		ctx := context.WithValue(r.Context(), ProfileContextKey, profile)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
