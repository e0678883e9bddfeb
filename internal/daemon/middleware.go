package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Awhitter/spanish1/internal/api"
	"github.com/Awhitter/spanish1/internal/auth"
	"github.com/Awhitter/spanish1/internal/domain"
)

type contextKey string

const adminClaimsKey contextKey = "admin_claims"

func adminClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(adminClaimsKey).(*auth.Claims)
	return claims, ok
}

// audit logs an admin mutation with the token that authorized it
func audit(r *http.Request, action string, attrs ...any) {
	args := []any{"action", action, "path", r.URL.Path}
	if claims, ok := adminClaims(r.Context()); ok {
		args = append(args, "subject", claims.Subject, "token_id", claims.ID)
	}
	slog.Info("admin action", append(args, attrs...)...)
}

// requireAdmin rejects requests without a valid bearer token
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="spanish"`)
			api.WriteErr(w, r, domain.ErrUnauthorized)
			return
		}

		claims, err := s.auth.Verify(token)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="spanish", error="invalid_token"`)
			api.WriteErr(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), adminClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
