package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/xilidan/automator/pkg/json"
	"github.com/xilidan/automator/pkg/jwt"
)

type ctxKey struct{}

// Auth requires a valid HS256 bearer token signed with secret. With an empty
// secret every request passes through.
func Auth(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := jwt.ParseTokenFromHeader(r)
			if err != nil {
				log.Warn("request without token", slog.String("path", r.URL.Path))
				json.WriteError(w, http.StatusUnauthorized, err)
				return
			}

			subject, err := jwt.ParseSubject(r.Context(), token, secret)
			if err != nil {
				log.Warn("rejected token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()))
				json.WriteError(w, http.StatusUnauthorized, jwt.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Subject returns the authenticated token subject, if any.
func Subject(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}
