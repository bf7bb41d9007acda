package rest

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/dmitrijs2005/contactbook/internal/server/models"
	"github.com/go-chi/httprate"
)

type ctxKey string

const userKey ctxKey = "user"

func withUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

func currentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get(common.AuthorizationHeaderName), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// authenticate resolves the bearer token to a user and stores it in the
// request context. Requests without a valid token get 401.
func (s *HTTPServer) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		user, err := s.users.ResolveCurrentUser(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

// rateLimitPerUser limits requests per authenticated user. It must run after
// authenticate.
func (s *HTTPServer) rateLimitPerUser() func(http.Handler) http.Handler {
	return httprate.Limit(
		s.opts.RateLimitRequests,
		s.opts.RateLimitWindow,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			if u := currentUser(r.Context()); u != nil {
				return u.ID, nil
			}
			return httprate.KeyByIP(r)
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeDetail(w, http.StatusTooManyRequests, "Too Many Requests")
		}),
	)
}
