package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/procurement-backend/api/responses"
	"github.com/angelmondragon/procurement-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

// SessionChecker reports whether the access session behind a token is live.
type SessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Auth verifies the bearer token and stores the caller as an auth.Actor on
// the request context. A nil checker skips the session lookup.
func Auth(tokens *auth.Tokens, checker SessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	if logg == nil {
		logg = logger.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor, err := authenticate(ctx, tokens, checker, r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			ctx = logg.WithFields(auth.WithActor(ctx, actor), actor.LogFields())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, tokens *auth.Tokens, checker SessionChecker, header string) (auth.Actor, error) {
	raw := bearerToken(header)
	if raw == "" {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := tokens.Parse(raw)
	if err != nil {
		return auth.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	actor := claims.Actor()
	if actor.SessionID == "" {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if checker == nil {
		return actor, nil
	}

	live, err := checker.HasSession(ctx, actor.SessionID)
	if err != nil {
		return auth.Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !live {
		return auth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return actor, nil
}

// bearerToken accepts a bare token as well as the "Bearer " scheme.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if scheme, rest, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return header
}
