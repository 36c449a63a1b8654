package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/procurement-backend/api/responses"
	pkgerrors "github.com/angelmondragon/procurement-backend/pkg/errors"
	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

// Recoverer answers a panicking handler with a 500 envelope and logs the
// panic with its stack. http.ErrAbortHandler is re-raised so net/http drops
// the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					handlePanic(w, r, logg, rec)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func handlePanic(w http.ResponseWriter, r *http.Request, logg *logger.Logger, rec any) {
	err, isErr := rec.(error)
	if isErr && errors.Is(err, http.ErrAbortHandler) {
		panic(rec)
	}
	if !isErr {
		err = fmt.Errorf("%v", rec)
	}
	typed := pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %w", err), "internal server error")

	ctx := r.Context()
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"panic":  err.Error(),
			"method": r.Method,
			"path":   r.URL.Path,
		})
		logg.Error(ctx, "panic recovered", typed)
	}
	responses.WriteError(ctx, logg, w, typed)
}
