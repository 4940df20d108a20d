package middleware

import (
	"net/http"
	"strings"

	"github.com/henriqueponts/labstore-sub002/api/responses"
	pkgAuth "github.com/henriqueponts/labstore-sub002/pkg/auth"
	"github.com/henriqueponts/labstore-sub002/pkg/config"
	pkgerrors "github.com/henriqueponts/labstore-sub002/pkg/errors"
	"github.com/henriqueponts/labstore-sub002/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// customer id taken from its subject.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			customerID, err := claims.CustomerID()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token subject"))
				return
			}

			ctx := WithCustomerID(r.Context(), customerID)
			if logg != nil {
				ctx = logg.WithCustomerID(ctx, customerID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
