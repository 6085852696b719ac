// Package auth provides middleware that authenticates operator tokens
// and scopes the request to the token's company.
package auth

import (
	"log/slog"
	"net/http"
	"strings"

	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	"domopass/pkg/platform/httputil"
	"domopass/pkg/requestcontext"
)

// Claims carries the subset of token claims the middleware needs.
type Claims struct {
	CompanyID string
	Operator  string
}

// TokenValidator validates an operator token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// RequireOperator authenticates the Bearer token and injects the
// company scope and operator name into the request context.
func RequireOperator(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "missing authorization header",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "operator token rejected",
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}

			companyID, err := id.ParseCompanyID(claims.CompanyID)
			if err != nil {
				logger.WarnContext(ctx, "operator token carries malformed company id",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
				return
			}

			ctx = requestcontext.WithCompanyID(ctx, companyID)
			ctx = requestcontext.WithOperator(ctx, claims.Operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
