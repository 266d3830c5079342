package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/moneybot/internal/auth"
)

type contextKey string

// OperatorKey holds the authenticated operator name in the request context.
const OperatorKey contextKey = "operator"

// GetOperator returns the operator set by RequireAuth, or "".
func GetOperator(ctx context.Context) string {
	operator, _ := ctx.Value(OperatorKey).(string)
	return operator
}

// RequireAuth rejects calls without a valid "Authorization: Bearer" token.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || scheme != "Bearer" || tokenString == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			ctx = context.WithValue(ctx, OperatorKey, claims.Operator)
			return next(ctx, req)
		}
	}
}
