package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs every admin RPC with its duration and error code.
// Place it after RequireAuth so the operator is known.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure
			operator := GetOperator(ctx)

			resp, err := next(ctx, req)

			duration := time.Since(start).Milliseconds()
			var connectErr *connect.Error
			switch {
			case err == nil:
				logger.Info("RPC ok",
					"procedure", procedure,
					"operator", operator,
					"duration_ms", duration,
				)
			case errors.As(err, &connectErr):
				logger.Warn("RPC error",
					"procedure", procedure,
					"code", connectErr.Code(),
					"error", connectErr.Message(),
					"operator", operator,
					"duration_ms", duration,
				)
			default:
				logger.Error("RPC error",
					"procedure", procedure,
					"error", err,
					"operator", operator,
					"duration_ms", duration,
				)
			}
			return resp, err
		}
	}
}
