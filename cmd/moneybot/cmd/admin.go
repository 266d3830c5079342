package cmd

import (
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/moneybot/internal/auth"
	"github.com/mmynk/moneybot/internal/metrics"
	"github.com/mmynk/moneybot/internal/middleware"
	"github.com/mmynk/moneybot/internal/models"
	"github.com/mmynk/moneybot/internal/service"
	"github.com/mmynk/moneybot/internal/storage"
)

// newAdminHandler mounts the admin Connect service and /metrics, served over
// h2c so Connect clients can use HTTP/2 without TLS.
func newAdminHandler(ledger storage.Ledger, groups *models.GroupTable, jwtManager *auth.JWTManager, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	path, handler := service.NewLedgerServiceHandler(
		service.NewLedgerService(ledger, groups),
		connect.WithInterceptors(
			middleware.RequireAuth(jwtManager),
			middleware.LoggingInterceptor(slog.Default()),
		),
	)
	mux.Handle(path, handler)
	mux.Handle("/metrics", m.Handler())

	return h2c.NewHandler(loggingMiddleware(mux), &http2.Server{})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
