package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mmynk/moneybot/internal/auth"
	"github.com/mmynk/moneybot/internal/bot"
	"github.com/mmynk/moneybot/internal/config"
	"github.com/mmynk/moneybot/internal/metrics"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	Long: `Run the Telegram bot with long polling until interrupted.

When ADMIN_ADDR is set, the read-only admin API and /metrics are served on
that address. Admin calls need a token from "moneybot token".`,
	Run: runServe,
}

// pollingGateway is a Gateway that also drives the update loop.
type pollingGateway interface {
	bot.Gateway
	Run(ctx context.Context, handle func(context.Context, bot.Event)) error
}

var newGateway = func(token string, logger *slog.Logger) (pollingGateway, error) {
	return bot.NewTelegram(token, logger)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(envFile)
	exitOnError(err, "failed to load configuration")
	exitOnError(cfg.Validate(), "invalid configuration")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitOnError(serve(ctx, cfg), "serve failed")
	slog.Info("Shutting down")
}

// serve runs the bot until ctx is done. The chat gateway is connected before
// anything that needs cleanup is opened or started.
func serve(ctx context.Context, cfg *config.Config) error {
	groups, err := cfg.GroupTable()
	if err != nil {
		return fmt.Errorf("invalid groups: %w", err)
	}

	gateway, err := newGateway(cfg.Token, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to start telegram client: %w", err)
	}

	ledger, err := openLedger(cfg, groups)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer ledger.Close()
	slog.Info("Ledger opened", "backend", cfg.Backend, "path", cfg.LedgerPath, "groups", groups.Names())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()

	if cfg.AdminAddr != "" {
		jwtManager := auth.NewJWTManager(cfg.AdminJWTSecret, tokenTTL)
		srv := &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           newAdminHandler(ledger, groups, jwtManager, m),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("Admin server starting", "address", cfg.AdminAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Admin server failed", "error", err)
				cancel()
			}
		}()
		defer func() {
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Admin server shutdown", "error", err)
			}
		}()
	}

	router := bot.NewRouter(gateway, ledger, groups, auth.NewAuthorizer(cfg.ChatID, groups), m, slog.Default())
	slog.Info("Bot running", "chat_id", cfg.ChatID)

	if err := gateway.Run(ctx, router.Handle); err != nil {
		return fmt.Errorf("update loop stopped: %w", err)
	}
	return nil
}
