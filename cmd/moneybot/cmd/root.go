// Package cmd provides the moneybot CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mmynk/moneybot/internal/config"
	"github.com/mmynk/moneybot/internal/models"
	"github.com/mmynk/moneybot/internal/storage"
	"github.com/mmynk/moneybot/internal/storage/flatfile"
	"github.com/mmynk/moneybot/internal/storage/sqlite"
	"github.com/mmynk/moneybot/pkg/logging"
)

var (
	envFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "moneybot",
	Short: "Telegram bot for splitting shared purchases between groups",
	Long: `moneybot records shared purchases from a group chat, splits them
evenly or by custom amounts between fixed groups, and reports balances.

Configuration comes from MB_CONF (inline JSON or YAML) or MB_CONF_FILE:

  {"token": "<bot token>", "chat": -100123, "dbfile": "ledger.csv",
   "groups": {"A": [111, 222], "B": [333]}}

Example:
  moneybot serve
  moneybot summary
  moneybot token --operator ops`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			logging.SetupWithLevel(slog.LevelDebug)
			return
		}
		logging.Setup()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(tokenCmd)
}

// openLedger opens the configured ledger backend.
func openLedger(cfg *config.Config, groups *models.GroupTable) (storage.Ledger, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		return sqlite.New(cfg.LedgerPath, groups)
	case config.BackendFile, "":
		return flatfile.New(cfg.LedgerPath, groups)
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
	}
}

func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
