package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/moneybot/internal/calculator"
	"github.com/mmynk/moneybot/internal/config"
	"github.com/mmynk/moneybot/internal/render"
)

var showTable bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print balances from the ledger",
	Long: `Print per-group balances and suggested transfers straight from the
configured ledger, without contacting Telegram.

Example:
  moneybot summary
  moneybot summary --table`,
	Run: runSummary,
}

func init() {
	summaryCmd.Flags().BoolVar(&showTable, "table", false, "also print every entry")
}

func runSummary(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(envFile)
	exitOnError(err, "failed to load configuration")
	if cfg.LedgerPath == "" {
		exitOnError(errors.New("dbfile is not set"), "invalid configuration")
	}

	groups, err := cfg.GroupTable()
	exitOnError(err, "invalid groups")

	ledger, err := openLedger(cfg, groups)
	exitOnError(err, "failed to open ledger")
	defer ledger.Close()

	entries, err := ledger.All(context.Background())
	exitOnError(err, "failed to read ledger")

	names := groups.Names()
	if showTable {
		fmt.Println(render.Table(entries, names))
		fmt.Println()
	}
	breakdown := calculator.Breakdown(entries, names)
	transfers := calculator.SettleUp(calculator.ComputeBalances(entries, names), names)
	fmt.Println(render.Summary(breakdown, transfers))
}
