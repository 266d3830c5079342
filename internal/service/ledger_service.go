// Package service implements the read-only admin API over the ledger.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/moneybot/internal/calculator"
	"github.com/mmynk/moneybot/internal/middleware"
	"github.com/mmynk/moneybot/internal/models"
	"github.com/mmynk/moneybot/internal/storage"
)

// LedgerService exposes balances and entries to operators.
type LedgerService struct {
	ledger storage.Ledger
	groups *models.GroupTable
}

var _ LedgerServiceHandler = (*LedgerService)(nil)

// NewLedgerService creates a LedgerService reading from ledger.
func NewLedgerService(ledger storage.Ledger, groups *models.GroupTable) *LedgerService {
	return &LedgerService{ledger: ledger, groups: groups}
}

// GetBalances returns per-group paid/owed/net and suggested transfers.
func (s *LedgerService) GetBalances(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	slog.Info("GetBalances request received", "operator", middleware.GetOperator(ctx))

	entries, err := s.ledger.All(ctx)
	if err != nil {
		return nil, ledgerError("GetBalances", err)
	}

	names := s.groups.Names()
	breakdown := calculator.Breakdown(entries, names)
	transfers := calculator.SettleUp(calculator.ComputeBalances(entries, names), names)

	balances := make([]any, 0, len(breakdown))
	for _, b := range breakdown {
		balances = append(balances, map[string]any{
			"group": b.Group,
			"paid":  b.Paid,
			"owed":  b.Owed,
			"net":   b.Net,
		})
	}
	moves := make([]any, 0, len(transfers))
	for _, t := range transfers {
		moves = append(moves, map[string]any{
			"from":   t.From,
			"to":     t.To,
			"amount": t.Amount,
		})
	}

	out, err := structpb.NewStruct(map[string]any{
		"entries":   float64(len(entries)),
		"balances":  balances,
		"transfers": moves,
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to build response: %w", err))
	}
	return connect.NewResponse(out), nil
}

// ListEntries returns every entry in append order.
func (s *LedgerService) ListEntries(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[structpb.Struct], error) {
	slog.Info("ListEntries request received", "operator", middleware.GetOperator(ctx))

	entries, err := s.ledger.All(ctx)
	if err != nil {
		return nil, ledgerError("ListEntries", err)
	}

	list := make([]any, 0, len(entries))
	for _, e := range entries {
		shares := make(map[string]any, len(e.Shares))
		for g, v := range e.Shares {
			shares[g] = v
		}
		list = append(list, map[string]any{
			"payer":       e.Payer,
			"description": e.Description,
			"total":       e.Total,
			"shares":      shares,
			"recorded_at": e.RecordedAt.UTC().Format(time.RFC3339),
		})
	}

	out, err := structpb.NewStruct(map[string]any{"entries": list})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to build response: %w", err))
	}
	return connect.NewResponse(out), nil
}

func ledgerError(procedure string, err error) error {
	slog.Error(procedure+" failed", "error", err)
	if errors.Is(err, storage.ErrCorruptRecord) {
		return connect.NewError(connect.CodeDataLoss, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
