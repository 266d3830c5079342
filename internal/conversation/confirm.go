package conversation

import (
	"context"
	"fmt"
)

// ConfirmKind is the action a confirmation gates.
type ConfirmKind int

const (
	ConfirmClean ConfirmKind = iota
	ConfirmDelete
)

func (k ConfirmKind) String() string {
	switch k {
	case ConfirmClean:
		return "clean"
	case ConfirmDelete:
		return "delete"
	default:
		return fmt.Sprintf("confirm(%d)", int(k))
	}
}

// Confirmation is a pending yes/no question about one already-determined
// action. It collects no data.
type Confirmation struct {
	Kind      ConfirmKind
	Initiator int64
}

// ConfirmResult reports what an accepted confirmation did.
type ConfirmResult struct {
	Kind ConfirmKind
	// Archive is the rotated ledger name after a clean.
	Archive string
}

// RequestConfirmation asks user to confirm kind, replacing anything pending.
func (m *Machine) RequestConfirmation(kind ConfirmKind, user int64) Confirmation {
	m.replacePending(kind.String(), user)
	m.confirm = &Confirmation{Kind: kind, Initiator: user}
	return *m.confirm
}

// PendingConfirmation returns the open confirmation, if any.
func (m *Machine) PendingConfirmation() (Confirmation, bool) {
	if m.confirm == nil {
		return Confirmation{}, false
	}
	return *m.confirm, true
}

// Confirm performs the pending action.
//
// Delete removes the last ledger entry only when user wrote it; otherwise it
// returns ErrNotLastWriter. Clean rotates the whole ledger. Both clear the
// last-writer marker on success.
func (m *Machine) Confirm(ctx context.Context, user int64, kind ConfirmKind) (ConfirmResult, error) {
	if err := m.gateConfirm(user, kind); err != nil {
		return ConfirmResult{}, err
	}
	m.confirm = nil

	switch kind {
	case ConfirmDelete:
		if !m.hasLastWriter || m.lastWriter != user {
			return ConfirmResult{Kind: kind}, ErrNotLastWriter
		}
		if err := m.ledger.RemoveLast(ctx); err != nil {
			return ConfirmResult{Kind: kind}, fmt.Errorf("failed to remove last entry: %w", err)
		}
		m.lastWriter, m.hasLastWriter = 0, false
		m.logger.Info("Last entry deleted", "user_id", user)
		return ConfirmResult{Kind: kind}, nil

	case ConfirmClean:
		archive, err := m.ledger.Clear(ctx)
		if err != nil {
			return ConfirmResult{Kind: kind}, fmt.Errorf("failed to clear ledger: %w", err)
		}
		m.lastWriter, m.hasLastWriter = 0, false
		m.logger.Info("Ledger cleared", "user_id", user, "archive", archive)
		return ConfirmResult{Kind: kind, Archive: archive}, nil
	}

	return ConfirmResult{}, fmt.Errorf("unknown confirmation kind: %v", kind)
}

// Decline discards the pending confirmation.
func (m *Machine) Decline(user int64, kind ConfirmKind) error {
	if err := m.gateConfirm(user, kind); err != nil {
		return err
	}
	m.confirm = nil
	return nil
}

func (m *Machine) gateConfirm(user int64, kind ConfirmKind) error {
	if m.confirm == nil {
		return ErrNoPending
	}
	if m.confirm.Initiator != user || m.confirm.Kind != kind {
		return ErrNotForOperation
	}
	return nil
}
