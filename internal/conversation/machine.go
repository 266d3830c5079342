// Package conversation turns a sequence of chat messages and button taps into
// one validated ledger entry.
//
// A Machine owns the single pending slot of one chat. The slot holds either a
// purchase-entry Operation or a delete/clean Confirmation. Starting a new one
// replaces whatever was pending.
//
// Purchase entry moves through
//
//	Idle → AwaitingAmount → AwaitingSplitChoice → AwaitingCustomSplit
//
// and ends committed (entry appended to the ledger) or aborted. Both terminal
// outcomes return the machine to Idle. Only the initiator may advance or
// cancel an operation; events from anyone else return ErrNotForOperation and
// leave the wait armed.
//
// A Machine is not safe for concurrent use. The router serializes events.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/moneybot/internal/calculator"
	"github.com/mmynk/moneybot/internal/models"
	"github.com/mmynk/moneybot/internal/storage"
)

// State is the step a purchase-entry operation is waiting at.
type State int

const (
	Idle State = iota
	AwaitingAmount
	AwaitingSplitChoice
	AwaitingCustomSplit
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingAmount:
		return "awaiting_amount"
	case AwaitingSplitChoice:
		return "awaiting_split_choice"
	case AwaitingCustomSplit:
		return "awaiting_custom_split"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SplitChoice records how the initiator chose to split the purchase.
type SplitChoice int

const (
	SplitUnset SplitChoice = iota
	SplitEven
	SplitCustom
)

// Operation is the in-flight purchase-entry negotiation.
type Operation struct {
	// ID correlates log lines of one operation.
	ID        uuid.UUID
	Initiator int64
	State     State

	// Populated once the amount step completes.
	Payer       string
	Description string
	Total       float64
	Split       SplitChoice

	total decimal.Decimal
}

// Result reports where an accepted event left the machine.
type Result struct {
	// State is the operation state after the event. Idle after a commit.
	State State
	// Entry is the committed ledger entry, nil unless the event committed.
	Entry *models.Entry
	// Operation is a snapshot of the pending operation, nil once resolved.
	Operation *Operation
}

// Machine is the per-chat conversation state.
type Machine struct {
	groups *models.GroupTable
	ledger storage.Ledger
	logger *slog.Logger
	now    func() time.Time

	op      *Operation
	confirm *Confirmation

	lastWriter    int64
	hasLastWriter bool
}

// NewMachine creates an idle machine that commits into ledger.
func NewMachine(groups *models.GroupTable, ledger storage.Ledger, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		groups: groups,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}
}

// State returns the current purchase-entry state.
func (m *Machine) State() State {
	if m.op == nil {
		return Idle
	}
	return m.op.State
}

// Pending returns a snapshot of the pending operation, or nil.
func (m *Machine) Pending() *Operation {
	if m.op == nil {
		return nil
	}
	snapshot := *m.op
	return &snapshot
}

// LastWriter returns the user who committed the most recent entry.
func (m *Machine) LastWriter() (int64, bool) {
	return m.lastWriter, m.hasLastWriter
}

// Open starts a purchase-entry operation for user, replacing anything pending.
func (m *Machine) Open(user int64) *Operation {
	m.replacePending("add", user)

	m.op = &Operation{
		ID:        uuid.New(),
		Initiator: user,
		State:     AwaitingAmount,
	}
	m.logger.Debug("Operation opened", "op_id", m.op.ID, "user_id", user)
	return m.Pending()
}

// SubmitText routes free text to the step the operation is waiting at.
func (m *Machine) SubmitText(ctx context.Context, user int64, text string) (Result, error) {
	if m.op == nil {
		return Result{}, ErrNoPending
	}
	switch m.op.State {
	case AwaitingAmount:
		return m.SubmitAmount(user, text)
	case AwaitingCustomSplit:
		return m.SubmitCustomSplit(ctx, user, text)
	default:
		return m.result(nil), ErrNotForOperation
	}
}

// SubmitAmount parses "<description> <amount>" and resolves the payer group.
func (m *Machine) SubmitAmount(user int64, text string) (Result, error) {
	if err := m.gate(user, AwaitingAmount); err != nil {
		return m.result(nil), err
	}

	description, total, err := parseAmountLine(text)
	if err != nil {
		m.abort("malformed amount")
		return m.result(nil), &InputError{Step: AwaitingAmount, Raw: text, Reason: err.Error()}
	}

	payer, ok := m.groups.GroupOf(user)
	if !ok {
		m.abort("no group for user")
		return m.result(nil), fmt.Errorf("%w: %d", ErrNoGroupForUser, user)
	}

	m.op.Payer = payer
	m.op.Description = description
	m.op.total = total
	m.op.Total = total.InexactFloat64()
	m.op.State = AwaitingSplitChoice

	m.logger.Debug("Amount accepted",
		"op_id", m.op.ID,
		"payer", payer,
		"description", description,
		"total", m.op.Total,
	)
	return m.result(nil), nil
}

// ChooseEven splits the total equally across all groups and commits.
func (m *Machine) ChooseEven(ctx context.Context, user int64) (Result, error) {
	if err := m.gate(user, AwaitingSplitChoice); err != nil {
		return m.result(nil), err
	}
	m.op.Split = SplitEven

	shares, err := calculator.EvenSplit(m.op.Total, m.groups.Names())
	if err != nil {
		m.abort("even split failed")
		return m.result(nil), err
	}
	return m.commit(ctx, shares)
}

// ChooseCustom moves the operation to the custom split step.
func (m *Machine) ChooseCustom(user int64) (Result, error) {
	if err := m.gate(user, AwaitingSplitChoice); err != nil {
		return m.result(nil), err
	}
	m.op.Split = SplitCustom
	m.op.State = AwaitingCustomSplit
	return m.result(nil), nil
}

// SubmitCustomSplit parses "<group> <amount> ..." pairs. Unparsable input
// aborts the operation. Amounts that parse but do not add up to the total
// exactly return ErrSplitMismatch and keep the operation waiting.
func (m *Machine) SubmitCustomSplit(ctx context.Context, user int64, text string) (Result, error) {
	if err := m.gate(user, AwaitingCustomSplit); err != nil {
		return m.result(nil), err
	}

	amounts, err := parseCustomSplit(text, m.groups)
	if err != nil {
		m.abort("malformed custom split")
		return m.result(nil), &InputError{Step: AwaitingCustomSplit, Raw: text, Reason: err.Error()}
	}

	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(a)
	}
	if !sum.Equal(m.op.total) {
		m.logger.Debug("Custom split mismatch",
			"op_id", m.op.ID,
			"sum", sum.String(),
			"total", m.op.total.String(),
		)
		return m.result(nil), fmt.Errorf("%w: got %s, want %s", ErrSplitMismatch, sum, m.op.total)
	}

	shares := make(map[string]float64, len(amounts))
	for name, a := range amounts {
		shares[name] = a.InexactFloat64()
	}
	return m.commit(ctx, shares)
}

// Cancel discards the pending operation or confirmation without writing
// anything. Only its initiator may cancel it.
func (m *Machine) Cancel(user int64) error {
	switch {
	case m.op != nil:
		if m.op.Initiator != user {
			return ErrNotForOperation
		}
		m.abort("cancelled")
		return nil
	case m.confirm != nil:
		if m.confirm.Initiator != user {
			return ErrNotForOperation
		}
		m.confirm = nil
		return nil
	}
	return ErrNoPending
}

func (m *Machine) commit(ctx context.Context, shares map[string]float64) (Result, error) {
	entry := &models.Entry{
		Payer:       m.op.Payer,
		Description: m.op.Description,
		Total:       m.op.Total,
		Shares:      shares,
		RecordedAt:  m.now(),
	}

	if err := m.ledger.Append(ctx, entry); err != nil {
		m.abort("ledger append failed")
		return m.result(nil), fmt.Errorf("failed to append entry: %w", err)
	}

	m.logger.Info("Entry committed",
		"op_id", m.op.ID,
		"user_id", m.op.Initiator,
		"payer", entry.Payer,
		"total", entry.Total,
	)
	m.lastWriter, m.hasLastWriter = m.op.Initiator, true
	m.op = nil
	return m.result(entry), nil
}

// gate admits only the initiator at the expected step.
func (m *Machine) gate(user int64, want State) error {
	if m.op == nil {
		return ErrNoPending
	}
	if m.op.Initiator != user || m.op.State != want {
		return ErrNotForOperation
	}
	return nil
}

func (m *Machine) abort(reason string) {
	if m.op == nil {
		return
	}
	m.logger.Debug("Operation aborted", "op_id", m.op.ID, "reason", reason)
	m.op = nil
}

// replacePending drops whatever is pending. Last writer wins: the previous
// initiator is not told.
func (m *Machine) replacePending(by string, user int64) {
	if m.op != nil {
		m.logger.Warn("Pending operation replaced",
			"op_id", m.op.ID,
			"initiator", m.op.Initiator,
			"state", m.op.State.String(),
			"replaced_by", by,
			"user_id", user,
		)
		m.op = nil
	}
	if m.confirm != nil {
		m.logger.Warn("Pending confirmation replaced",
			"kind", m.confirm.Kind.String(),
			"initiator", m.confirm.Initiator,
			"replaced_by", by,
			"user_id", user,
		)
		m.confirm = nil
	}
}

func (m *Machine) result(entry *models.Entry) Result {
	return Result{State: m.State(), Entry: entry, Operation: m.Pending()}
}
