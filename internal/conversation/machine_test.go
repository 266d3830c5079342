package conversation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/moneybot/internal/models"
	"github.com/mmynk/moneybot/internal/storage"
)

const (
	alice int64 = 1 // group A
	bob   int64 = 2 // group B
	carol int64 = 3 // group C
	eve   int64 = 9 // no group
)

// memLedger is an in-memory storage.Ledger.
type memLedger struct {
	entries   []models.Entry
	clears    int
	appendErr error
}

func (l *memLedger) Append(_ context.Context, e *models.Entry) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.entries = append(l.entries, *e)
	return nil
}

func (l *memLedger) All(context.Context) ([]models.Entry, error) {
	return l.entries, nil
}

func (l *memLedger) RemoveLast(context.Context) error {
	if len(l.entries) > 0 {
		l.entries = l.entries[:len(l.entries)-1]
	}
	return nil
}

func (l *memLedger) Clear(context.Context) (string, error) {
	l.entries = nil
	l.clears++
	return "ledger.csv.1", nil
}

func (l *memLedger) Close() error { return nil }

func newTestMachine(t *testing.T) (*Machine, *memLedger) {
	t.Helper()
	groups, err := models.NewGroupTable([]models.Group{
		{Name: "A", Members: []int64{alice}},
		{Name: "B", Members: []int64{bob}},
		{Name: "C", Members: []int64{carol}},
	})
	require.NoError(t, err)

	ledger := &memLedger{}
	m := NewMachine(groups, ledger, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.now = func() time.Time { return time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC) }
	return m, ledger
}

func TestEvenSplitScenario(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)

	op := m.Open(alice)
	assert.Equal(t, AwaitingAmount, op.State)
	assert.Equal(t, alice, op.Initiator)

	res, err := m.SubmitText(ctx, alice, "dinner 60")
	require.NoError(t, err)
	assert.Equal(t, AwaitingSplitChoice, res.State)
	assert.Equal(t, "A", res.Operation.Payer)
	assert.Equal(t, "dinner", res.Operation.Description)
	assert.Equal(t, 60.0, res.Operation.Total)

	res, err = m.ChooseEven(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, Idle, res.State)
	require.NotNil(t, res.Entry)

	require.Len(t, ledger.entries, 1)
	got := ledger.entries[0]
	assert.Equal(t, "A", got.Payer)
	assert.Equal(t, "dinner", got.Description)
	assert.Equal(t, 60.0, got.Total)
	assert.Equal(t, map[string]float64{"A": 20, "B": 20, "C": 20}, got.Shares)

	writer, ok := m.LastWriter()
	assert.True(t, ok)
	assert.Equal(t, alice, writer)
	assert.Nil(t, m.Pending())
}

func TestCustomSplitScenario(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)

	m.Open(bob)
	_, err := m.SubmitText(ctx, bob, "groceries 30")
	require.NoError(t, err)
	res, err := m.ChooseCustom(bob)
	require.NoError(t, err)
	assert.Equal(t, AwaitingCustomSplit, res.State)

	// 10 + 10 + 50 = 70 != 30: re-prompt, neither commit nor abort
	res, err = m.SubmitText(ctx, bob, "A 10 B 10 C 50")
	assert.ErrorIs(t, err, ErrSplitMismatch)
	assert.Equal(t, AwaitingCustomSplit, res.State)
	assert.Empty(t, ledger.entries)

	res, err = m.SubmitText(ctx, bob, "A 10 B 10 C 10")
	require.NoError(t, err)
	assert.Equal(t, Idle, res.State)

	require.Len(t, ledger.entries, 1)
	got := ledger.entries[0]
	assert.Equal(t, "B", got.Payer)
	assert.Equal(t, 30.0, got.Total)
	assert.Equal(t, map[string]float64{"A": 10, "B": 10, "C": 10}, got.Shares)
}

func TestCustomSplit_RetriesIndefinitely(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)

	m.Open(alice)
	_, err := m.SubmitText(ctx, alice, "dinner 60")
	require.NoError(t, err)
	_, err = m.ChooseCustom(alice)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := m.SubmitText(ctx, alice, "A 1 B 1 C 1")
		require.ErrorIs(t, err, ErrSplitMismatch)
	}
	assert.Equal(t, AwaitingCustomSplit, m.State())

	_, err = m.SubmitText(ctx, alice, "A 60")
	require.NoError(t, err)
	require.Len(t, ledger.entries, 1)
	assert.Equal(t, map[string]float64{"A": 60, "B": 0, "C": 0}, ledger.entries[0].Shares)
}

func TestCustomSplit_ExactDecimalComparison(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)

	m.Open(alice)
	_, err := m.SubmitText(ctx, alice, "snacks 0.3")
	require.NoError(t, err)
	_, err = m.ChooseCustom(alice)
	require.NoError(t, err)

	// 0.1 + 0.2 is not 0.3 in binary floating point, but is in decimal
	_, err = m.SubmitText(ctx, alice, "A 0.1 B 0.2")
	require.NoError(t, err)
	require.Len(t, ledger.entries, 1)

	// a difference of one cent is still a mismatch
	m.Open(alice)
	_, err = m.SubmitText(ctx, alice, "snacks 0.3")
	require.NoError(t, err)
	_, err = m.ChooseCustom(alice)
	require.NoError(t, err)
	_, err = m.SubmitText(ctx, alice, "A 0.1 B 0.21")
	assert.ErrorIs(t, err, ErrSplitMismatch)
}

func TestCustomSplit_MalformedAborts(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"odd token count", "A 10 B"},
		{"unknown group", "A 10 Z 20"},
		{"bad amount", "A ten B 20"},
		{"negative amount", "A -10 B 40"},
		{"duplicate group", "A 10 A 20"},
		{"empty", "   "},
		{"huge exponent", "A 1e2000000000"},
		{"tiny exponent", "A 1e-2000000000 B 30"},
		{"exponent just out of range", "A 30e13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m, ledger := newTestMachine(t)
			m.Open(alice)
			_, err := m.SubmitText(ctx, alice, "dinner 30")
			require.NoError(t, err)
			_, err = m.ChooseCustom(alice)
			require.NoError(t, err)

			res, err := m.SubmitText(ctx, alice, tt.text)
			assert.ErrorIs(t, err, ErrMalformedInput)
			assert.Equal(t, Idle, res.State)
			assert.Empty(t, ledger.entries)

			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.text, inputErr.Raw)
			assert.Equal(t, AwaitingCustomSplit, inputErr.Step)
		})
	}
}

func TestSubmitAmount(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantErr  error
		wantDesc string
		wantAmt  float64
	}{
		{name: "multi-word description", text: "taxi to the airport 42.50", wantDesc: "taxi to the airport", wantAmt: 42.5},
		{name: "extra whitespace collapses", text: "  big   shop\t 100 ", wantDesc: "big shop", wantAmt: 100},
		{name: "amount only", text: "15", wantDesc: "", wantAmt: 15},
		{name: "delimiter is replaced", text: "beer|chips 8", wantDesc: "beer/chips", wantAmt: 8},
		{name: "zero amount", text: "free sample 0", wantDesc: "free sample", wantAmt: 0},
		{name: "amount not last", text: "60 dinner", wantErr: ErrMalformedInput},
		{name: "negative amount", text: "refund -5", wantErr: ErrMalformedInput},
		{name: "empty", text: "", wantErr: ErrMalformedInput},
		{name: "huge exponent", text: "x 1e50000000", wantErr: ErrMalformedInput},
		{name: "tiny exponent", text: "x 1e-2000000000", wantErr: ErrMalformedInput},
		{name: "overflows float64", text: "x 1" + strings.Repeat("0", 400), wantErr: ErrMalformedInput},
		{name: "smallest accepted fraction", text: "x 0.000000000001", wantDesc: "x", wantAmt: 1e-12},
		{name: "largest accepted exponent", text: "x 1e12", wantDesc: "x", wantAmt: 1e12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMachine(t)
			m.Open(carol)

			res, err := m.SubmitAmount(carol, tt.text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, Idle, res.State, "malformed amount aborts")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "C", res.Operation.Payer)
			assert.Equal(t, tt.wantDesc, res.Operation.Description)
			assert.Equal(t, tt.wantAmt, res.Operation.Total)
		})
	}
}

func TestSubmitAmount_NoGroupForUser(t *testing.T) {
	m, _ := newTestMachine(t)
	m.Open(eve)

	res, err := m.SubmitText(context.Background(), eve, "dinner 60")
	assert.ErrorIs(t, err, ErrNoGroupForUser)
	assert.Equal(t, Idle, res.State)
}

func TestNonInitiatorIsIgnored(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)

	m.Open(alice)

	res, err := m.SubmitText(ctx, bob, "lunch 20")
	assert.ErrorIs(t, err, ErrNotForOperation)
	assert.Equal(t, AwaitingAmount, res.State)
	assert.Equal(t, alice, res.Operation.Initiator)

	// the wait stays armed for the initiator
	_, err = m.SubmitText(ctx, alice, "dinner 60")
	require.NoError(t, err)

	_, err = m.ChooseEven(ctx, bob)
	assert.ErrorIs(t, err, ErrNotForOperation)
	_, err = m.ChooseCustom(bob)
	assert.ErrorIs(t, err, ErrNotForOperation)
	assert.ErrorIs(t, m.Cancel(bob), ErrNotForOperation)
	assert.Equal(t, AwaitingSplitChoice, m.State())

	_, err = m.ChooseEven(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, ledger.entries, 1)
}

func TestWrongStepIsIgnored(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestMachine(t)

	_, err := m.SubmitText(ctx, alice, "dinner 60")
	assert.ErrorIs(t, err, ErrNoPending)
	_, err = m.ChooseEven(ctx, alice)
	assert.ErrorIs(t, err, ErrNoPending)

	m.Open(alice)
	_, err = m.ChooseEven(ctx, alice)
	assert.ErrorIs(t, err, ErrNotForOperation)
	assert.Equal(t, AwaitingAmount, m.State())

	_, err = m.SubmitText(ctx, alice, "dinner 60")
	require.NoError(t, err)
	// text while waiting for a button tap
	_, err = m.SubmitText(ctx, alice, "A 60")
	assert.ErrorIs(t, err, ErrNotForOperation)
	assert.Equal(t, AwaitingSplitChoice, m.State())
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)

	assert.ErrorIs(t, m.Cancel(alice), ErrNoPending)

	for _, advance := range []func(){
		func() {},
		func() { _, _ = m.SubmitText(ctx, alice, "dinner 60") },
		func() {
			_, _ = m.SubmitText(ctx, alice, "dinner 60")
			_, _ = m.ChooseCustom(alice)
		},
	} {
		m.Open(alice)
		advance()
		require.NoError(t, m.Cancel(alice))
		assert.Equal(t, Idle, m.State())
	}
	assert.Empty(t, ledger.entries)
}

func TestOpenReplacesPending(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)

	first := m.Open(alice)
	_, err := m.SubmitText(ctx, alice, "dinner 60")
	require.NoError(t, err)

	second := m.Open(bob)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, bob, m.Pending().Initiator)
	assert.Equal(t, AwaitingAmount, m.State())

	_, err = m.ChooseEven(ctx, alice)
	assert.ErrorIs(t, err, ErrNotForOperation)
	assert.Empty(t, ledger.entries)

	m.RequestConfirmation(ConfirmClean, carol)
	assert.Nil(t, m.Pending())
	_, ok := m.PendingConfirmation()
	assert.True(t, ok)

	m.Open(alice)
	_, ok = m.PendingConfirmation()
	assert.False(t, ok)
}

func TestCommitFailureAborts(t *testing.T) {
	ctx := context.Background()
	m, ledger := newTestMachine(t)
	ioErr := &storage.IOError{Op: "append", Path: "ledger.csv", Err: errors.New("disk full")}
	ledger.appendErr = ioErr

	m.Open(alice)
	_, err := m.SubmitText(ctx, alice, "dinner 60")
	require.NoError(t, err)

	res, err := m.ChooseEven(ctx, alice)
	assert.ErrorIs(t, err, storage.ErrStoreIO)
	assert.Equal(t, Idle, res.State)
	_, ok := m.LastWriter()
	assert.False(t, ok)
}
