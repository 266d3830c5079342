package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mmynk/moneybot/internal/auth"
	"github.com/mmynk/moneybot/internal/calculator"
	"github.com/mmynk/moneybot/internal/conversation"
	"github.com/mmynk/moneybot/internal/metrics"
	"github.com/mmynk/moneybot/internal/models"
	"github.com/mmynk/moneybot/internal/render"
	"github.com/mmynk/moneybot/internal/storage"
)

// Router authorizes inbound events and drives the per-chat conversation
// machines. Events are handled one at a time.
type Router struct {
	mu       sync.Mutex
	sessions map[int64]*conversation.Machine

	gateway Gateway
	ledger  storage.Ledger
	groups  *models.GroupTable
	authz   *auth.Authorizer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewRouter creates a router. metrics may be nil.
func NewRouter(
	gateway Gateway,
	ledger storage.Ledger,
	groups *models.GroupTable,
	authz *auth.Authorizer,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		sessions: make(map[int64]*conversation.Machine),
		gateway:  gateway,
		ledger:   ledger,
		groups:   groups,
		authz:    authz,
		metrics:  m,
		logger:   logger,
	}
}

// Handle processes one event. Failures are reported to the chat and logged;
// nothing is returned to the caller.
func (r *Router) Handle(ctx context.Context, ev Event) {
	start := time.Now()
	defer r.metrics.ObserveEvent(start)

	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case ev.Command != "":
		r.handleCommand(ctx, ev)
	case ev.Callback != "":
		r.handleCallback(ctx, ev)
	case ev.Text != "":
		r.handleText(ctx, ev)
	}
}

func (r *Router) session(chatID int64) *conversation.Machine {
	m, ok := r.sessions[chatID]
	if !ok {
		m = conversation.NewMachine(r.groups, r.ledger, r.logger.With("chat_id", chatID))
		r.sessions[chatID] = m
	}
	return m
}

func (r *Router) handleCommand(ctx context.Context, ev Event) {
	if err := r.authz.Authorize(ev.ChatID, ev.UserID); err != nil {
		r.metrics.Unauthorized()
		r.logger.Warn("Unauthorized command",
			"cmd", ev.Command,
			"chat_id", ev.ChatID,
			"user_id", ev.UserID,
			"username", ev.Username,
		)
		r.send(ctx, ev.ChatID, replyUnauthorized)
		return
	}

	r.logger.Info("Command",
		"cmd", ev.Command,
		"user_id", ev.UserID,
		"username", ev.Username,
		"first_name", ev.FirstName,
	)
	m := r.session(ev.ChatID)

	switch ev.Command {
	case cmdStart:
		r.send(ctx, ev.ChatID, replyWelcome)
	case cmdHelp:
		r.send(ctx, ev.ChatID, helpText(r.groups.Names()))
	case cmdAdd:
		m.Open(ev.UserID)
		r.send(ctx, ev.ChatID, replyAddPrompt)
	case cmdSummary:
		r.summary(ctx, ev.ChatID)
	case cmdTable:
		r.table(ctx, ev.ChatID)
	case cmdTableMin:
		r.tableMin(ctx, ev.ChatID)
	case cmdClean:
		m.RequestConfirmation(conversation.ConfirmClean, ev.UserID)
		r.choice(ctx, ev.ChatID, replyCleanConfirm, cleanButtons)
	case cmdDelete:
		m.RequestConfirmation(conversation.ConfirmDelete, ev.UserID)
		r.choice(ctx, ev.ChatID, replyDeleteConfirm, deleteButtons)
	case cmdCancel:
		switch err := m.Cancel(ev.UserID); {
		case err == nil:
			r.metrics.Abort("cancelled")
			r.send(ctx, ev.ChatID, replyCancelled)
		case errors.Is(err, conversation.ErrNoPending):
			r.send(ctx, ev.ChatID, replyNothingPending)
		}
	default:
		r.logger.Debug("Unknown command", "cmd", ev.Command, "user_id", ev.UserID)
		return
	}
	r.metrics.Command(ev.Command)
}

func (r *Router) handleText(ctx context.Context, ev Event) {
	if r.authz.Authorize(ev.ChatID, ev.UserID) != nil {
		r.metrics.Unauthorized()
		return
	}

	m := r.session(ev.ChatID)
	step := m.State()
	r.logger.Info("Text",
		"step", step.String(),
		"user_id", ev.UserID,
		"username", ev.Username,
		"first_name", ev.FirstName,
		"text", ev.Text,
	)

	res, err := m.SubmitText(ctx, ev.UserID, ev.Text)
	if err != nil {
		r.fail(ctx, ev, err)
		return
	}

	switch {
	case res.Entry != nil:
		r.metrics.Commit("custom")
		r.send(ctx, ev.ChatID, replyWritten)
	case res.State == conversation.AwaitingSplitChoice:
		r.choice(ctx, ev.ChatID, replySplitChoice, splitButtons)
	}
}

func (r *Router) handleCallback(ctx context.Context, ev Event) {
	if r.authz.Authorize(ev.ChatID, ev.UserID) != nil {
		r.metrics.Unauthorized()
		return
	}
	if ev.CallbackID != "" {
		if err := r.gateway.AnswerCallback(ctx, ev.CallbackID); err != nil {
			r.logger.Warn("Failed to answer callback", "error", err)
		}
	}

	m := r.session(ev.ChatID)
	var (
		reply string
		err   error
	)

	switch ev.Callback {
	case tokenEven:
		var res conversation.Result
		if res, err = m.ChooseEven(ctx, ev.UserID); err == nil && res.Entry != nil {
			r.metrics.Commit("even")
			reply = replyWritten
		}
	case tokenCustom:
		if _, err = m.ChooseCustom(ev.UserID); err == nil {
			reply = replyCustomPrompt
		}
	case tokenCancel:
		if err = m.Cancel(ev.UserID); err == nil {
			r.metrics.Abort("cancelled")
			reply = replyCancelled
		}
	case tokenCleanYes:
		var res conversation.ConfirmResult
		if res, err = m.Confirm(ctx, ev.UserID, conversation.ConfirmClean); err == nil {
			r.logger.Info("Table cleaned",
				"user_id", ev.UserID,
				"username", ev.Username,
				"first_name", ev.FirstName,
				"archive", res.Archive,
			)
			reply = replyCleaned
		}
	case tokenDeleteYes:
		if _, err = m.Confirm(ctx, ev.UserID, conversation.ConfirmDelete); err == nil {
			r.logger.Info("Entry deleted",
				"user_id", ev.UserID,
				"username", ev.Username,
				"first_name", ev.FirstName,
			)
			reply = replyDeleted
		}
	case tokenCleanNo:
		if err = m.Decline(ev.UserID, conversation.ConfirmClean); err == nil {
			reply = replyChooseAnother
		}
	case tokenDeleteNo:
		if err = m.Decline(ev.UserID, conversation.ConfirmDelete); err == nil {
			reply = replyChooseAnother
		}
	default:
		r.logger.Debug("Unknown callback", "data", ev.Callback, "user_id", ev.UserID)
		return
	}

	// Taps that do not belong to the pending operation leave its prompt alone.
	if errors.Is(err, conversation.ErrNoPending) || errors.Is(err, conversation.ErrNotForOperation) {
		r.logger.Debug("Ignored tap", "data", ev.Callback, "user_id", ev.UserID, "reason", err)
		return
	}

	if err := r.gateway.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		r.logger.Warn("Failed to delete prompt", "message_id", ev.MessageID, "error", err)
	}

	if err != nil {
		r.fail(ctx, ev, err)
		return
	}
	if reply != "" {
		r.send(ctx, ev.ChatID, reply)
	}
}

// fail maps an operation error to its one user-facing reply.
func (r *Router) fail(ctx context.Context, ev Event, err error) {
	switch {
	case errors.Is(err, conversation.ErrNoPending), errors.Is(err, conversation.ErrNotForOperation):
		r.logger.Debug("Ignored event", "user_id", ev.UserID, "reason", err)

	case errors.Is(err, conversation.ErrSplitMismatch):
		r.metrics.SplitMismatch()
		r.send(ctx, ev.ChatID, replyMismatch)

	case errors.Is(err, conversation.ErrNotLastWriter):
		r.send(ctx, ev.ChatID, replyCannotDelete)

	case errors.Is(err, conversation.ErrMalformedInput):
		r.metrics.Abort("malformed")
		r.logger.Warn("Malformed input", "user_id", ev.UserID, "text", ev.Text, "error", err)
		r.send(ctx, ev.ChatID, replyWrongRequest)

	case errors.Is(err, conversation.ErrNoGroupForUser):
		r.metrics.Abort("no_group")
		r.logger.Warn("User has no group", "user_id", ev.UserID, "text", ev.Text)
		r.send(ctx, ev.ChatID, replyWrongRequest)

	default:
		r.ledgerFailure(ctx, ev.ChatID, err)
	}
}

func (r *Router) ledgerFailure(ctx context.Context, chatID int64, err error) {
	kind := "other"
	switch {
	case errors.Is(err, storage.ErrCorruptRecord):
		kind = "corrupt"
	case errors.Is(err, storage.ErrStoreIO):
		kind = "io"
	case errors.Is(err, storage.ErrInvalidEntry):
		kind = "invalid"
	}
	r.metrics.LedgerError(kind)
	r.logger.Error("Ledger operation failed", "kind", kind, "error", err)
	r.send(ctx, chatID, replyWrongRequest)
}

func (r *Router) summary(ctx context.Context, chatID int64) {
	entries, err := r.ledger.All(ctx)
	if err != nil {
		r.ledgerFailure(ctx, chatID, err)
		return
	}
	names := r.groups.Names()
	breakdown := calculator.Breakdown(entries, names)
	transfers := calculator.SettleUp(calculator.ComputeBalances(entries, names), names)
	r.monospace(ctx, chatID, render.Summary(breakdown, transfers))
}

func (r *Router) table(ctx context.Context, chatID int64) {
	entries, err := r.ledger.All(ctx)
	if err != nil {
		r.ledgerFailure(ctx, chatID, err)
		return
	}
	data := []byte(render.Table(entries, r.groups.Names()))
	if err := r.gateway.SendDocument(ctx, chatID, render.TableFileName, data); err != nil {
		r.logger.Error("Failed to send document", "chat_id", chatID, "error", err)
	}
}

func (r *Router) tableMin(ctx context.Context, chatID int64) {
	entries, err := r.ledger.All(ctx)
	if err != nil {
		r.ledgerFailure(ctx, chatID, err)
		return
	}
	r.monospace(ctx, chatID, render.TableMin(entries))
}

func (r *Router) send(ctx context.Context, chatID int64, text string) {
	if err := r.gateway.SendText(ctx, chatID, text); err != nil {
		r.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (r *Router) monospace(ctx context.Context, chatID int64, text string) {
	if err := r.gateway.SendMonospace(ctx, chatID, text); err != nil {
		r.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func (r *Router) choice(ctx context.Context, chatID int64, text string, buttons []Button) {
	if err := r.gateway.SendChoice(ctx, chatID, text, buttons); err != nil {
		r.logger.Error("Failed to send choice", "chat_id", chatID, "error", err)
	}
}
