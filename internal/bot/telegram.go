package bot

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pollTimeoutSeconds = 60

// Telegram is a Gateway backed by the Telegram Bot API with long polling.
type Telegram struct {
	api    *tgbotapi.BotAPI
	logger *slog.Logger
}

var _ Gateway = (*Telegram)(nil)

// NewTelegram connects with token and checks it against the API.
func NewTelegram(token string, logger *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Telegram bot authorized", "username", api.Self.UserName)
	return &Telegram{api: api, logger: logger}, nil
}

// Run feeds updates to handle one at a time until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context, handle func(context.Context, Event)) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := t.api.GetUpdatesChan(u)
	defer t.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Stopping update loop")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if ev, ok := eventFromUpdate(update); ok {
				handle(ctx, ev)
			}
		}
	}
}

// eventFromUpdate converts messages and button taps. Other updates are
// skipped.
func eventFromUpdate(update tgbotapi.Update) (Event, bool) {
	switch {
	case update.Message != nil:
		msg := update.Message
		if msg.From == nil || msg.Chat == nil {
			return Event{}, false
		}
		ev := Event{
			ChatID:    msg.Chat.ID,
			UserID:    msg.From.ID,
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
			MessageID: msg.MessageID,
		}
		if msg.IsCommand() {
			ev.Command = msg.Command()
			ev.Text = msg.CommandArguments()
		} else {
			ev.Text = msg.Text
		}
		return ev, ev.Command != "" || ev.Text != ""

	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		if cq.From == nil || cq.Message == nil || cq.Message.Chat == nil {
			return Event{}, false
		}
		return Event{
			ChatID:     cq.Message.Chat.ID,
			UserID:     cq.From.ID,
			Username:   cq.From.UserName,
			FirstName:  cq.From.FirstName,
			MessageID:  cq.Message.MessageID,
			Callback:   cq.Data,
			CallbackID: cq.ID,
		}, cq.Data != ""
	}
	return Event{}, false
}

func (t *Telegram) SendText(_ context.Context, chatID int64, text string) error {
	return t.send(tgbotapi.NewMessage(chatID, text))
}

func (t *Telegram) SendMonospace(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, "<pre>"+html.EscapeString(text)+"</pre>")
	msg.ParseMode = tgbotapi.ModeHTML
	return t.send(msg)
}

func (t *Telegram) SendChoice(_ context.Context, chatID int64, text string, buttons []Button) error {
	row := make([]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	return t.send(msg)
}

func (t *Telegram) SendDocument(_ context.Context, chatID int64, name string, data []byte) error {
	return t.send(tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data}))
}

func (t *Telegram) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	if _, err := t.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message %d: %w", messageID, err)
	}
	return nil
}

func (t *Telegram) AnswerCallback(_ context.Context, callbackID string) error {
	if _, err := t.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func (t *Telegram) send(c tgbotapi.Chattable) error {
	if _, err := t.api.Send(c); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
