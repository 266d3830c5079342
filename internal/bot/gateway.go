// Package bot connects a chat platform to the conversation machines and the
// ledger.
package bot

import "context"

// Event is one inbound message or button tap. Exactly one of Command, Text
// or Callback drives routing; Command wins when set.
type Event struct {
	ChatID    int64
	UserID    int64
	Username  string
	FirstName string
	// MessageID is the message that was sent or, for taps, the message
	// carrying the buttons.
	MessageID int

	// Command is the bot command without its slash, e.g. "add".
	Command string
	Text    string

	// Callback is the data token of a tapped button.
	Callback   string
	CallbackID string
}

// Button is one inline choice. Data comes back as Event.Callback.
type Button struct {
	Text string
	Data string
}

// Gateway sends replies through the chat platform.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	// SendMonospace sends text rendered in a fixed-width font.
	SendMonospace(ctx context.Context, chatID int64, text string) error
	// SendChoice sends text with one row of inline buttons.
	SendChoice(ctx context.Context, chatID int64, text string, buttons []Button) error
	SendDocument(ctx context.Context, chatID int64, name string, data []byte) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	// AnswerCallback stops the client's progress indicator for a tap.
	AnswerCallback(ctx context.Context, callbackID string) error
}
