package bot

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestEventFromUpdate(t *testing.T) {
	from := &tgbotapi.User{ID: 7, UserName: "ann", FirstName: "Ann"}
	group := &tgbotapi.Chat{ID: -100}

	tests := []struct {
		name   string
		update tgbotapi.Update
		want   Event
		ok     bool
	}{
		{
			name: "command with bot suffix",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				MessageID: 5,
				From:      from,
				Chat:      group,
				Text:      "/add@moneybot",
				Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 13}},
			}},
			want: Event{ChatID: -100, UserID: 7, Username: "ann", FirstName: "Ann", MessageID: 5, Command: "add"},
			ok:   true,
		},
		{
			name: "plain text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				MessageID: 6,
				From:      from,
				Chat:      group,
				Text:      "dinner 60",
			}},
			want: Event{ChatID: -100, UserID: 7, Username: "ann", FirstName: "Ann", MessageID: 6, Text: "dinner 60"},
			ok:   true,
		},
		{
			name: "button tap",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
				ID:      "q1",
				From:    from,
				Data:    "inhalf",
				Message: &tgbotapi.Message{MessageID: 8, Chat: group},
			}},
			want: Event{ChatID: -100, UserID: 7, Username: "ann", FirstName: "Ann", MessageID: 8, Callback: "inhalf", CallbackID: "q1"},
			ok:   true,
		},
		{
			name:   "message without sender",
			update: tgbotapi.Update{Message: &tgbotapi.Message{Chat: group, Text: "hi"}},
		},
		{
			name:   "photo without text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{From: from, Chat: group}},
		},
		{
			name:   "other update",
			update: tgbotapi.Update{EditedMessage: &tgbotapi.Message{From: from, Chat: group, Text: "x"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := eventFromUpdate(tt.update)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
