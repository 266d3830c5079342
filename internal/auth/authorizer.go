// Package auth decides who may talk to the bot and who may call the admin API.
package auth

import (
	"errors"

	"github.com/mmynk/moneybot/internal/models"
)

// ErrUnauthorized is returned for events from outside the configured chat or
// from users that are not in any group.
var ErrUnauthorized = errors.New("user is not authorized")

// Authorizer admits events from the configured chat sent by group members.
type Authorizer struct {
	chatID int64
	groups *models.GroupTable
}

// NewAuthorizer creates an Authorizer for one chat.
func NewAuthorizer(chatID int64, groups *models.GroupTable) *Authorizer {
	return &Authorizer{chatID: chatID, groups: groups}
}

// Authorize returns ErrUnauthorized unless the event comes from the
// configured chat and user belongs to a group.
func (a *Authorizer) Authorize(chatID, user int64) error {
	if chatID != a.chatID || !a.groups.IsMember(user) {
		return ErrUnauthorized
	}
	return nil
}

// ChatID returns the one chat the bot serves.
func (a *Authorizer) ChatID() int64 {
	return a.chatID
}
