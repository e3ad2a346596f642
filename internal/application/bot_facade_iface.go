package application

import (
	"context"

	"telegram-channel-relay/internal/domain/model"
)

// Translator is the localisation surface the facade needs.
type Translator interface {
	T(key string, args ...interface{}) string
}

// MembershipChecker resolves a user's role in a chat.
type MembershipChecker interface {
	GetMemberRole(ctx context.Context, chatID, userID int64) (model.MemberRole, error)
}
