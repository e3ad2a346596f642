package repository

import (
	"context"

	"telegram-channel-relay/internal/domain/model"
)

// -----------------------------
// Channel Registry
// -----------------------------

type BindingRepository interface {
	// Save creates or overwrites the binding of b.GroupID.
	Save(ctx context.Context, b *model.ChannelBinding) error
	// Delete removes the binding of a group. It reports whether one existed.
	Delete(ctx context.Context, groupID int64) (bool, error)
	// FindByGroup returns domain.ErrNotFound when the group has no binding.
	FindByGroup(ctx context.Context, groupID int64) (*model.ChannelBinding, error)
	// ListAll returns a snapshot of every binding, in no particular order.
	ListAll(ctx context.Context) ([]model.ChannelBinding, error)
}
