package repository

import "context"

// -----------------------------
// Cursor Store
// -----------------------------

type CursorRepository interface {
	// Get returns the last forwarded sequence of a channel, 0 if unseen.
	Get(ctx context.Context, channel string) (int64, error)
	// Init stores 0 for the channel unless a value already exists.
	Init(ctx context.Context, channel string) error
	// Advance stores seq only when it is greater than the current value.
	// It reports whether the stored value moved.
	Advance(ctx context.Context, channel string, seq int64) (bool, error)
}

// Store bundles both repositories of one storage backend.
type Store interface {
	BindingRepository
	CursorRepository
	Close() error
}
