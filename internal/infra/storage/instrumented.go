package storage

import (
	"context"
	"errors"

	"telegram-channel-relay/internal/domain"
	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/repository"
	"telegram-channel-relay/internal/infra/metrics"
)

var _ repository.Store = (*instrumentedStore)(nil)

// instrumentedStore counts every store call by driver, operation and status.
type instrumentedStore struct {
	inner  repository.Store
	driver string
}

func NewInstrumented(inner repository.Store, driver string) repository.Store {
	return &instrumentedStore{inner: inner, driver: driver}
}

func (s *instrumentedStore) observe(op string, err error) {
	// a missing binding is an answer, not a failure
	if errors.Is(err, domain.ErrNotFound) {
		err = nil
	}
	metrics.IncStoreOp(s.driver, op, err)
}

func (s *instrumentedStore) Save(ctx context.Context, b *model.ChannelBinding) error {
	err := s.inner.Save(ctx, b)
	s.observe("save", err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, groupID int64) (bool, error) {
	ok, err := s.inner.Delete(ctx, groupID)
	s.observe("delete", err)
	return ok, err
}

func (s *instrumentedStore) FindByGroup(ctx context.Context, groupID int64) (*model.ChannelBinding, error) {
	b, err := s.inner.FindByGroup(ctx, groupID)
	s.observe("find", err)
	return b, err
}

func (s *instrumentedStore) ListAll(ctx context.Context) ([]model.ChannelBinding, error) {
	all, err := s.inner.ListAll(ctx)
	s.observe("list", err)
	return all, err
}

func (s *instrumentedStore) Get(ctx context.Context, channel string) (int64, error) {
	seq, err := s.inner.Get(ctx, channel)
	s.observe("cursor_get", err)
	return seq, err
}

func (s *instrumentedStore) Init(ctx context.Context, channel string) error {
	err := s.inner.Init(ctx, channel)
	s.observe("cursor_init", err)
	return err
}

func (s *instrumentedStore) Advance(ctx context.Context, channel string, seq int64) (bool, error) {
	moved, err := s.inner.Advance(ctx, channel, seq)
	s.observe("cursor_advance", err)
	if err == nil && moved {
		metrics.SetCursor(channel, seq)
	}
	return moved, err
}

func (s *instrumentedStore) Close() error { return s.inner.Close() }
