package usecase

import (
	"context"
	"errors"
	"fmt"

	"telegram-channel-relay/internal/domain"
	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ RegistryUseCase = (*registryUC)(nil)

// BindingStatus is a group's binding together with its channel cursor.
type BindingStatus struct {
	Binding model.ChannelBinding
	LastSeq int64
}

type RegistryUseCase interface {
	// Bind points groupID at channel, replacing any earlier binding of the group.
	// The channel's cursor is created at 0 when absent.
	Bind(ctx context.Context, groupID int64, channel string) (*model.ChannelBinding, error)
	// Unbind removes the group's binding. It reports whether one existed.
	Unbind(ctx context.Context, groupID int64) (bool, error)
	// Status returns domain.ErrNotFound when the group is not bound.
	Status(ctx context.Context, groupID int64) (*BindingStatus, error)
	// LookupAll returns a snapshot of every binding.
	LookupAll(ctx context.Context) ([]model.ChannelBinding, error)
}

type registryUC struct {
	bindings repository.BindingRepository
	cursors  repository.CursorRepository
	log      *zerolog.Logger
}

func NewRegistryUseCase(bindings repository.BindingRepository, cursors repository.CursorRepository, logger *zerolog.Logger) RegistryUseCase {
	l := logger.With().Str("component", "RegistryUC").Logger()
	return &registryUC{bindings: bindings, cursors: cursors, log: &l}
}

func (uc *registryUC) Bind(ctx context.Context, groupID int64, channel string) (*model.ChannelBinding, error) {
	b, err := model.NewChannelBinding(groupID, channel)
	if err != nil {
		return nil, err
	}
	// cursor first: a tick must never see a binding without a cursor entry
	if err := uc.cursors.Init(ctx, b.Channel); err != nil {
		return nil, fmt.Errorf("init cursor for %s: %w", b.Channel, err)
	}
	if err := uc.bindings.Save(ctx, b); err != nil {
		return nil, fmt.Errorf("save binding: %w", err)
	}
	uc.log.Info().Int64("group_id", groupID).Str("channel", b.Channel).Msg("group bound to channel")
	return b, nil
}

func (uc *registryUC) Unbind(ctx context.Context, groupID int64) (bool, error) {
	existed, err := uc.bindings.Delete(ctx, groupID)
	if err != nil {
		return false, fmt.Errorf("delete binding: %w", err)
	}
	if existed {
		uc.log.Info().Int64("group_id", groupID).Msg("group unbound")
	}
	return existed, nil
}

func (uc *registryUC) Status(ctx context.Context, groupID int64) (*BindingStatus, error) {
	b, err := uc.bindings.FindByGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find binding: %w", err)
	}
	seq, err := uc.cursors.Get(ctx, b.Channel)
	if err != nil {
		return nil, fmt.Errorf("read cursor: %w", err)
	}
	return &BindingStatus{Binding: *b, LastSeq: seq}, nil
}

func (uc *registryUC) LookupAll(ctx context.Context) ([]model.ChannelBinding, error) {
	return uc.bindings.ListAll(ctx)
}
