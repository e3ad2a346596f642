//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"telegram-channel-relay/internal/domain"
	"telegram-channel-relay/internal/usecase"
)

func TestRegistryUseCase(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()

	t.Run("bind should create a zero cursor", func(t *testing.T) {
		store := newFailingStore()
		uc := usecase.NewRegistryUseCase(store, store, logger)

		b, err := uc.Bind(ctx, -1, "FreeGamesNot")
		if err != nil {
			t.Fatalf("Bind failed: %v", err)
		}
		if b.Channel != "freegamesnot" {
			t.Errorf("channel should be normalized, got %s", b.Channel)
		}
		st, err := uc.Status(ctx, -1)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if st.LastSeq != 0 || st.Binding.Channel != "freegamesnot" {
			t.Errorf("unexpected status %+v", st)
		}
	})

	t.Run("rebinding should overwrite and keep existing cursors", func(t *testing.T) {
		store := newFailingStore()
		uc := usecase.NewRegistryUseCase(store, store, logger)

		_, _ = uc.Bind(ctx, -1, "first_channel")
		_, _ = store.Advance(ctx, "second_channel", 40)
		if _, err := uc.Bind(ctx, -1, "second_channel"); err != nil {
			t.Fatalf("Bind failed: %v", err)
		}

		all, _ := uc.LookupAll(ctx)
		if len(all) != 1 || all[0].Channel != "second_channel" {
			t.Fatalf("expected a single overwritten binding, got %+v", all)
		}
		st, _ := uc.Status(ctx, -1)
		if st.LastSeq != 40 {
			t.Errorf("existing cursor should be kept, got %d", st.LastSeq)
		}
	})

	t.Run("invalid channel should not mutate the registry", func(t *testing.T) {
		store := newFailingStore()
		uc := usecase.NewRegistryUseCase(store, store, logger)

		for _, name := range []string{"", "@freegamesnot", "x"} {
			if _, err := uc.Bind(ctx, -1, name); !errors.Is(err, domain.ErrInvalidChannelName) {
				t.Errorf("Bind(%q): expected ErrInvalidChannelName, got %v", name, err)
			}
		}
		if all, _ := uc.LookupAll(ctx); len(all) != 0 {
			t.Errorf("registry should be empty, got %+v", all)
		}
	})

	t.Run("cursor init failure should not save the binding", func(t *testing.T) {
		store := newFailingStore()
		store.initErr = errBoom
		uc := usecase.NewRegistryUseCase(store, store, logger)

		if _, err := uc.Bind(ctx, -1, "freegamesnot"); !errors.Is(err, errBoom) {
			t.Fatalf("expected errBoom, got %v", err)
		}
		if all, _ := uc.LookupAll(ctx); len(all) != 0 {
			t.Errorf("binding saved despite cursor failure: %+v", all)
		}
	})

	t.Run("unbind and status", func(t *testing.T) {
		store := newFailingStore()
		uc := usecase.NewRegistryUseCase(store, store, logger)

		_, _ = uc.Bind(ctx, -1, "freegamesnot")
		existed, err := uc.Unbind(ctx, -1)
		if err != nil || !existed {
			t.Fatalf("Unbind should remove the binding, got %v (%v)", existed, err)
		}
		if _, err := uc.Status(ctx, -1); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound after unbind, got %v", err)
		}
		existed, _ = uc.Unbind(ctx, -1)
		if existed {
			t.Error("second unbind should report nothing removed")
		}
	})
}
