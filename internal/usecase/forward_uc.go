package usecase

import (
	"context"
	"fmt"
	"time"

	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/adapter"
	"telegram-channel-relay/internal/domain/ports/repository"
	"telegram-channel-relay/internal/infra/logging"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ForwardUseCase = (*forwardUC)(nil)

// Failure stages reported per binding.
const (
	StageCursor  = "cursor"
	StageFetch   = "fetch"
	StageForward = "forward"
	StageAdvance = "advance"
)

// BindingFailure records why a binding was skipped for the rest of a tick.
type BindingFailure struct {
	GroupID int64
	Channel string
	Stage   string
	Err     error
}

// TickReport summarises one tick.
type TickReport struct {
	TickID    string
	Bindings  int
	Forwarded map[string]int // channel -> forwarded messages
	Failures  []BindingFailure
	Duration  time.Duration
}

// Total returns the number of messages forwarded across all channels.
func (r TickReport) Total() int {
	n := 0
	for _, c := range r.Forwarded {
		n += c
	}
	return n
}

type ForwardUseCase interface {
	// RunTick forwards new posts for every binding. Per-binding failures land in the
	// report; the returned error is only set when the binding snapshot itself fails.
	RunTick(ctx context.Context) (TickReport, error)
}

type forwardUC struct {
	bindings   repository.BindingRepository
	cursors    repository.CursorRepository
	bot        adapter.RelayBot
	fetchLimit int
	log        *zerolog.Logger
}

func NewForwardUseCase(
	bindings repository.BindingRepository,
	cursors repository.CursorRepository,
	bot adapter.RelayBot,
	fetchLimit int,
	logger *zerolog.Logger,
) ForwardUseCase {
	if fetchLimit <= 0 {
		fetchLimit = 10
	}
	l := logger.With().Str("component", "ForwardUC").Logger()
	return &forwardUC{
		bindings:   bindings,
		cursors:    cursors,
		bot:        bot,
		fetchLimit: fetchLimit,
		log:        &l,
	}
}

func (uc *forwardUC) RunTick(ctx context.Context) (TickReport, error) {
	start := time.Now()
	report := TickReport{TickID: ulid.Make().String(), Forwarded: map[string]int{}}
	ctx = logging.WithTickID(ctx, report.TickID)
	defer logging.TraceDuration(logging.With(ctx, uc.log), "ForwardUC.RunTick")()

	bindings, err := uc.bindings.ListAll(ctx)
	if err != nil {
		report.Duration = time.Since(start)
		return report, fmt.Errorf("snapshot bindings: %w", err)
	}
	report.Bindings = len(bindings)

	// Cursors are read once per channel before any I/O. Groups sharing a channel
	// all compare against the same starting point, and a failing group does not
	// hold the cursor back for the others.
	from := make(map[string]int64, len(bindings))
	cursorErr := make(map[string]error)
	for _, b := range bindings {
		if _, seen := from[b.Channel]; seen {
			continue
		}
		if _, failed := cursorErr[b.Channel]; failed {
			continue
		}
		seq, err := uc.cursors.Get(ctx, b.Channel)
		if err != nil {
			cursorErr[b.Channel] = err
			continue
		}
		from[b.Channel] = seq
	}

	for _, b := range bindings {
		if ctx.Err() != nil {
			break
		}
		bctx := logging.WithChannel(logging.WithGroupID(ctx, b.GroupID), b.Channel)
		l := logging.With(bctx, uc.log)

		if err, failed := cursorErr[b.Channel]; failed {
			report.Failures = append(report.Failures, BindingFailure{b.GroupID, b.Channel, StageCursor, err})
			l.Warn().Err(err).Msg("cursor unavailable, skipping binding")
			continue
		}

		n, failure := uc.relayBinding(bctx, b, from[b.Channel])
		if n > 0 {
			report.Forwarded[b.Channel] += n
		}
		if failure != nil {
			report.Failures = append(report.Failures, *failure)
			l.Warn().Err(failure.Err).Str("stage", failure.Stage).Int("forwarded", n).Msg("binding failed, continuing with next")
			continue
		}
		if n > 0 {
			l.Info().Int("forwarded", n).Msg("relayed new posts")
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

// relayBinding forwards, in ascending order, every fetched post newer than from.
// It stops at the first failure so a channel's posts never arrive out of order.
func (uc *forwardUC) relayBinding(ctx context.Context, b model.ChannelBinding, from int64) (int, *BindingFailure) {
	fetched, err := uc.bot.FetchRecentMessages(ctx, b.Channel, uc.fetchLimit)
	if err != nil {
		return 0, &BindingFailure{b.GroupID, b.Channel, StageFetch, err}
	}

	msgs := make([]model.ChannelMessage, len(fetched))
	copy(msgs, fetched)
	model.SortBySeq(msgs)

	last, forwarded := from, 0
	for _, m := range msgs {
		if m.Seq <= last {
			continue
		}
		if err := uc.bot.ForwardMessage(ctx, b.GroupID, m); err != nil {
			return forwarded, &BindingFailure{b.GroupID, b.Channel, StageForward, fmt.Errorf("forward message %d: %w", m.Seq, err)}
		}
		last = m.Seq
		forwarded++
		if _, err := uc.cursors.Advance(ctx, b.Channel, m.Seq); err != nil {
			return forwarded, &BindingFailure{b.GroupID, b.Channel, StageAdvance, fmt.Errorf("advance cursor to %d: %w", m.Seq, err)}
		}
	}
	return forwarded, nil
}
