package sched

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"telegram-channel-relay/internal/infra/metrics"
	"telegram-channel-relay/internal/usecase"
)

const tickLockName = "forward_tick"

// Locker guards a tick across replicas sharing one store.
type Locker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (string, error)
	Unlock(ctx context.Context, name, token string) error
}

// ForwardWorker runs a forward tick at start-up and then every interval.
// Ticks never overlap; a slow tick makes the ticker drop the missed beats.
// A failing or panicking tick is logged and the loop waits for the next beat.
type ForwardWorker struct {
	interval time.Duration
	forward  usecase.ForwardUseCase
	locker   Locker
	log      *zerolog.Logger
}

func NewForwardWorker(interval time.Duration, forward usecase.ForwardUseCase, logger *zerolog.Logger) *ForwardWorker {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	fwdLog := logger.With().Str("component", "ForwardWorker").Logger()
	return &ForwardWorker{
		interval: interval,
		forward:  forward,
		log:      &fwdLog,
	}
}

// WithLocker makes each tick run only while holding the shared tick lock.
func (w *ForwardWorker) WithLocker(l Locker) *ForwardWorker {
	w.locker = l
	return w
}

func (w *ForwardWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting forward worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping forward worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ForwardWorker) tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			metrics.ObserveTick("failed", time.Since(start), 0)
			w.log.Error().Interface("panic", rec).Bytes("stack", debug.Stack()).Msg("forward tick panicked")
		}
	}()

	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, tickLockName, w.interval)
		if err != nil {
			metrics.IncTickSkipped()
			w.log.Info().Err(err).Msg("tick lock not acquired, skipping")
			return
		}
		defer func() {
			if err := w.locker.Unlock(context.WithoutCancel(ctx), tickLockName, token); err != nil && !errors.Is(err, context.Canceled) {
				w.log.Warn().Err(err).Msg("release tick lock")
			}
		}()
	}

	report, err := w.forward.RunTick(ctx)
	result := tickResult(report, err)
	metrics.ObserveTick(result, report.Duration, report.Bindings)
	if err != nil {
		w.log.Error().Err(err).Str("tick_id", report.TickID).Msg("forward tick failed")
		return
	}
	for channel, n := range report.Forwarded {
		metrics.AddForwarded(channel, n)
	}
	for _, f := range report.Failures {
		metrics.IncBindingFailure(f.Stage)
	}

	ev := w.log.Info()
	if result != "ok" {
		ev = w.log.Warn()
	}
	ev.Str("tick_id", report.TickID).
		Int("bindings", report.Bindings).
		Int("forwarded", report.Total()).
		Int("failures", len(report.Failures)).
		Dur("took", report.Duration).
		Msg("forward tick finished")
}

func tickResult(report usecase.TickReport, err error) string {
	switch {
	case err != nil:
		return "failed"
	case len(report.Failures) > 0:
		return "partial"
	default:
		return "ok"
	}
}
