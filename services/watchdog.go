package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"browser-monitor-worker/logging"
)

// WatchdogState holds the time of the last captured event. The event router
// touches it; the watchdog reads it.
type WatchdogState struct {
	lastEventAt atomic.Int64
}

func NewWatchdogState(now time.Time) *WatchdogState {
	s := &WatchdogState{}
	s.Touch(now)
	return s
}

func (s *WatchdogState) Touch(t time.Time) {
	s.lastEventAt.Store(t.UnixNano())
}

func (s *WatchdogState) LastEventAt() time.Time {
	return time.Unix(0, s.lastEventAt.Load())
}

// HostSignal is the fire-and-forget restart request sent to the host.
type HostSignal interface {
	RequestRestart(ctx context.Context, reason string)
}

type Watchdog struct {
	state    *WatchdogState
	interval time.Duration
	host     HostSignal
	clock    func() time.Time
	logger   *zap.Logger
}

type WatchdogOption func(*Watchdog)

func WithWatchdogClock(clock func() time.Time) WatchdogOption {
	return func(w *Watchdog) { w.clock = clock }
}

func WithWatchdogLogger(l *zap.Logger) WatchdogOption {
	return func(w *Watchdog) { w.logger = l }
}

func NewWatchdog(state *WatchdogState, interval time.Duration, host HostSignal, opts ...WatchdogOption) *Watchdog {
	w := &Watchdog{
		state:    state,
		interval: interval,
		host:     host,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.OrNop(w.logger)
	return w
}

// Check asks the host for a restart when no event arrived for longer than
// the interval. It reports whether a restart was requested.
func (w *Watchdog) Check(ctx context.Context) bool {
	silence := w.clock().Sub(w.state.LastEventAt())
	if silence <= w.interval {
		return false
	}
	w.logger.Warn("no events received, restarting monitoring session", zap.Duration("silence", silence))
	w.host.RequestRestart(ctx, "no events for "+silence.Truncate(time.Second).String())
	return true
}

// Run checks once per interval until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}
