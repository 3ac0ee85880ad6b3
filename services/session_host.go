package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"browser-monitor-worker/domain"
	"browser-monitor-worker/logging"
)

type StatusRepository interface {
	UpdateSessionStatus(ctx context.Context, sessionID, status, updatedAt string) error
}

// SessionHost stands in for the platform host of the monitoring session.
// A restart rotates the session id and makes the session live again.
type SessionHost struct {
	mu        sync.Mutex
	sessionID string
	statuses  StatusRepository
	state     *WatchdogState
	clock     func() time.Time
	logger    *zap.Logger
}

type SessionHostOption func(*SessionHost)

func WithStatusRepository(r StatusRepository) SessionHostOption {
	return func(h *SessionHost) { h.statuses = r }
}

func WithSessionClock(clock func() time.Time) SessionHostOption {
	return func(h *SessionHost) { h.clock = clock }
}

func WithSessionLogger(l *zap.Logger) SessionHostOption {
	return func(h *SessionHost) { h.logger = l }
}

func NewSessionHost(state *WatchdogState, opts ...SessionHostOption) *SessionHost {
	h := &SessionHost{
		sessionID: uuid.NewString(),
		state:     state,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.OrNop(h.logger)
	return h
}

func (h *SessionHost) ID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sessionID
}

// Start marks the current session active.
func (h *SessionHost) Start(ctx context.Context) {
	id := h.ID()
	h.logger.Info("monitoring session started", zap.String("session_id", id))
	h.updateStatus(ctx, id, domain.StatusActive)
}

func (h *SessionHost) RequestRestart(ctx context.Context, reason string) {
	h.mu.Lock()
	previous := h.sessionID
	h.sessionID = uuid.NewString()
	current := h.sessionID
	h.mu.Unlock()

	h.logger.Warn("restarting monitoring session",
		zap.String("reason", reason),
		zap.String("previous_session_id", previous),
		zap.String("session_id", current),
	)

	h.updateStatus(ctx, previous, domain.StatusRestarted)
	h.updateStatus(ctx, current, domain.StatusActive)
	h.state.Touch(h.clock())
}

func (h *SessionHost) updateStatus(ctx context.Context, id, status string) {
	if h.statuses == nil {
		return
	}
	updatedAt := h.clock().UTC().Format(time.RFC3339)
	if err := h.statuses.UpdateSessionStatus(ctx, id, status, updatedAt); err != nil {
		h.logger.Error("failed to update session status", zap.String("session_id", id), zap.Error(err))
	}
}
