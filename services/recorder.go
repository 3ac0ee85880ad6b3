package services

import (
	"context"

	"go.uber.org/zap"

	"browser-monitor-worker/domain"
	"browser-monitor-worker/logging"
)

const mirrorBufferSize = 256

// Consumer-side interfaces
type AppendSink interface {
	Append(entry string)
}

type EntryRepository interface {
	InsertEntry(ctx context.Context, entry domain.ClassifiedEntry) error
}

// Recorder writes entries to the log file and, when a repository is
// configured, copies them to the database in the background.
type Recorder struct {
	sink   AppendSink
	repo   EntryRepository
	mirror chan domain.ClassifiedEntry
	logger *zap.Logger
}

type RecorderOption func(*Recorder)

func WithEntryRepository(r EntryRepository) RecorderOption {
	return func(rec *Recorder) { rec.repo = r }
}

func WithRecorderLogger(l *zap.Logger) RecorderOption {
	return func(rec *Recorder) { rec.logger = l }
}

func NewRecorder(sink AppendSink, opts ...RecorderOption) *Recorder {
	r := &Recorder{sink: sink}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	if r.repo != nil {
		r.mirror = make(chan domain.ClassifiedEntry, mirrorBufferSize)
	}
	return r
}

// Record appends the entry synchronously; the database copy is best effort.
func (r *Recorder) Record(entry domain.ClassifiedEntry) {
	r.sink.Append(entry.Format())

	if r.mirror == nil {
		return
	}
	select {
	case r.mirror <- entry:
	default:
		r.logger.Warn("mirror buffer full, dropping database copy", zap.String("kind", string(entry.Kind)))
	}
}

// Run drains the mirror buffer until ctx is cancelled.
func (r *Recorder) Run(ctx context.Context) {
	if r.mirror == nil {
		<-ctx.Done()
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-r.mirror:
			if err := r.repo.InsertEntry(ctx, entry); err != nil {
				r.logger.Error("failed to mirror entry", zap.String("kind", string(entry.Kind)), zap.Error(err))
			}
		}
	}
}
