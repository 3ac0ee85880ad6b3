package services

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"browser-monitor-worker/domain"
	"browser-monitor-worker/logging"
)

type ScrapeEnqueuer interface {
	Enqueue(url string) bool
}

// EventRouter turns captured UI events into log entries and scrape requests.
// OnEvent runs on the caller's goroutine and never blocks on the network.
type EventRouter struct {
	packages      map[string]bool
	addressBarIDs []string
	maxDepth      int
	classifier    *Classifier
	walker        *TreeWalker
	recorder      EntryRecorder
	scraper       ScrapeEnqueuer
	watchdog      *WatchdogState
	clock         func() time.Time
	logger        *zap.Logger
}

type RouterOption func(*EventRouter)

func WithMonitoredPackages(packages []string) RouterOption {
	return func(r *EventRouter) {
		r.packages = make(map[string]bool, len(packages))
		for _, p := range packages {
			r.packages[p] = true
		}
	}
}

func WithAddressBarIDs(ids []string) RouterOption {
	return func(r *EventRouter) { r.addressBarIDs = ids }
}

func WithMaxDepth(depth int) RouterOption {
	return func(r *EventRouter) { r.maxDepth = depth }
}

func WithClassifier(c *Classifier) RouterOption {
	return func(r *EventRouter) { r.classifier = c }
}

func WithRouterClock(clock func() time.Time) RouterOption {
	return func(r *EventRouter) { r.clock = clock }
}

func WithRouterLogger(l *zap.Logger) RouterOption {
	return func(r *EventRouter) { r.logger = l }
}

func NewEventRouter(recorder EntryRecorder, scraper ScrapeEnqueuer, watchdog *WatchdogState, opts ...RouterOption) *EventRouter {
	r := &EventRouter{
		recorder: recorder,
		scraper:  scraper,
		watchdog: watchdog,
		maxDepth: DefaultMaxDepth,
		clock:    time.Now,
	}
	WithMonitoredPackages(domain.DefaultMonitoredPackages)(r)
	WithAddressBarIDs(domain.DefaultAddressBarIDs)(r)
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	if r.classifier == nil {
		r.classifier = NewClassifier("", "")
	}
	r.walker = NewTreeWalker(r.logger)
	return r
}

func (r *EventRouter) OnEvent(ev domain.CapturedEvent) {
	r.watchdog.Touch(r.clock())

	if !r.packages[ev.SourceApplication] {
		return
	}

	switch ev.Kind {
	case domain.EventTextChanged, domain.EventFocused:
		r.handleText(ev.Text)
	case domain.EventWindowStateChanged, domain.EventWindowContentChanged:
		r.handleTree(ev.Root)
	default:
		r.logger.Debug("ignoring event kind", zap.String("kind", string(ev.Kind)))
	}
}

func (r *EventRouter) handleTree(root domain.Node) {
	if root == nil {
		r.logger.Debug("window event without root node")
		return
	}
	defer root.Release()

	if text, ok := r.walker.FindByViewID(root, r.addressBarIDs, r.maxDepth); ok && strings.HasPrefix(text, "http") {
		r.handleText(text)
		return
	}

	for text := range r.walker.Walk(root, r.maxDepth) {
		r.handleText(text)
	}
}

func (r *EventRouter) handleText(text string) {
	action := r.classifier.Classify(text)

	switch action.Kind {
	case domain.ActionURL:
		r.record(domain.KindURL, action.URL)
		// The URL entry is written before the scrape can start.
		r.scraper.Enqueue(action.URL)
	case domain.ActionSearchQuery:
		r.record(domain.KindSearchQuery, action.URL)
	default:
		r.logger.Debug("ignoring text", zap.Int("length", len(text)))
	}
}

func (r *EventRouter) record(kind domain.EntryKind, url string) {
	r.recorder.Record(domain.ClassifiedEntry{
		Timestamp:  r.clock(),
		Kind:       kind,
		SubjectURL: url,
		Payload:    url,
	})
}
