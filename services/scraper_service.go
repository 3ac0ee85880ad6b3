package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"browser-monitor-worker/domain"
	"browser-monitor-worker/logging"
)

const (
	taskQueueSize = 16
	maxBodyBytes  = 2 << 20
)

var ErrUnexpectedStatus = errors.New("unexpected status code")

// Consumer-side interfaces
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*http.Response, error)
}

type EntryRecorder interface {
	Record(entry domain.ClassifiedEntry)
}

type SeenStore interface {
	MarkScraped(ctx context.Context, url string, ttl time.Duration) (bool, error)
	ForgetScraped(ctx context.Context, url string) error
}

type SnapshotStore interface {
	UploadBytes(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
}

type ScrapeIndexer interface {
	IndexScrape(ctx context.Context, result domain.ScrapeResult, scrapedAt time.Time) error
}

// ScraperService admits at most one URL per interval and scrapes admitted
// URLs one at a time on the goroutine running Run.
type ScraperService struct {
	pageFetcher    PageFetcher
	recorder       EntryRecorder
	seenStore      SeenStore
	seenTTL        time.Duration
	snapshotStore  SnapshotStore
	snapshotBucket string
	indexer        ScrapeIndexer

	interval   time.Duration
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	tasks      chan domain.ScrapeTask
	clock      func() time.Time
	logger     *zap.Logger
}

// Functional Options Pattern
type ScraperOption func(*ScraperService)

func WithPageFetcher(f PageFetcher) ScraperOption {
	return func(s *ScraperService) { s.pageFetcher = f }
}

func WithRecorder(r EntryRecorder) ScraperOption {
	return func(s *ScraperService) { s.recorder = r }
}

func WithSeenStore(store SeenStore, ttl time.Duration) ScraperOption {
	return func(s *ScraperService) {
		s.seenStore = store
		s.seenTTL = ttl
	}
}

func WithSnapshotStore(store SnapshotStore, bucket string) ScraperOption {
	return func(s *ScraperService) {
		s.snapshotStore = store
		s.snapshotBucket = bucket
	}
}

func WithScrapeIndexer(i ScrapeIndexer) ScraperOption {
	return func(s *ScraperService) { s.indexer = i }
}

func WithScrapeInterval(d time.Duration) ScraperOption {
	return func(s *ScraperService) { s.interval = d }
}

func WithRetryPolicy(maxRetries int, backoff time.Duration) ScraperOption {
	return func(s *ScraperService) {
		s.maxRetries = maxRetries
		s.backoff = backoff
	}
}

func WithScraperClock(clock func() time.Time) ScraperOption {
	return func(s *ScraperService) { s.clock = clock }
}

func WithScraperLogger(l *zap.Logger) ScraperOption {
	return func(s *ScraperService) { s.logger = l }
}

func NewScraperService(opts ...ScraperOption) *ScraperService {
	s := &ScraperService{
		interval:   10 * time.Second,
		maxRetries: 3,
		backoff:    time.Second,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxRetries < 1 {
		s.maxRetries = 1
	}
	s.logger = logging.OrNop(s.logger)
	s.limiter = rate.NewLimiter(rate.Every(s.interval), 1)
	s.tasks = make(chan domain.ScrapeTask, taskQueueSize)
	return s
}

// Enqueue admits url when the previous admission is at least one interval
// old. The admission slot is consumed before any network activity. It never
// blocks and reports whether the URL was queued.
func (s *ScraperService) Enqueue(url string) bool {
	now := s.clock()
	if !s.limiter.AllowN(now, 1) {
		s.logger.Debug("scrape rate limited", zap.String("url", url))
		return false
	}

	task := domain.ScrapeTask{URL: url, AttemptsRemaining: s.maxRetries, EnqueuedAt: now}
	select {
	case s.tasks <- task:
		s.logger.Info("scrape queued", zap.String("url", url))
		return true
	default:
		s.logger.Warn("scrape queue full, dropping url", zap.String("url", url))
		return false
	}
}

// Run processes queued tasks until ctx is cancelled; tasks still queued at
// that point are dropped.
func (s *ScraperService) Run(ctx context.Context) {
	s.logger.Info("scrape worker started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scrape worker stopped", zap.Int("dropped", len(s.tasks)))
			return
		case task := <-s.tasks:
			s.process(ctx, task)
		}
	}
}

func (s *ScraperService) process(ctx context.Context, task domain.ScrapeTask) {
	if s.seenStore != nil {
		first, err := s.seenStore.MarkScraped(ctx, task.URL, s.seenTTL)
		if err != nil {
			s.logger.Warn("seen check failed, scraping anyway", zap.String("url", task.URL), zap.Error(err))
		} else if !first {
			s.logger.Info("url already scraped, skipping", zap.String("url", task.URL))
			return
		}
	}

	for task.AttemptsRemaining > 0 {
		task.AttemptsRemaining--

		result, err := s.scrape(ctx, task.URL)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			s.recordResult(ctx, result)
			return
		}

		s.logger.Warn("scrape attempt failed",
			zap.String("url", task.URL),
			zap.Int("attempts_remaining", task.AttemptsRemaining),
			zap.Error(err),
		)
		if task.AttemptsRemaining == 0 {
			s.recordFailure(ctx, task.URL, err)
			return
		}
		if !s.wait(ctx) {
			s.logger.Info("scrape cancelled during backoff", zap.String("url", task.URL))
			return
		}
	}
}

// wait sleeps for the backoff delay and returns false when ctx is cancelled first.
func (s *ScraperService) wait(ctx context.Context) bool {
	timer := time.NewTimer(s.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *ScraperService) recordResult(ctx context.Context, result domain.ScrapeResult) {
	now := s.clock()
	s.recorder.Record(domain.ClassifiedEntry{
		Timestamp:  now,
		Kind:       domain.KindScrapeResult,
		SubjectURL: result.URL,
		Payload:    result.Payload(),
	})

	if s.indexer != nil {
		if err := s.indexer.IndexScrape(ctx, result, now); err != nil {
			s.logger.Error("failed to index scrape result", zap.String("url", result.URL), zap.Error(err))
		}
	}
}

func (s *ScraperService) recordFailure(ctx context.Context, url string, cause error) {
	s.recorder.Record(domain.ClassifiedEntry{
		Timestamp:  s.clock(),
		Kind:       domain.KindScrapeError,
		SubjectURL: url,
		Payload:    cause.Error(),
	})

	// A failed URL may be tried again on its next capture.
	if s.seenStore != nil {
		if err := s.seenStore.ForgetScraped(ctx, url); err != nil {
			s.logger.Warn("failed to clear seen marker", zap.String("url", url), zap.Error(err))
		}
	}
}

func (s *ScraperService) scrape(ctx context.Context, url string) (domain.ScrapeResult, error) {
	resp, err := s.pageFetcher.Fetch(ctx, url)
	if err != nil {
		return domain.ScrapeResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ScrapeResult{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.ScrapeResult{}, fmt.Errorf("failed to read body: %w", err)
	}

	s.snapshot(ctx, url, body)

	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return domain.ScrapeResult{}, fmt.Errorf("failed to parse html: %w", err)
	}
	return extractSummary(url, goquery.NewDocumentFromNode(root)), nil
}

func (s *ScraperService) snapshot(ctx context.Context, url string, body []byte) {
	if s.snapshotStore == nil || s.snapshotBucket == "" {
		return
	}
	key := fmt.Sprintf("snapshots/%s.html", uuid.NewString())
	location, err := s.snapshotStore.UploadBytes(ctx, s.snapshotBucket, key, body, "text/html")
	if err != nil {
		s.logger.Warn("failed to upload page snapshot", zap.String("url", url), zap.Error(err))
		return
	}
	s.logger.Debug("stored page snapshot", zap.String("url", url), zap.String("location", location))
}

// extractSummary takes the title and the first paragraph, falling back to
// the meta description and then to a fixed sentinel.
func extractSummary(url string, doc *goquery.Document) domain.ScrapeResult {
	result := domain.ScrapeResult{
		URL:       url,
		Title:     collapseSpace(doc.Find("title").First().Text()),
		Paragraph: domain.NoParagraphFound,
	}

	if p := doc.Find("p").First(); p.Length() > 0 {
		if text := collapseSpace(p.Text()); text != "" {
			result.Paragraph = truncateRunes(text, domain.MaxParagraphLength)
			return result
		}
	}

	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	if desc = collapseSpace(desc); desc != "" {
		result.Paragraph = desc
	}
	return result
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
