package services

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/mock"

	"browser-monitor-worker/domain"
)

// Mocks
type MockPageFetcher struct {
	mock.Mock
}

func (m *MockPageFetcher) Fetch(ctx context.Context, url string) (*http.Response, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*http.Response), args.Error(1)
}

type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) InsertEntry(ctx context.Context, entry domain.ClassifiedEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockSeenStore struct {
	mock.Mock
}

func (m *MockSeenStore) MarkScraped(ctx context.Context, url string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, url, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSeenStore) ForgetScraped(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) UploadBytes(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, bucket, key, data, contentType)
	return args.String(0), args.Error(1)
}

type MockScrapeIndexer struct {
	mock.Mock
}

func (m *MockScrapeIndexer) IndexScrape(ctx context.Context, result domain.ScrapeResult, scrapedAt time.Time) error {
	args := m.Called(ctx, result, scrapedAt)
	return args.Error(0)
}

type MockSQSClient struct {
	mock.Mock
}

func (m *MockSQSClient) ReceiveMessages(ctx context.Context, queueURL string, maxMessages int32, waitTime int32) (*sqs.ReceiveMessageOutput, error) {
	args := m.Called(ctx, queueURL, maxMessages, waitTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sqs.ReceiveMessageOutput), args.Error(1)
}

func (m *MockSQSClient) DeleteMessage(ctx context.Context, queueURL string, receiptHandle *string) error {
	args := m.Called(ctx, queueURL, receiptHandle)
	return args.Error(0)
}

type MockStatusRepository struct {
	mock.Mock
}

func (m *MockStatusRepository) UpdateSessionStatus(ctx context.Context, sessionID, status, updatedAt string) error {
	args := m.Called(ctx, sessionID, status, updatedAt)
	return args.Error(0)
}

type MockHost struct {
	mock.Mock
}

func (m *MockHost) RequestRestart(ctx context.Context, reason string) {
	m.Called(ctx, reason)
}

// memorySink collects appended entries.
type memorySink struct {
	mu      sync.Mutex
	entries []string
}

func (s *memorySink) Append(entry string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
}

func (s *memorySink) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.entries...)
}

// Count returns how many entries carry the given kind.
func (s *memorySink) Count(kind domain.EntryKind) int {
	n := 0
	for _, e := range s.All() {
		if strings.Contains(e, " | "+string(kind)+" | ") {
			n++
		}
	}
	return n
}

// recordingRecorder keeps the structured entries.
type recordingRecorder struct {
	mu      sync.Mutex
	entries []domain.ClassifiedEntry
}

func (r *recordingRecorder) Record(entry domain.ClassifiedEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

func (r *recordingRecorder) All() []domain.ClassifiedEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.ClassifiedEntry(nil), r.entries...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type MockScrapeEnqueuer struct {
	mock.Mock
}

func (m *MockScrapeEnqueuer) Enqueue(url string) bool {
	args := m.Called(url)
	return args.Bool(0)
}

type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) OnEvent(ev domain.CapturedEvent) {
	m.Called(ev)
}
