package domain

import (
	"fmt"
	"time"
)

type EventKind string

type EntryKind string

// CapturedEvent is a single UI event handed over by the host.
type CapturedEvent struct {
	SourceApplication string
	Kind              EventKind
	Text              string
	Root              Node // may be nil
}

// EventMessage is the wire form of a CapturedEvent (HTTP feed and SQS feed)
type EventMessage struct {
	SourceApplication string    `json:"source_application"`
	Kind              EventKind `json:"kind"`
	Text              string    `json:"text,omitempty"`
	Root              *Element  `json:"root,omitempty"`
}

// EventBatch is the body accepted by POST /events
type EventBatch struct {
	Events []EventMessage `json:"events"`
}

func (m EventMessage) ToCapturedEvent() CapturedEvent {
	ev := CapturedEvent{
		SourceApplication: m.SourceApplication,
		Kind:              m.Kind,
		Text:              m.Text,
	}
	// A nil *Element must not end up as a non-nil Node.
	if m.Root != nil {
		ev.Root = m.Root
	}
	return ev
}

// ClassifiedEntry is the unit written to the log file.
type ClassifiedEntry struct {
	Timestamp  time.Time
	Kind       EntryKind
	SubjectURL string
	Payload    string
}

// Format renders the entry in the log file layout.
func (e ClassifiedEntry) Format() string {
	ts := e.Timestamp.UTC().Format(time.RFC3339)
	switch e.Kind {
	case KindScrapeResult:
		return fmt.Sprintf("%s | %s | %s\n%s\n\n", ts, e.Kind, e.SubjectURL, e.Payload)
	case KindScrapeError:
		return fmt.Sprintf("%s | %s | Scrape Error: %s | %s\n\n", ts, e.Kind, e.SubjectURL, e.Payload)
	default:
		return fmt.Sprintf("%s | %s | %s\n", ts, e.Kind, e.Payload)
	}
}

// ScrapeTask is owned by the scrape worker queue.
type ScrapeTask struct {
	URL               string
	AttemptsRemaining int
	EnqueuedAt        time.Time
}

// ScrapeResult is the summary extracted from a fetched page
type ScrapeResult struct {
	URL       string
	Title     string
	Paragraph string
}

// Payload is the body of a SCRAPE_RESULT log entry.
func (r ScrapeResult) Payload() string {
	return fmt.Sprintf("Title: %s\nParagraph: %s", r.Title, r.Paragraph)
}

type ActionKind int

const (
	ActionIgnore ActionKind = iota
	ActionSearchQuery
	ActionURL
)

func (k ActionKind) String() string {
	return [...]string{"ignore", "search-query", "url"}[k]
}

// Action is the classifier decision; URL is empty for ActionIgnore.
type Action struct {
	Kind ActionKind
	URL  string
}
