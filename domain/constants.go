package domain

const (
	// Log entry kinds
	KindURL          EntryKind = "URL"
	KindSearchQuery  EntryKind = "SEARCH_QUERY"
	KindScrapeResult EntryKind = "SCRAPE_RESULT"
	KindScrapeError  EntryKind = "SCRAPE_ERROR"

	// Capture event kinds
	EventTextChanged          EventKind = "TEXT_CHANGED"
	EventFocused              EventKind = "FOCUSED"
	EventWindowStateChanged   EventKind = "WINDOW_STATE_CHANGED"
	EventWindowContentChanged EventKind = "WINDOW_CONTENT_CHANGED"

	// Session statuses
	StatusActive    = "ACTIVE"
	StatusRestarted = "RESTARTED"

	// Redis Key Patterns
	RedisKeyScraped = "monitor:scraped:%s"

	DefaultDataFile         = "browser_data.txt"
	DefaultSearchMarker     = "google.com/search"
	DefaultSearchEngineHost = "www.google.com"
	DefaultUserAgent        = "Mozilla/5.0 (Android)"
	NoParagraphFound        = "No paragraph found"
	MaxParagraphLength      = 200
)

// DefaultMonitoredPackages are the browsers whose events are processed.
var DefaultMonitoredPackages = []string{
	"com.android.chrome",
	"org.mozilla.firefox",
	"com.opera.browser",
	"com.brave.browser",
	"com.microsoft.emmx",
	"com.sec.android.app.sbrowser",
}

// DefaultAddressBarIDs are the view ids of the browsers' URL fields.
var DefaultAddressBarIDs = []string{
	"com.android.chrome:id/url_bar",
	"org.mozilla.firefox:id/mozac_browser_toolbar_url_view",
	"com.opera.browser:id/url_field",
	"com.brave.browser:id/url_bar",
	"com.microsoft.emmx:id/url_bar",
	"com.sec.android.app.sbrowser:id/location_bar_edit_text",
}
