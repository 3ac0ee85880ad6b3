package repositories

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*http.Response, error)
}

// HTTPPageFetcher issues plain GETs with a fixed client identifier.
type HTTPPageFetcher struct {
	client    *http.Client
	userAgent string
}

func NewPageFetcher(timeout time.Duration, userAgent string) PageFetcher {
	return &HTTPPageFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

func (pf *HTTPPageFetcher) Fetch(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", pf.userAgent)

	resp, err := pf.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %s: %w", url, err)
	}
	return resp, nil
}
