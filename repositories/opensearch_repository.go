package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"browser-monitor-worker/domain"
)

const scrapeIndex = "scraped_pages"

type OpenSearchRepository struct {
	client *opensearch.Client
}

func NewOpenSearchRepository(client *opensearch.Client) *OpenSearchRepository {
	return &OpenSearchRepository{client: client}
}

func (r *OpenSearchRepository) IndexScrape(ctx context.Context, result domain.ScrapeResult, scrapedAt time.Time) error {
	document := map[string]interface{}{
		"url":        result.URL,
		"title":      result.Title,
		"paragraph":  result.Paragraph,
		"scraped_at": scrapedAt.UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: scrapeIndex,
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, r.client)
	if err != nil {
		return fmt.Errorf("failed to execute index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	return nil
}
