package services

import (
	"strings"

	"browser-monitor-worker/domain"
)

// Classifier decides what captured text is. The search marker wins over the
// http prefix, so search result URLs are recorded as queries, never scraped.
type Classifier struct {
	searchMarker string
	engineHost   string
}

func NewClassifier(searchMarker, engineHost string) *Classifier {
	if searchMarker == "" {
		searchMarker = domain.DefaultSearchMarker
	}
	if engineHost == "" {
		engineHost = domain.DefaultSearchEngineHost
	}
	return &Classifier{searchMarker: searchMarker, engineHost: engineHost}
}

func (c *Classifier) Classify(text string) domain.Action {
	if strings.TrimSpace(text) == "" {
		return domain.Action{Kind: domain.ActionIgnore}
	}

	if idx := strings.Index(text, c.searchMarker); idx >= 0 {
		query := queryValue(text[idx+len(c.searchMarker):])
		return domain.Action{
			Kind: domain.ActionSearchQuery,
			URL:  "https://" + c.engineHost + "/search?q=" + query,
		}
	}

	if strings.HasPrefix(text, "http") {
		return domain.Action{Kind: domain.ActionURL, URL: text}
	}

	return domain.Action{Kind: domain.ActionIgnore}
}

// queryValue returns the q parameter up to the next '&'; empty when absent.
func queryValue(s string) string {
	for _, sep := range []string{"?q=", "&q="} {
		if i := strings.Index(s, sep); i >= 0 {
			value := s[i+len(sep):]
			if end := strings.IndexByte(value, '&'); end >= 0 {
				value = value[:end]
			}
			return value
		}
	}
	return ""
}
