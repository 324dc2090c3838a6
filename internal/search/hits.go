package search

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8/esapi"

	stderrors "propertygpt/internal/common/errors"
)

type hit struct {
	score  float64
	source json.RawMessage
}

// decodeHits unwraps the standard search response envelope.
func decodeHits(res *esapi.Response, index string) ([]hit, int64, error) {
	if res.IsError() {
		if res.StatusCode == http.StatusNotFound {
			return nil, 0, &stderrors.StandardError{
				Code:      stderrors.ErrCodeIndexNotFound,
				Message:   "Search index not found",
				Details:   fmt.Sprintf("index: %s", index),
				Retryable: false,
			}
		}
		return nil, 0, stderrors.NewSearchQueryFailedError(index, fmt.Errorf("status %s", res.Status()))
	}

	var envelope struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, 0, stderrors.NewSearchQueryFailedError(index, err)
	}

	hits := make([]hit, 0, len(envelope.Hits.Hits))
	for _, h := range envelope.Hits.Hits {
		hits = append(hits, hit{score: h.Score, source: h.Source})
	}

	return hits, envelope.Hits.Total.Value, nil
}
