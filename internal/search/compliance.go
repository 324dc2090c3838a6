package search

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	stderrors "propertygpt/internal/common/errors"
	"propertygpt/internal/common/logger"
	"propertygpt/internal/models"
)

// ComplianceSearcher runs full-text queries against the regulations index.
type ComplianceSearcher struct {
	client     *elasticsearch.Client
	index      string
	maxResults int
	logger     logger.Logger
}

func NewComplianceSearcher(client *elasticsearch.Client, index string, maxResults int, log logger.Logger) *ComplianceSearcher {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &ComplianceSearcher{
		client:     client,
		index:      index,
		maxResults: maxResults,
		logger:     log.WithFields(map[string]interface{}{"component": "compliance-search"}),
	}
}

// Search returns regulation records relevant to the utterance, best match
// first, with relevance scores attached.
func (s *ComplianceSearcher) Search(ctx context.Context, query string) ([]models.ComplianceRecord, error) {
	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^3", "summary^2", "category", "citation"},
				"type":   "best_fields",
			},
		},
	}
	body, _ := json.Marshal(queryBody)

	size := s.maxResults
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, stderrors.NewSearchQueryFailedError(s.index, err)
	}
	defer res.Body.Close()

	hits, total, err := decodeHits(res, s.index)
	if err != nil {
		return nil, err
	}

	records := make([]models.ComplianceRecord, 0, len(hits))
	for _, h := range hits {
		var record models.ComplianceRecord
		if err := json.Unmarshal(h.source, &record); err != nil {
			s.logger.Warn("skipping undecodable regulation record", map[string]interface{}{
				"index": s.index,
			})
			continue
		}
		record.Score = h.score
		records = append(records, record)
	}

	s.logger.Info("compliance search completed", map[string]interface{}{
		"totalHits": total,
		"returned":  len(records),
	})

	return records, nil
}
