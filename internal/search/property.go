// Package search implements the property and compliance search handler
// collaborators on Elasticsearch. The dispatcher invokes these when the
// router classifies property_search or compliance_question turns.
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

const defaultMaxResults = 10

// PropertySearcher queries the property listings index using the entities
// extracted from the conversation.
type PropertySearcher struct {
	client     *elasticsearch.Client
	index      string
	maxResults int
	logger     logger.Logger
}

func NewPropertySearcher(client *elasticsearch.Client, index string, maxResults int, log logger.Logger) *PropertySearcher {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &PropertySearcher{
		client:     client,
		index:      index,
		maxResults: maxResults,
		logger:     log.WithFields(map[string]interface{}{"component": "property-search"}),
	}
}

// Search runs an entity-driven bool query and returns the matching listings
// plus the total hit count.
func (s *PropertySearcher) Search(ctx context.Context, entities models.ExtractedEntities) ([]models.Property, int64, error) {
	queryBody := buildPropertyQuery(entities)
	body, _ := json.Marshal(queryBody)

	size := s.maxResults
	req := esapi.SearchRequest{
		Index: []string{s.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, 0, stderrors.NewSearchQueryFailedError(s.index, ctx.Err())
		}
		return nil, 0, stderrors.NewSearchQueryFailedError(s.index, err)
	}
	defer res.Body.Close()

	hits, total, err := decodeHits(res, s.index)
	if err != nil {
		return nil, 0, err
	}

	properties := make([]models.Property, 0, len(hits))
	for _, hit := range hits {
		var p models.Property
		if err := json.Unmarshal(hit.source, &p); err != nil {
			s.logger.Warn("skipping undecodable listing", map[string]interface{}{
				"index": s.index,
			})
			continue
		}
		properties = append(properties, p)
	}

	s.logger.Info("property search completed", map[string]interface{}{
		"totalHits": total,
		"returned":  len(properties),
	})

	return properties, total, nil
}

// buildPropertyQuery maps extracted entities to a bool query. Absent entities
// contribute no clauses; an empty entity set matches everything.
func buildPropertyQuery(entities models.ExtractedEntities) map[string]interface{} {
	mustClauses := []interface{}{}
	filterClauses := []interface{}{}

	if entities.Location != "" {
		mustClauses = append(mustClauses, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  entities.Location,
				"fields": []string{"city^3", "neighborhood^2", "address", "zip_code"},
				"type":   "best_fields",
			},
		})
	}

	if entities.PropertyType != "" {
		filterClauses = append(filterClauses, map[string]interface{}{
			"term": map[string]interface{}{"property_type": entities.PropertyType},
		})
	}

	if entities.Bedrooms > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"bedrooms": map[string]interface{}{"gte": entities.Bedrooms},
			},
		})
	}

	if entities.Bathrooms > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{
				"bathrooms": map[string]interface{}{"gte": entities.Bathrooms},
			},
		})
	}

	if pr := entities.PriceRange; pr != nil {
		priceRange := map[string]interface{}{}
		if pr.Min > 0 {
			priceRange["gte"] = pr.Min
		}
		if pr.Max > 0 {
			priceRange["lte"] = pr.Max
		}
		if len(priceRange) > 0 {
			filterClauses = append(filterClauses, map[string]interface{}{
				"range": map[string]interface{}{"price": priceRange},
			})
		}
	}

	if len(entities.Features) > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{"features": entities.Features},
		})
	}

	boolQuery := map[string]interface{}{}
	if len(mustClauses) > 0 {
		boolQuery["must"] = mustClauses
	}
	if len(filterClauses) > 0 {
		boolQuery["filter"] = filterClauses
	}
	if len(boolQuery) == 0 {
		return map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
}
