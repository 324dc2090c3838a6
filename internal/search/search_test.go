package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "propertygpt/internal/common/errors"
	"propertygpt/internal/common/logger"
	"propertygpt/internal/models"
)

func newESClient(t *testing.T, handler http.HandlerFunc) *elasticsearch.Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{server.URL},
	})
	require.NoError(t, err)
	return client
}

func searchResponse(t *testing.T, total int, sources ...interface{}) []byte {
	t.Helper()

	hits := make([]map[string]interface{}, 0, len(sources))
	for i, source := range sources {
		hits = append(hits, map[string]interface{}{
			"_score":  float64(len(sources) - i),
			"_source": source,
		})
	}

	body, err := json.Marshal(map[string]interface{}{
		"hits": map[string]interface{}{
			"total": map[string]interface{}{"value": total},
			"hits":  hits,
		},
	})
	require.NoError(t, err)
	return body
}

func TestBuildPropertyQuery(t *testing.T) {
	tests := []struct {
		name     string
		entities models.ExtractedEntities
		validate func(t *testing.T, query map[string]interface{})
	}{
		{
			name:     "no entities matches everything",
			entities: models.ExtractedEntities{},
			validate: func(t *testing.T, query map[string]interface{}) {
				q := query["query"].(map[string]interface{})
				assert.Contains(t, q, "match_all")
			},
		},
		{
			name:     "location becomes a must clause",
			entities: models.ExtractedEntities{Location: "Santa Monica"},
			validate: func(t *testing.T, query map[string]interface{}) {
				boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
				must := boolQuery["must"].([]interface{})
				require.Len(t, must, 1)
				multiMatch := must[0].(map[string]interface{})["multi_match"].(map[string]interface{})
				assert.Equal(t, "Santa Monica", multiMatch["query"])
			},
		},
		{
			name: "numeric entities become range filters",
			entities: models.ExtractedEntities{
				Bedrooms:   3,
				Bathrooms:  2,
				PriceRange: &models.PriceRange{Min: 500000, Max: 900000},
			},
			validate: func(t *testing.T, query map[string]interface{}) {
				boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
				filters := boolQuery["filter"].([]interface{})
				assert.Len(t, filters, 3)
			},
		},
		{
			name:     "property type becomes a term filter",
			entities: models.ExtractedEntities{PropertyType: "condo"},
			validate: func(t *testing.T, query map[string]interface{}) {
				boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
				filters := boolQuery["filter"].([]interface{})
				require.Len(t, filters, 1)
				term := filters[0].(map[string]interface{})["term"].(map[string]interface{})
				assert.Equal(t, "condo", term["property_type"])
			},
		},
		{
			name:     "features become a terms filter",
			entities: models.ExtractedEntities{Features: []string{"pool", "garage"}},
			validate: func(t *testing.T, query map[string]interface{}) {
				boolQuery := query["query"].(map[string]interface{})["bool"].(map[string]interface{})
				filters := boolQuery["filter"].([]interface{})
				require.Len(t, filters, 1)
				assert.Contains(t, filters[0].(map[string]interface{}), "terms")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := buildPropertyQuery(tt.entities)

			// Round-trip so nested types match what the wire carries.
			data, err := json.Marshal(query)
			require.NoError(t, err)
			var decoded map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &decoded))

			tt.validate(t, decoded)
		})
	}
}

func TestPropertySearch_Success(t *testing.T) {
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(searchResponse(t, 42,
			map[string]interface{}{
				"id":       "prop-1",
				"address":  "123 Ocean Ave",
				"city":     "Santa Monica",
				"price":    950000,
				"bedrooms": 3,
			},
			map[string]interface{}{
				"id":       "prop-2",
				"address":  "456 Main St",
				"city":     "Santa Monica",
				"price":    875000,
				"bedrooms": 3,
			},
		))
	})

	searcher := NewPropertySearcher(client, "properties", 10, logger.NewNoOpLogger())

	properties, total, err := searcher.Search(context.Background(), models.ExtractedEntities{
		Location: "Santa Monica",
		Bedrooms: 3,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), total)
	require.Len(t, properties, 2)
	assert.Equal(t, "prop-1", properties[0].ID)
	assert.Equal(t, 950000.0, properties[0].Price)
	assert.Equal(t, "456 Main St", properties[1].Address)
}

func TestPropertySearch_IndexNotFound(t *testing.T) {
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": {"type": "index_not_found_exception"}}`))
	})

	searcher := NewPropertySearcher(client, "missing", 10, logger.NewNoOpLogger())

	_, _, err := searcher.Search(context.Background(), models.ExtractedEntities{})

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeIndexNotFound, stderrors.CodeOf(err))
}

func TestPropertySearch_ServerError(t *testing.T) {
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "boom"}`))
	})

	searcher := NewPropertySearcher(client, "properties", 10, logger.NewNoOpLogger())

	_, _, err := searcher.Search(context.Background(), models.ExtractedEntities{})

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeSearchQueryFailed, stderrors.CodeOf(err))
}

func TestComplianceSearch_AttachesScores(t *testing.T) {
	client := newESClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(searchResponse(t, 2,
			map[string]interface{}{
				"id":      "reg-1",
				"title":   "Disclosure Requirements",
				"summary": "Sellers must disclose known material defects.",
			},
			map[string]interface{}{
				"id":      "reg-2",
				"title":   "Agency Disclosure",
				"summary": "Agents must disclose representation.",
			},
		))
	})

	searcher := NewComplianceSearcher(client, "regulations", 10, logger.NewNoOpLogger())

	records, err := searcher.Search(context.Background(), "disclosure law requirements")

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Disclosure Requirements", records[0].Title)
	assert.Greater(t, records[0].Score, records[1].Score)
}
