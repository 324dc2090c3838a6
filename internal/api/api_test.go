package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propertygpt/internal/common/config"
	"propertygpt/internal/common/logger"
	"propertygpt/internal/conversation"
	"propertygpt/internal/models"
)

type stubProperties struct {
	properties []models.Property
	total      int64
	err        error
	lastQuery  models.ExtractedEntities
}

func (s *stubProperties) Search(ctx context.Context, entities models.ExtractedEntities) ([]models.Property, int64, error) {
	s.lastQuery = entities
	return s.properties, s.total, s.err
}

type stubMarket struct {
	analysis *models.MarketAnalysis
	err      error
	calls    int
}

func (s *stubMarket) Generate(ctx context.Context, location, timeframe string) (*models.MarketAnalysis, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.analysis != nil {
		return s.analysis, nil
	}
	return &models.MarketAnalysis{Location: location, Timeframe: timeframe}, nil
}

type stubCompliance struct {
	records []models.ComplianceRecord
	err     error
}

func (s *stubCompliance) Search(ctx context.Context, query string) ([]models.ComplianceRecord, error) {
	return s.records, s.err
}

type stubLeads struct {
	lead *models.Lead
	err  error
}

func (s *stubLeads) CreateLead(ctx context.Context, userID, utterance string, entities models.ExtractedEntities) (*models.Lead, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.lead != nil {
		return s.lead, nil
	}
	return &models.Lead{ID: "lead-1", UserID: userID, Notes: utterance, Entities: entities}, nil
}

// memStore keeps conversation state in memory for handler tests.
type memStore struct {
	messages []models.ConversationMessage
	contexts map[string]*models.ConversationContext
	saveErr  error
}

func newMemStore() *memStore {
	return &memStore{contexts: map[string]*models.ConversationContext{}}
}

func (m *memStore) SaveMessage(ctx context.Context, msg *models.ConversationMessage) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if msg.ID == "" {
		msg.ID = "msg-" + msg.Content
	}
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *memStore) RecentMessages(ctx context.Context, sessionID string, limit int) ([]models.ConversationMessage, error) {
	out := make([]models.ConversationMessage, 0)
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memStore) Context(ctx context.Context, sessionID string) (*models.ConversationContext, error) {
	if convCtx, ok := m.contexts[sessionID]; ok {
		return convCtx, nil
	}
	return models.NewConversationContext(), nil
}

func (m *memStore) UpdateContext(ctx context.Context, sessionID string, convCtx *models.ConversationContext) error {
	m.contexts[sessionID] = convCtx
	return nil
}

type testDeps struct {
	properties *stubProperties
	market     *stubMarket
	compliance *stubCompliance
	leads      *stubLeads
	store      *memStore
}

func newTestServer(t *testing.T) (*Server, *testDeps) {
	t.Helper()

	deps := &testDeps{
		properties: &stubProperties{total: 1, properties: []models.Property{{ID: "prop-1", Address: "123 Ocean Ave", Price: 950000}}},
		market:     &stubMarket{},
		compliance: &stubCompliance{records: []models.ComplianceRecord{{ID: "reg-1", Title: "Disclosure Requirements"}}},
		leads:      &stubLeads{},
		store:      newMemStore(),
	}

	log := logger.NewNoOpLogger()
	router := conversation.NewRouter(conversation.NewHeuristicClassifier(), log)
	dispatcher := NewDispatcher(deps.properties, deps.market, deps.compliance, deps.leads, log)
	chat := NewChatHandler(router, dispatcher, deps.store, log)
	market := NewMarketHandler(deps.market, log)

	server := NewServer(config.ServerConfig{Address: ":0"}, chat, market, nil, log)
	return server, deps
}

func postChat(t *testing.T, server *Server, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func TestChat_PropertySearchTurn(t *testing.T) {
	server, deps := newTestServer(t)

	w := postChat(t, server, map[string]interface{}{
		"session_id": "session-1",
		"user_id":    "user-1",
		"message":    "Find me a 3 bedroom home",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, models.IntentPropertySearch, resp.Intent)
	assert.NotEmpty(t, resp.ResponseText)
	require.Len(t, resp.RichContent, 1)
	assert.Equal(t, models.RichPropertyGrid, resp.RichContent[0].Type)
	assert.Len(t, resp.AnticipatoryActions, 2)

	// Both sides of the turn are persisted.
	require.Len(t, deps.store.messages, 2)
	assert.Equal(t, models.SenderUser, deps.store.messages[0].Sender)
	assert.Equal(t, models.SenderAI, deps.store.messages[1].Sender)

	// The turn's intent is merged into the session context.
	convCtx := deps.store.contexts["session-1"]
	require.NotNil(t, convCtx)
	assert.Equal(t, []string{"property_search"}, convCtx.UserIntent)
}

func TestChat_PredictionsAugmentResponse(t *testing.T) {
	server, _ := newTestServer(t)

	w := postChat(t, server, map[string]interface{}{
		"session_id": "session-1",
		"user_id":    "user-1",
		"message":    "I'm looking for a condo",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	found := false
	for _, p := range resp.FollowUpPredictions {
		if p.Confidence == 0.85 && p.Category == string(models.IntentPropertySearch) {
			found = true
		}
	}
	assert.True(t, found, "expected the anticipatory property_search prediction")
}

func TestChat_MissingFields(t *testing.T) {
	server, _ := newTestServer(t)

	w := postChat(t, server, map[string]interface{}{
		"session_id": "session-1",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_HandlerFailureStillResponds(t *testing.T) {
	server, deps := newTestServer(t)
	deps.properties.err = errors.New("search cluster down")

	w := postChat(t, server, map[string]interface{}{
		"session_id": "session-1",
		"user_id":    "user-1",
		"message":    "Find me a 3 bedroom home",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, models.IntentPropertySearch, resp.Intent)
	assert.Empty(t, resp.RichContent)
	assert.NotEmpty(t, resp.ResponseText)
}

func TestChat_PersistenceFailureStillResponds(t *testing.T) {
	server, deps := newTestServer(t)
	deps.store.saveErr = errors.New("db down")

	w := postChat(t, server, map[string]interface{}{
		"session_id": "session-1",
		"user_id":    "user-1",
		"message":    "hello",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.IntentGeneralInquiry, resp.Intent)
}

func TestMarketEndpoint_Success(t *testing.T) {
	server, deps := newTestServer(t)
	deps.market.analysis = &models.MarketAnalysis{
		Location:  "Santa Monica",
		Timeframe: "6m",
		Summary:   models.MarketSummary{MedianPrice: 950000},
	}

	req := httptest.NewRequest("GET", "/api/market/analysis?location=Santa+Monica&timeframe=6m", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var analysis models.MarketAnalysis
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &analysis))
	assert.Equal(t, "Santa Monica", analysis.Location)
	assert.Equal(t, 950000.0, analysis.Summary.MedianPrice)
}

func TestMarketEndpoint_MissingLocation(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/market/analysis", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarketEndpoint_EngineFailureIsGeneric(t *testing.T) {
	server, deps := newTestServer(t)
	deps.market.err = errors.New("provider unreachable")

	req := httptest.NewRequest("GET", "/api/market/analysis?location=Downtown", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error": "analysis failed"}`, w.Body.String())
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDispatcher_MarketAnalysisFallsBackToSessionLocation(t *testing.T) {
	market := &stubMarket{}
	d := NewDispatcher(&stubProperties{}, market, &stubCompliance{}, &stubLeads{}, logger.NewNoOpLogger())

	convCtx := models.NewConversationContext()
	convCtx.ExtractedEntities.Location = "Venice"

	content := d.Dispatch(context.Background(), "user-1", "how is the market",
		&models.ConversationResponse{Intent: models.IntentMarketAnalysis}, convCtx)

	require.Len(t, content, 1)
	assert.Equal(t, 1, market.calls)
}

func TestDispatcher_MarketAnalysisWithoutLocationYieldsNothing(t *testing.T) {
	market := &stubMarket{}
	d := NewDispatcher(&stubProperties{}, market, &stubCompliance{}, &stubLeads{}, logger.NewNoOpLogger())

	content := d.Dispatch(context.Background(), "user-1", "how is the market",
		&models.ConversationResponse{Intent: models.IntentMarketAnalysis}, models.NewConversationContext())

	assert.Empty(t, content)
	assert.Equal(t, 0, market.calls)
}

func TestDispatcher_MergesSessionEntities(t *testing.T) {
	properties := &stubProperties{}
	d := NewDispatcher(properties, &stubMarket{}, &stubCompliance{}, &stubLeads{}, logger.NewNoOpLogger())

	convCtx := models.NewConversationContext()
	convCtx.ExtractedEntities.Location = "Santa Monica"
	convCtx.ExtractedEntities.Bedrooms = 3

	d.Dispatch(context.Background(), "user-1", "show me condos",
		&models.ConversationResponse{
			Intent:            models.IntentPropertySearch,
			ExtractedEntities: models.ExtractedEntities{PropertyType: "condo"},
		}, convCtx)

	assert.Equal(t, "Santa Monica", properties.lastQuery.Location)
	assert.Equal(t, 3, properties.lastQuery.Bedrooms)
	assert.Equal(t, "condo", properties.lastQuery.PropertyType)
}

func TestDispatcher_CRMActionCreatesLead(t *testing.T) {
	leads := &stubLeads{}
	d := NewDispatcher(&stubProperties{}, &stubMarket{}, &stubCompliance{}, leads, logger.NewNoOpLogger())

	content := d.Dispatch(context.Background(), "user-1", "add this buyer to my pipeline",
		&models.ConversationResponse{Intent: models.IntentCRMAction}, models.NewConversationContext())

	require.Len(t, content, 1)
	assert.Equal(t, models.RichLeadSummary, content[0].Type)
}
