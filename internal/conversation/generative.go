package conversation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"propertygpt/internal/common/config"
	"propertygpt/internal/common/logger"
	"propertygpt/internal/common/ratelimit"
	"propertygpt/internal/models"
)

var (
	ErrGenAIRequestFailed = errors.New("GENAI_REQUEST_FAILED")
	ErrGenAITimeout       = errors.New("GENAI_TIMEOUT")
	ErrGenAIBadPayload    = errors.New("GENAI_BAD_PAYLOAD")
)

// GenerativeClassifier calls the structured-output backend. Every call is
// admitted through the sliding-window limiter before the HTTP request is
// issued.
type GenerativeClassifier struct {
	config  config.GenAIConfig
	client  *http.Client
	limiter *ratelimit.SlidingWindow
	schema  gojsonschema.JSONLoader
	logger  logger.Logger
}

func NewGenerativeClassifier(cfg config.GenAIConfig, limiter *ratelimit.SlidingWindow, log logger.Logger) *GenerativeClassifier {
	return &GenerativeClassifier{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Millisecond,
		},
		limiter: limiter,
		schema:  gojsonschema.NewStringLoader(resultSchema),
		logger:  log.WithFields(map[string]interface{}{"component": "generative-classifier"}),
	}
}

func (g *GenerativeClassifier) Name() string { return "generative" }

func (g *GenerativeClassifier) Classify(ctx context.Context, input string, convCtx *models.ConversationContext, history []models.ConversationMessage) (*models.ConversationResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenAITimeout, err)
	}

	requestBody := map[string]interface{}{
		"system_prompt": buildSystemPrompt(convCtx),
		"prompt":        buildConversationPrompt(input, history),
		"function": map[string]interface{}{
			"name":        functionName,
			"description": "Process real estate conversation with structured response",
			"parameters":  functionParameters,
		},
		"function_call": map[string]interface{}{"name": functionName},
	}
	body, _ := json.Marshal(requestBody)

	raw, err := g.post(ctx, body)
	if err != nil {
		return nil, err
	}

	result, err := g.parseArguments(raw)
	if err != nil {
		return nil, err
	}

	resp := formatResponse(result)
	g.logger.Info("utterance classified", map[string]interface{}{
		"intent":     string(resp.Intent),
		"confidence": resp.Confidence,
		"actions":    len(resp.AnticipatoryActions),
	})

	return resp, nil
}

// post issues the request with retries and exponential backoff. A fresh
// request is built per attempt because the body reader is consumed.
func (g *GenerativeClassifier) post(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= g.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrGenAITimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", g.config.BaseURL+"/api/ai/process-query", bytes.NewBuffer(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenAIRequestFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if g.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
		}

		resp, err := g.client.Do(req)
		if ctx.Err() != nil ||
			errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, context.Canceled) {
			return nil, ErrGenAITimeout
		}
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return data, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrGenAIRequestFailed, lastErr)
}

type genAIResult struct {
	Intent              string                     `json:"intent"`
	ExtractedEntities   models.ExtractedEntities   `json:"extracted_entities"`
	ResponseText        string                     `json:"response_text"`
	AnticipatoryActions []models.AnticipatedAction `json:"anticipatory_actions"`
	FollowUpPredictions []models.Prediction        `json:"follow_up_predictions"`
	Confidence          *float64                   `json:"confidence"`
}

// parseArguments extracts the function-call arguments from the backend
// envelope and validates their structure.
func (g *GenerativeClassifier) parseArguments(data []byte) (*genAIResult, error) {
	var envelope struct {
		FunctionCall *struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function_call"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrGenAIBadPayload, err)
	}
	if envelope.FunctionCall == nil || envelope.FunctionCall.Arguments == "" {
		return nil, fmt.Errorf("%w: no function call in response", ErrGenAIBadPayload)
	}

	validation, err := gojsonschema.Validate(g.schema, gojsonschema.NewStringLoader(envelope.FunctionCall.Arguments))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenAIBadPayload, err)
	}
	if !validation.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrGenAIBadPayload, validation.Errors()[0].String())
	}

	var result genAIResult
	if err := json.Unmarshal([]byte(envelope.FunctionCall.Arguments), &result); err != nil {
		return nil, fmt.Errorf("%w: decode arguments: %v", ErrGenAIBadPayload, err)
	}
	return &result, nil
}

// formatResponse coerces a lenient backend result into the response
// contract: unknown intents become general_inquiry, missing collections
// become empty, missing confidence becomes 0.5.
func formatResponse(result *genAIResult) *models.ConversationResponse {
	intent := models.Intent(result.Intent)
	if !models.ValidIntent(result.Intent) {
		intent = models.IntentGeneralInquiry
	}

	confidence := 0.5
	if result.Confidence != nil {
		confidence = *result.Confidence
	}

	actions := result.AnticipatoryActions
	if actions == nil {
		actions = []models.AnticipatedAction{}
	}

	predictions := result.FollowUpPredictions
	if predictions == nil {
		predictions = []models.Prediction{}
	}
	for i := range predictions {
		if predictions[i].Trigger == "" {
			predictions[i].Trigger = models.TriggerContextCue
		}
	}

	return &models.ConversationResponse{
		Intent:              intent,
		ResponseText:        result.ResponseText,
		ExtractedEntities:   result.ExtractedEntities,
		AnticipatoryActions: actions,
		FollowUpPredictions: predictions,
		Confidence:          confidence,
	}
}
