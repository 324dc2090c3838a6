package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"propertygpt/internal/common/logger"
)

var (
	ErrProviderFetchFailed = errors.New("PROVIDER_FETCH_FAILED")
	ErrProviderTimeout     = errors.New("PROVIDER_TIMEOUT")
)

// Config holds settings for the HTTP market data provider.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// HTTPProvider fetches market data over HTTP with retry and exponential
// backoff. A caller-side timeout aborting the fetch is reported as a
// provider timeout.
type HTTPProvider struct {
	config *Config
	client *http.Client
	logger logger.Logger
}

func NewHTTPProvider(config *Config, log logger.Logger) *HTTPProvider {
	return &HTTPProvider{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.WithFields(map[string]interface{}{"component": "market-data-provider"}),
	}
}

func (p *HTTPProvider) GetMarketData(ctx context.Context, location, timeframe string) (*RawMarketData, error) {
	endpoint := fmt.Sprintf("%s/api/market/data?location=%s&timeframe=%s",
		p.config.BaseURL, url.QueryEscape(location), url.QueryEscape(timeframe))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFetchFailed, err)
	}
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ErrProviderTimeout
			}
		}

		resp, lastErr = p.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			return nil, ErrProviderTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFetchFailed, lastErr)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: no successful response after retries", ErrProviderFetchFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrProviderFetchFailed, err)
	}

	raw, err := Normalize(body, location, timeframe)
	if err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrProviderFetchFailed, err)
	}

	p.logger.Debug("market data fetched", map[string]interface{}{
		"location":     location,
		"timeframe":    timeframe,
		"pricePeriods": len(raw.PriceHistory),
	})

	return raw, nil
}
