// Package bigboost is the gateway to the BigBoost (BigDataCorp) query API.
// Every call goes through the same pipeline: rate limit admission, payload
// assembly with optional tags, the HTTP POST, then status inspection that
// turns provider failures into domain errors.
package bigboost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felipepmaragno/bigboost-gateway/internal/domain"
	"github.com/felipepmaragno/bigboost-gateway/internal/httputil"
	"github.com/felipepmaragno/bigboost-gateway/internal/metrics"
	"github.com/felipepmaragno/bigboost-gateway/internal/ratelimit"
	"github.com/felipepmaragno/bigboost-gateway/internal/tags"
	"github.com/felipepmaragno/bigboost-gateway/internal/telemetry"
)

const DefaultBaseURL = "https://plataforma.bigdatacorp.com.br"

const (
	EndpointPessoas  = "/pessoas"
	EndpointEmpresas = "/empresas"
)

// ProviderRateLimitWait is reported when the provider itself answers 429.
const ProviderRateLimitWait = 60 * time.Second

type Config struct {
	BaseURL     string
	AccessToken string
	TokenID     string
	HTTPClient  *http.Client
}

type Client struct {
	baseURL     string
	accessToken string
	tokenID     string
	client      *http.Client
	limiter     ratelimit.RateLimiter
	logger      *slog.Logger
}

// New builds a Client. A nil HTTPClient gets the provider defaults, a nil
// limiter the default token bucket, a nil logger slog.Default().
func New(cfg Config, limiter ratelimit.RateLimiter, logger *slog.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = httputil.DefaultClient()
	}
	if limiter == nil {
		limiter = ratelimit.NewTokenBucket(ratelimit.DefaultConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
		tokenID:     cfg.TokenID,
		client:      httpClient,
		limiter:     limiter,
		logger:      logger,
	}
}

// Query is the request body shared by every BigBoost dataset query.
type Query struct {
	Q          string `json:"q"`
	Datasets   string `json:"Datasets"`
	Limit      string `json:"Limit,omitempty"`
	DateFormat string `json:"dateformat,omitempty"`
}

type request struct {
	Query
	Tags map[string]string `json:"Tags,omitempty"`
}

// ExecuteQuery posts q to endpoint and returns the provider response
// untouched. Failures are reported as domain errors: RateLimitExceededError,
// ValidationError for bad tags, DatasetUnavailableError, ProviderStatusError
// or TransportError. Anything else (limiter backend, decoding) is returned
// wrapped as is.
func (c *Client) ExecuteQuery(ctx context.Context, endpoint string, q Query, queryTags map[string]string) (*Response, error) {
	ctx, span := telemetry.StartSpan(ctx, "bigboost.query")
	defer span.End()
	telemetry.AddQueryAttributes(span, endpoint, q.Datasets, len(queryTags))

	start := time.Now()
	resp, err := c.execute(ctx, endpoint, q, queryTags)
	elapsed := time.Since(start)

	metrics.RecordQuery(endpoint, q.Datasets, outcome(err), elapsed.Seconds())

	if err != nil {
		telemetry.AddErrorAttribute(span, err)
		c.logger.Warn("bigboost query failed",
			"endpoint", endpoint,
			"datasets", q.Datasets,
			"error", err,
			"latency_ms", elapsed.Milliseconds(),
		)
		return nil, err
	}

	telemetry.AddResponseAttributes(span, resp.StatusCode, resp.Envelope.QueryID)
	c.logger.Info("bigboost query completed",
		"endpoint", endpoint,
		"datasets", q.Datasets,
		"query_id", resp.Envelope.QueryID,
		"latency_ms", elapsed.Milliseconds(),
	)

	return resp, nil
}

func (c *Client) execute(ctx context.Context, endpoint string, q Query, queryTags map[string]string) (*Response, error) {
	allowed, err := c.limiter.Allow(ctx)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		wait, err := c.limiter.WaitTime(ctx)
		if err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		metrics.RecordRateLimitHit(metrics.SourceLocal)
		return nil, &domain.RateLimitExceededError{WaitTime: wait}
	}

	payload := request{Query: q}
	if queryTags != nil {
		if err := tags.Validate(queryTags); err != nil {
			return nil, err
		}
		payload.Tags = queryTags
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("AccessToken", c.accessToken)
	httpReq.Header.Set("TokenId", c.tokenID)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, &domain.TransportError{StatusCode: http.StatusInternalServerError, Message: err.Error()}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &domain.TransportError{StatusCode: httpResp.StatusCode, Message: err.Error()}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		if httpResp.StatusCode == http.StatusTooManyRequests {
			metrics.RecordRateLimitHit(metrics.SourceProvider)
			return nil, &domain.RateLimitExceededError{WaitTime: ProviderRateLimitWait}
		}
		return nil, &domain.TransportError{
			StatusCode: httpResp.StatusCode,
			Message:    upstreamMessage(raw, httpResp.StatusCode),
		}
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	statuses, err := env.Statuses()
	if err != nil {
		return nil, fmt.Errorf("decode response status: %w", err)
	}

	if entry, ok := findUnavailable(statuses); ok {
		dataset := entry.Dataset
		if dataset == "" {
			dataset = domain.UnknownDataset
		}
		return nil, &domain.DatasetUnavailableError{Dataset: dataset}
	}

	if err := domain.ProcessStatusCodes(statuses); err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       json.RawMessage(raw),
		Envelope:   env,
		Statuses:   statuses,
	}, nil
}

func findUnavailable(statuses []domain.StatusEntry) (domain.StatusEntry, bool) {
	for _, s := range statuses {
		if s.Message == domain.DatasetUnavailableMessage {
			return s, true
		}
	}
	return domain.StatusEntry{}, false
}

func upstreamMessage(raw []byte, statusCode int) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return fmt.Sprintf("Request failed with status code %d", statusCode)
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}

	var pse *domain.ProviderStatusError
	switch {
	case errors.As(err, &pse):
		metrics.RecordProviderError("provider_status", string(pse.Category))
		return "provider_status"
	case errors.Is(err, domain.ErrRateLimitExceeded):
		return "rate_limited"
	case errors.Is(err, domain.ErrDatasetUnavailable):
		metrics.RecordProviderError("dataset_unavailable", "none")
		return "dataset_unavailable"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrTransport):
		metrics.RecordProviderError("transport", "none")
		return "transport"
	default:
		return "error"
	}
}
