package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ums222/ClarityClaim-AI-sub001/pkg/monitoring"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const (
	denialRiskPath   = "/predict/denial-risk"
	appealLetterPath = "/generate/appeal-letter"

	// maxResponseBytes bounds what is read back from the inference service
	maxResponseBytes = 4 << 20
	defaultTimeout   = 60 * time.Second
	metricsTarget    = "ai"
)

// ErrNotConfigured is returned when no inference service base URL is set
var ErrNotConfigured = errors.New("ai service not configured")

// Predictor is the inference service as seen by the AI endpoints
type Predictor interface {
	Configured() bool
	PredictDenialRisk(ctx context.Context, claim *types.Claim) (json.RawMessage, error)
	GenerateAppealLetter(ctx context.Context, req *AppealLetterRequest) (json.RawMessage, error)
}

// AppealLetterRequest is the body sent to the appeal letter generator
type AppealLetterRequest struct {
	Claim  *types.Claim  `json:"claim"`
	Appeal *types.Appeal `json:"appeal,omitempty"`
}

// Client calls the external inference service over HTTP with a bearer key
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	metrics *monitoring.MetricsCollector
}

// NewClient creates a new inference client. An empty baseURL yields a client that reports
// ErrNotConfigured on every call.
func NewClient(baseURL, apiKey string, timeout time.Duration, metrics *monitoring.MetricsCollector) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		metrics: metrics,
	}
}

// Configured reports whether a base URL is set
func (c *Client) Configured() bool {
	return c.baseURL != ""
}

// PredictDenialRisk returns the raw denial-risk assessment for claim
func (c *Client) PredictDenialRisk(ctx context.Context, claim *types.Claim) (json.RawMessage, error) {
	return c.post(ctx, "denial_risk", denialRiskPath, claim)
}

// GenerateAppealLetter returns the raw appeal letter draft for req
func (c *Client) GenerateAppealLetter(ctx context.Context, req *AppealLetterRequest) (json.RawMessage, error) {
	return c.post(ctx, "appeal_letter", appealLetterPath, req)
}

func (c *Client) post(ctx context.Context, operation, path string, payload interface{}) (_ json.RawMessage, err error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	start := time.Now()
	status := "error"
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordExternalCall(metricsTarget, operation, status, time.Since(start))
		}
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, truncate(respBody, 200))
	}

	if !json.Valid(respBody) {
		return nil, fmt.Errorf("%s returned a non-JSON body", path)
	}

	return json.RawMessage(respBody), nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
