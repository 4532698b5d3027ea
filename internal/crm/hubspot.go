package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ums222/ClarityClaim-AI-sub001/internal/events"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/monitoring"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const (
	contactsPath   = "/crm/v3/objects/contacts"
	defaultBaseURL = "https://api.hubapi.com"
	requestTimeout = 15 * time.Second
	leadSource     = "Website Demo Request"
)

type contactRequest struct {
	Properties map[string]string `json:"properties"`
}

// HubSpotSubscriber creates a HubSpot contact for every demo request
type HubSpotSubscriber struct {
	baseURL string
	token   string
	client  *http.Client
	metrics *monitoring.MetricsCollector
	logger  *logger.Logger
}

// NewHubSpotSubscriber creates a new subscriber. An empty token disables it.
func NewHubSpotSubscriber(baseURL, token string, metrics *monitoring.MetricsCollector, log *logger.Logger) *HubSpotSubscriber {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &HubSpotSubscriber{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: requestTimeout},
		metrics: metrics,
		logger:  log,
	}
}

// Enabled reports whether an access token is configured
func (h *HubSpotSubscriber) Enabled() bool {
	return h.token != ""
}

// Register subscribes h to demo requests on bus when enabled
func (h *HubSpotSubscriber) Register(bus *events.Bus) {
	if !h.Enabled() {
		h.logger.WithComponent("crm").Info("HubSpot sync disabled, no access token configured")
		return
	}
	bus.Subscribe(events.DemoRequested, h.Handle)
}

// Handle upserts the contact behind a demo.requested event. An existing contact is not an error.
func (h *HubSpotSubscriber) Handle(ctx context.Context, e events.Event) error {
	req, err := demoRequestFrom(e)
	if err != nil {
		return err
	}

	start := time.Now()
	status := "error"
	defer func() {
		if h.metrics != nil {
			h.metrics.RecordExternalCall("hubspot", "create_contact", status, time.Since(start))
		}
	}()

	body, err := json.Marshal(contactRequest{Properties: contactProperties(req)})
	if err != nil {
		return fmt.Errorf("failed to marshal contact: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+contactsPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+h.token)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("hubspot request failed: %w", err)
	}
	defer resp.Body.Close()
	status = strconv.Itoa(resp.StatusCode)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		h.logger.WithContext(ctx).WithField("demo_request_id", req.ID).Info("HubSpot contact created")
		return nil
	case resp.StatusCode == http.StatusConflict:
		h.logger.WithContext(ctx).WithField("demo_request_id", req.ID).Info("HubSpot contact already exists")
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("hubspot returned status %d: %s", resp.StatusCode, detail)
	}
}

func contactProperties(req *types.DemoRequest) map[string]string {
	first, last := splitName(req.FullName)
	props := map[string]string{
		"email":            req.Email,
		"firstname":        first,
		"lastname":         last,
		"company":          req.Company,
		"hs_lead_status":   "NEW",
		"lifecyclestage":   "lead",
		"lead_source_type": leadSource,
	}
	if req.Phone != nil && *req.Phone != "" {
		props["phone"] = *req.Phone
	}
	if req.Message != nil && *req.Message != "" {
		props["message"] = *req.Message
	}
	return props
}

// splitName puts the first word in firstname and the rest in lastname
func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func demoRequestFrom(e events.Event) (*types.DemoRequest, error) {
	switch d := e.Data.(type) {
	case *types.DemoRequest:
		return d, nil
	case types.DemoRequest:
		return &d, nil
	default:
		// events replayed from the broker arrive as decoded JSON
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return nil, fmt.Errorf("unexpected %s payload: %w", e.Type, err)
		}
		var req types.DemoRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, fmt.Errorf("unexpected %s payload: %w", e.Type, err)
		}
		return &req, nil
	}
}
