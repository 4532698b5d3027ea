package crm

import (
	"context"
	"net/http"
	"net/mail"

	"github.com/ums222/ClarityClaim-AI-sub001/internal/events"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/httputil"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

var demoRequiredFields = []string{"email", "full_name", "company"}

// DemoService accepts public demo requests and hands them to the CRM asynchronously
type DemoService struct {
	repo   Repository
	events events.Publisher
	logger *logger.Logger
}

// NewDemoService creates a new demo request service
func NewDemoService(repo Repository, publisher events.Publisher, log *logger.Logger) *DemoService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &DemoService{repo: repo, events: publisher, logger: log}
}

// CreateDemoRequest stores the request and publishes demo.requested. CRM delivery happens
// later and never affects the result.
func (s *DemoService) CreateDemoRequest(ctx context.Context, payload types.Payload) (*types.DemoRequest, error) {
	if missing := payload.Missing(demoRequiredFields...); len(missing) > 0 {
		return nil, types.NewMissingFieldsError(missing)
	}

	email := payload.String("email")
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, types.NewBadRequestError("Invalid email address")
	}

	req := &types.DemoRequest{
		Email:    email,
		FullName: payload.String("full_name"),
		Company:  payload.String("company"),
		Phone:    optional(payload, "phone"),
		Message:  optional(payload, "message"),
	}

	if err := s.repo.InsertDemoRequest(ctx, req); err != nil {
		return nil, types.NewInternalError("failed to store demo request", err)
	}

	if !s.events.Publish(ctx, events.New(events.DemoRequested, "", req)) {
		s.logger.WithContext(ctx).WithField("demo_request_id", req.ID).Warn("Demo request not queued for CRM sync")
	}

	return req, nil
}

// Methods returns the handlers of /api/demo-requests
func (s *DemoService) Methods() tenant.Methods {
	return tenant.Methods{Post: s.createDemoRequestHandler}
}

func (s *DemoService) createDemoRequestHandler(w http.ResponseWriter, r *http.Request) {
	payload, err := httputil.DecodePayload(r)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	req, err := s.CreateDemoRequest(r.Context(), payload)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusCreated, req)
}

func optional(p types.Payload, field string) *string {
	if v := p.String(field); v != "" {
		return &v
	}
	return nil
}
