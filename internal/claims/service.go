package claims

import (
	"context"
	"errors"
	"strings"

	"github.com/ums222/ClarityClaim-AI-sub001/internal/events"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const (
	msgNotFound        = "Claim not found"
	msgPatientNotFound = "Patient not found"
	msgDuplicate       = "A claim with this claim number already exists"
)

var (
	requiredFields = []string{"patient_id", "claim_number", "payer_name", "service_date", "billed_amount"}
	writableFields = []string{
		"patient_id",
		"claim_number",
		"payer_name",
		"service_date",
		"billed_amount",
		"paid_amount",
		"status",
		"denial_reason",
		"denial_code",
		"procedure_codes",
		"diagnosis_codes",
		"notes",
	}

	validStatuses = map[string]bool{
		string(types.ClaimStatusDraft):         true,
		string(types.ClaimStatusSubmitted):     true,
		string(types.ClaimStatusPending):       true,
		string(types.ClaimStatusDenied):        true,
		string(types.ClaimStatusAppealed):      true,
		string(types.ClaimStatusPaid):          true,
		string(types.ClaimStatusPartiallyPaid): true,
	}
)

// Service implements the claim resource for one organization at a time
type Service struct {
	repo     Repository
	patients PatientReader
	events   events.Publisher
	logger   *logger.Logger
}

// NewService creates a new claim service
func NewService(repo Repository, patients PatientReader, publisher events.Publisher, log *logger.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{repo: repo, patients: patients, events: publisher, logger: log}
}

// GetClaim returns one claim with its patient embedded
func (s *Service) GetClaim(ctx context.Context, p *types.Principal, id string) (*types.Claim, error) {
	claim, err := s.repo.Get(ctx, p.OrganizationID, id)
	if err != nil {
		return nil, classify(err, "failed to get claim")
	}

	patient, err := s.patients.Get(ctx, p.OrganizationID, claim.PatientID)
	switch {
	case err == nil:
		claim.Patient = patient
	case errors.Is(err, database.ErrNotFound):
	default:
		return nil, types.NewInternalError("failed to load claim patient", err)
	}

	return claim, nil
}

// ListClaims returns one page of the caller's claims, newest first
func (s *Service) ListClaims(ctx context.Context, p *types.Principal, params types.ListParams) ([]types.Claim, types.Pagination, error) {
	params.Normalize()

	items, total, err := s.repo.List(ctx, p.OrganizationID, params)
	if err != nil {
		return nil, types.Pagination{}, types.NewInternalError("failed to list claims", err)
	}

	return items, types.NewPagination(params.Page, params.Limit, total), nil
}

// CreateClaim validates payload, checks the patient belongs to the caller's organization
// and inserts the claim
func (s *Service) CreateClaim(ctx context.Context, p *types.Principal, payload types.Payload) (*types.Claim, error) {
	if missing := payload.Missing(requiredFields...); len(missing) > 0 {
		return nil, types.NewMissingFieldsError(missing)
	}

	values := payload.Strip(types.ProtectedFields...).Pick(writableFields...)
	if err := validate(values); err != nil {
		return nil, err
	}

	if err := s.checkPatient(ctx, p.OrganizationID, values.String("patient_id")); err != nil {
		return nil, err
	}

	if values.String("status") == "" {
		values["status"] = string(types.ClaimStatusSubmitted)
	}
	values["created_by"] = p.UserID

	claim, err := s.repo.Insert(ctx, p.OrganizationID, values)
	if err != nil {
		return nil, classify(err, "failed to create claim")
	}

	s.logger.Audit(ctx, "create", "claim", claim.ID, true, nil)
	s.events.Publish(ctx, events.New(events.ClaimCreated, p.OrganizationID, map[string]interface{}{
		"claim_id":      claim.ID,
		"patient_id":    claim.PatientID,
		"payer_name":    claim.PayerName,
		"billed_amount": claim.BilledAmount,
	}))

	return claim, nil
}

// UpdateClaim applies the writable fields of payload. Moving a claim to another patient
// requires that patient to belong to the caller's organization.
func (s *Service) UpdateClaim(ctx context.Context, p *types.Principal, id string, payload types.Payload) (*types.Claim, error) {
	values := payload.Strip(types.ProtectedFields...).Pick(writableFields...)
	if err := validate(values); err != nil {
		return nil, err
	}
	for _, field := range requiredFields {
		if values.Has(field) && len(values.Missing(field)) > 0 {
			return nil, types.NewBadRequestError(field + " cannot be empty")
		}
	}

	if values.Has("patient_id") {
		if err := s.checkPatient(ctx, p.OrganizationID, values.String("patient_id")); err != nil {
			return nil, err
		}
	}

	claim, err := s.repo.Update(ctx, p.OrganizationID, id, values)
	if err != nil {
		return nil, classify(err, "failed to update claim")
	}

	s.logger.Audit(ctx, "update", "claim", id, true, nil)
	return claim, nil
}

// DeleteClaim removes a claim of the caller's organization
func (s *Service) DeleteClaim(ctx context.Context, p *types.Principal, id string) error {
	if err := s.repo.Delete(ctx, p.OrganizationID, id); err != nil {
		return classify(err, "failed to delete claim")
	}

	s.logger.Audit(ctx, "delete", "claim", id, true, nil)
	return nil
}

func (s *Service) checkPatient(ctx context.Context, orgID, patientID string) error {
	if _, err := s.patients.Get(ctx, orgID, patientID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return types.NewNotFoundError(msgPatientNotFound)
		}
		return types.NewInternalError("failed to verify patient", err)
	}
	return nil
}

func validate(values types.Payload) error {
	if invalid := values.InvalidDates("service_date"); len(invalid) > 0 {
		return types.NewBadRequestError("Invalid date for: " + strings.Join(invalid, ", "))
	}
	if invalid := values.InvalidNumbers("billed_amount", "paid_amount"); len(invalid) > 0 {
		return types.NewBadRequestError("Invalid amount for: " + strings.Join(invalid, ", "))
	}
	if values.Has("status") {
		status := values.String("status")
		if !validStatuses[status] {
			return types.NewBadRequestError("Invalid claim status: " + status)
		}
		values["status"] = status
	}
	return nil
}

func classify(err error, op string) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return types.NewNotFoundError(msgNotFound)
	case errors.Is(err, database.ErrDuplicate):
		return types.NewBadRequestError(msgDuplicate)
	default:
		return types.NewInternalError(op, err)
	}
}
