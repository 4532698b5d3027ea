package patients

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
	msgNotFound  = "Patient not found"
	msgDuplicate = "A patient with this MRN already exists"
)

var (
	requiredFields = []string{"mrn", "first_name", "last_name", "date_of_birth"}
	writableFields = []string{
		"mrn",
		"first_name",
		"last_name",
		"date_of_birth",
		"gender",
		"email",
		"phone",
		"insurance_provider",
		"insurance_id",
		"status",
	}
)

// Service implements the patient resource for one organization at a time
type Service struct {
	repo   Repository
	events events.Publisher
	logger *logger.Logger
}

// NewService creates a new patient service
func NewService(repo Repository, publisher events.Publisher, log *logger.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{repo: repo, events: publisher, logger: log}
}

// GetPatient returns one patient of the caller's organization
func (s *Service) GetPatient(ctx context.Context, p *types.Principal, id string) (*types.Patient, error) {
	patient, err := s.repo.Get(ctx, p.OrganizationID, id)
	if err != nil {
		return nil, classify(err, "failed to get patient")
	}
	return patient, nil
}

// ListPatients returns one page of the caller's patients, newest first
func (s *Service) ListPatients(ctx context.Context, p *types.Principal, params types.ListParams) ([]types.Patient, types.Pagination, error) {
	params.Normalize()

	items, total, err := s.repo.List(ctx, p.OrganizationID, params)
	if err != nil {
		return nil, types.Pagination{}, types.NewInternalError("failed to list patients", err)
	}

	return items, types.NewPagination(params.Page, params.Limit, total), nil
}

// CreatePatient validates payload and inserts it under the caller's organization
func (s *Service) CreatePatient(ctx context.Context, p *types.Principal, payload types.Payload) (*types.Patient, error) {
	if missing := payload.Missing(requiredFields...); len(missing) > 0 {
		return nil, types.NewMissingFieldsError(missing)
	}

	values := payload.Strip(types.ProtectedFields...).Pick(writableFields...)
	if err := validate(values); err != nil {
		return nil, err
	}
	if values.String("status") == "" {
		values["status"] = types.PatientStatusActive
	}
	values["created_by"] = p.UserID

	patient, err := s.repo.Insert(ctx, p.OrganizationID, values)
	if err != nil {
		return nil, classify(err, "failed to create patient")
	}

	s.logger.Audit(ctx, "create", "patient", patient.ID, true, nil)
	s.events.Publish(ctx, events.New(events.PatientCreated, p.OrganizationID, map[string]string{
		"patient_id": patient.ID,
		"mrn":        patient.MRN,
	}))

	return patient, nil
}

// UpdatePatient applies the writable fields of payload. Protected fields are ignored.
func (s *Service) UpdatePatient(ctx context.Context, p *types.Principal, id string, payload types.Payload) (*types.Patient, error) {
	values := payload.Strip(types.ProtectedFields...).Pick(writableFields...)
	if err := validate(values); err != nil {
		return nil, err
	}
	for _, field := range requiredFields {
		if values.Has(field) && len(values.Missing(field)) > 0 {
			return nil, types.NewBadRequestError(field + " cannot be empty")
		}
	}

	patient, err := s.repo.Update(ctx, p.OrganizationID, id, values)
	if err != nil {
		return nil, classify(err, "failed to update patient")
	}

	s.logger.Audit(ctx, "update", "patient", id, true, map[string]interface{}{"fields": fieldNames(values)})
	return patient, nil
}

// DeletePatient removes a patient of the caller's organization
func (s *Service) DeletePatient(ctx context.Context, p *types.Principal, id string) error {
	if err := s.repo.Delete(ctx, p.OrganizationID, id); err != nil {
		return classify(err, "failed to delete patient")
	}

	s.logger.Audit(ctx, "delete", "patient", id, true, nil)
	return nil
}

func validate(values types.Payload) error {
	if invalid := values.InvalidDates("date_of_birth"); len(invalid) > 0 {
		return types.NewBadRequestError("Invalid date for: " + strings.Join(invalid, ", "))
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

func fieldNames(values types.Payload) []string {
	names := make([]string, 0, len(values))
	for _, field := range writableFields {
		if values.Has(field) {
			names = append(names, field)
		}
	}
	return names
}
