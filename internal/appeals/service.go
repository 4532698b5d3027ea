package appeals

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/events"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const (
	msgNotFound      = "Appeal not found"
	msgClaimNotFound = "Claim not found"
	msgDuplicate     = "An appeal with this number already exists"
	msgConflict      = "Appeal status was changed by another request"

	// numberAttempts bounds the retries when a generated appeal number collides
	numberAttempts = 3
)

var (
	createFields = []string{"claim_id", "appeal_level", "appeal_letter", "deadline", "outcome_notes"}
	updateFields = []string{"appeal_level", "status", "appeal_letter", "deadline", "outcome_notes"}
)

// Service implements the appeal resource and its activity trail
type Service struct {
	repo       Repository
	activities ActivityRepository
	claims     ClaimStore
	events     events.Publisher
	logger     *logger.Logger
	now        func() time.Time
}

// NewService creates a new appeal service
func NewService(repo Repository, activities ActivityRepository, claims ClaimStore, publisher events.Publisher, log *logger.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:       repo,
		activities: activities,
		claims:     claims,
		events:     publisher,
		logger:     log,
		now:        time.Now,
	}
}

// GetAppeal returns one appeal with its activities, newest first
func (s *Service) GetAppeal(ctx context.Context, p *types.Principal, id string) (*types.Appeal, error) {
	appeal, err := s.repo.Get(ctx, p.OrganizationID, id)
	if err != nil {
		return nil, classify(err, "failed to get appeal")
	}

	activities, err := s.activities.ListActivities(ctx, p.OrganizationID, appeal.ID)
	if err != nil {
		return nil, types.NewInternalError("failed to load appeal activities", err)
	}
	appeal.Activities = activities

	return appeal, nil
}

// ListAppeals returns one page of the caller's appeals, newest first
func (s *Service) ListAppeals(ctx context.Context, p *types.Principal, params types.ListParams) ([]types.Appeal, types.Pagination, error) {
	params.Normalize()

	items, total, err := s.repo.List(ctx, p.OrganizationID, params)
	if err != nil {
		return nil, types.Pagination{}, types.NewInternalError("failed to list appeals", err)
	}

	return items, types.NewPagination(params.Page, params.Limit, total), nil
}

// CreateAppeal opens a draft appeal against a claim of the caller's organization.
// The claim is marked appealed and a created activity is recorded; neither side effect
// fails the request.
func (s *Service) CreateAppeal(ctx context.Context, p *types.Principal, payload types.Payload) (*types.Appeal, error) {
	if missing := payload.Missing("claim_id"); len(missing) > 0 {
		return nil, types.NewMissingFieldsError(missing)
	}

	values := payload.Strip(types.ProtectedFields...).Pick(createFields...)
	if err := validate(values); err != nil {
		return nil, err
	}

	claimID := values.String("claim_id")
	if _, err := s.claims.Get(ctx, p.OrganizationID, claimID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, types.NewNotFoundError(msgClaimNotFound)
		}
		return nil, types.NewInternalError("failed to verify claim", err)
	}

	if !values.Has("appeal_level") || values["appeal_level"] == nil {
		values["appeal_level"] = 1
	}
	values["status"] = string(types.AppealStatusDraft)
	values["created_by"] = p.UserID

	var (
		appeal *types.Appeal
		err    error
	)
	for attempt := 0; attempt < numberAttempts; attempt++ {
		values["appeal_number"] = s.appealNumber()
		appeal, err = s.repo.Insert(ctx, p.OrganizationID, values)
		if !errors.Is(err, database.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, classify(err, "failed to create appeal")
	}

	status := appeal.Status
	s.record(ctx, p, &types.AppealActivity{
		AppealID:  appeal.ID,
		Action:    types.ActivityCreated,
		NewStatus: &status,
		ActorID:   &p.UserID,
	})

	if _, err := s.claims.Update(ctx, p.OrganizationID, claimID, types.Payload{"status": string(types.ClaimStatusAppealed)}); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("claim_id", claimID).Warn("Failed to mark claim as appealed")
	}

	s.logger.Audit(ctx, "create", "appeal", appeal.ID, true, map[string]interface{}{"claim_id": claimID})
	return appeal, nil
}

// UpdateAppeal applies the writable fields of payload. A status change must follow the
// transition table and records exactly one status_changed activity.
func (s *Service) UpdateAppeal(ctx context.Context, p *types.Principal, id string, payload types.Payload) (*types.Appeal, error) {
	current, err := s.repo.Get(ctx, p.OrganizationID, id)
	if err != nil {
		return nil, classify(err, "failed to get appeal")
	}

	values := payload.Strip(types.ProtectedFields...).Pick(updateFields...)
	if err := validate(values); err != nil {
		return nil, err
	}

	oldStatus := types.AppealStatus(current.Status)
	newStatus := oldStatus
	if values.Has("status") {
		newStatus = types.AppealStatus(values.String("status"))
		if newStatus == oldStatus {
			delete(values, "status")
		} else if !CanTransition(oldStatus, newStatus) {
			return nil, transitionError(oldStatus, newStatus)
		}
	}
	changed := newStatus != oldStatus
	if changed && newStatus == types.AppealStatusSubmitted {
		values["submitted_at"] = s.now().UTC()
	}

	var appeal *types.Appeal
	if changed {
		// only one of two racing transitions from the same status may win
		appeal, err = s.repo.UpdateIf(ctx, p.OrganizationID, current.ID, types.Payload{"status": string(oldStatus)}, values)
	} else {
		appeal, err = s.repo.Update(ctx, p.OrganizationID, current.ID, values)
	}
	if err != nil {
		return nil, classify(err, "failed to update appeal")
	}

	if changed {
		from, to := string(oldStatus), string(newStatus)
		s.record(ctx, p, &types.AppealActivity{
			AppealID:  appeal.ID,
			Action:    types.ActivityStatusChanged,
			OldStatus: &from,
			NewStatus: &to,
			ActorID:   &p.UserID,
		})
		s.events.Publish(ctx, events.New(events.AppealStatusChanged, p.OrganizationID, events.AppealStatusChange{
			AppealID:  appeal.ID,
			ClaimID:   appeal.ClaimID,
			OldStatus: from,
			NewStatus: to,
			ActorID:   p.UserID,
		}))
	}

	s.logger.Audit(ctx, "update", "appeal", appeal.ID, true, nil)
	return appeal, nil
}

// DeleteAppeal removes an appeal of the caller's organization. Its activities are kept.
func (s *Service) DeleteAppeal(ctx context.Context, p *types.Principal, id string) error {
	if err := s.repo.Delete(ctx, p.OrganizationID, id); err != nil {
		return classify(err, "failed to delete appeal")
	}

	s.logger.Audit(ctx, "delete", "appeal", id, true, nil)
	return nil
}

// record appends to the activity trail. Failures are logged only.
func (s *Service) record(ctx context.Context, p *types.Principal, activity *types.AppealActivity) {
	if err := s.activities.AddActivity(ctx, p.OrganizationID, activity); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]interface{}{
			"appeal_id": activity.AppealID,
			"action":    activity.Action,
		}).Error("Failed to record appeal activity")
	}
}

// appealNumber returns APL-YYYYMMDD-XXXXXX
func (s *Service) appealNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "APL-" + s.now().UTC().Format("20060102") + "-" + suffix
}

func validate(values types.Payload) error {
	if invalid := values.InvalidDates("deadline"); len(invalid) > 0 {
		return types.NewBadRequestError("Invalid date for: " + strings.Join(invalid, ", "))
	}
	if invalid := values.InvalidNumbers("appeal_level"); len(invalid) > 0 {
		return types.NewBadRequestError("Invalid number for: appeal_level")
	}
	if values.Has("status") {
		status := types.AppealStatus(values.String("status"))
		if _, known := transitions[status]; !known && status != types.AppealStatusWon && status != types.AppealStatusLost {
			return types.NewBadRequestError("Invalid appeal status: " + string(status))
		}
		values["status"] = string(status)
	}
	return nil
}

func classify(err error, op string) error {
	switch {
	case errors.Is(err, database.ErrNotFound):
		return types.NewNotFoundError(msgNotFound)
	case errors.Is(err, database.ErrDuplicate):
		return types.NewBadRequestError(msgDuplicate)
	case errors.Is(err, database.ErrConflict):
		return types.NewConflictError(msgConflict)
	default:
		return types.NewInternalError(op, err)
	}
}
