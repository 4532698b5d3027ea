package ai

import (
	"context"
	"errors"

	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const (
	msgUnavailable    = "AI service unavailable"
	msgNotConfigured  = "AI service not configured"
	msgClaimNotFound  = "Claim not found"
	msgAppealNotFound = "Appeal not found"
)

// DenialRiskRequest is the body of POST /api/ai/denial-risk
type DenialRiskRequest struct {
	ClaimID string `json:"claim_id"`
}

// AppealDraftRequest is the body of POST /api/ai/appeal-draft
type AppealDraftRequest struct {
	ClaimID  string `json:"claim_id"`
	AppealID string `json:"appeal_id,omitempty"`
}

// Service runs inference for claims of the caller's organization and stores the results
type Service struct {
	predictor Predictor
	repo      Repository
	claims    ClaimReader
	appeals   AppealReader
	logger    *logger.Logger
}

// NewService creates a new AI service
func NewService(predictor Predictor, repo Repository, claims ClaimReader, appeals AppealReader, log *logger.Logger) *Service {
	return &Service{predictor: predictor, repo: repo, claims: claims, appeals: appeals, logger: log}
}

// AssessDenialRisk scores a claim and stores the result verbatim
func (s *Service) AssessDenialRisk(ctx context.Context, p *types.Principal, req DenialRiskRequest) (*types.ClaimAnalysis, error) {
	if req.ClaimID == "" {
		return nil, types.NewMissingFieldsError([]string{"claim_id"})
	}
	if !s.predictor.Configured() {
		return nil, types.NewUnavailableError(msgNotConfigured)
	}

	claim, err := s.claim(ctx, p, req.ClaimID)
	if err != nil {
		return nil, err
	}

	result, err := s.predictor.PredictDenialRisk(ctx, claim)
	if err != nil {
		return nil, s.external(ctx, "denial_risk", err)
	}

	analysis := &types.ClaimAnalysis{ClaimID: claim.ID, Result: types.JSON(result), CreatedBy: &p.UserID}
	if err := s.repo.InsertAnalysis(ctx, p.OrganizationID, analysis); err != nil {
		return nil, types.NewInternalError("failed to store claim analysis", err)
	}

	s.logger.Audit(ctx, "denial_risk", "claim", claim.ID, true, nil)
	return analysis, nil
}

// DraftAppealLetter generates an appeal letter for a claim, optionally tied to one of its
// appeals, and stores the draft verbatim
func (s *Service) DraftAppealLetter(ctx context.Context, p *types.Principal, req AppealDraftRequest) (*types.AppealDraft, error) {
	if req.ClaimID == "" {
		return nil, types.NewMissingFieldsError([]string{"claim_id"})
	}
	if !s.predictor.Configured() {
		return nil, types.NewUnavailableError(msgNotConfigured)
	}

	claim, err := s.claim(ctx, p, req.ClaimID)
	if err != nil {
		return nil, err
	}

	letter := &AppealLetterRequest{Claim: claim}
	draft := &types.AppealDraft{ClaimID: claim.ID, CreatedBy: &p.UserID}

	if req.AppealID != "" {
		appeal, err := s.appeals.Get(ctx, p.OrganizationID, req.AppealID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, types.NewNotFoundError(msgAppealNotFound)
			}
			return nil, types.NewInternalError("failed to load appeal", err)
		}
		if appeal.ClaimID != claim.ID {
			return nil, types.NewBadRequestError("Appeal does not belong to the claim")
		}
		letter.Appeal = appeal
		draft.AppealID = &appeal.ID
	}

	content, err := s.predictor.GenerateAppealLetter(ctx, letter)
	if err != nil {
		return nil, s.external(ctx, "appeal_letter", err)
	}
	draft.Content = types.JSON(content)

	if err := s.repo.InsertDraft(ctx, p.OrganizationID, draft); err != nil {
		return nil, types.NewInternalError("failed to store appeal draft", err)
	}

	s.logger.Audit(ctx, "appeal_draft", "claim", claim.ID, true, nil)
	return draft, nil
}

func (s *Service) claim(ctx context.Context, p *types.Principal, id string) (*types.Claim, error) {
	claim, err := s.claims.Get(ctx, p.OrganizationID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, types.NewNotFoundError(msgClaimNotFound)
		}
		return nil, types.NewInternalError("failed to load claim", err)
	}
	return claim, nil
}

func (s *Service) external(ctx context.Context, operation string, err error) error {
	if errors.Is(err, ErrNotConfigured) {
		return types.NewUnavailableError(msgNotConfigured)
	}
	s.logger.WithContext(ctx).WithError(err).WithField("operation", operation).Error("AI service call failed")
	return types.NewExternalError(msgUnavailable, err)
}
