package profile

import (
	"context"
	"errors"

	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// UpdatableFields are the profile columns a user may change on their own profile
var UpdatableFields = []string{"full_name"}

// Service serves the caller's own profile
type Service struct {
	repo   Repository
	logger *logger.Logger
}

// NewService creates a new profile service
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log}
}

// GetProfile returns the caller's profile
func (s *Service) GetProfile(ctx context.Context, p *types.Principal) (*types.Profile, error) {
	profile, err := s.repo.GetProfile(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, types.NewNotFoundError("Profile not found")
		}
		return nil, types.NewInternalError("failed to load profile", err)
	}
	return profile, nil
}

// UpdateProfile changes full_name. Every other field in payload is ignored.
func (s *Service) UpdateProfile(ctx context.Context, p *types.Principal, payload types.Payload) (*types.Profile, error) {
	values := payload.Strip(types.ProtectedFields...).Pick(UpdatableFields...)
	if v, ok := values["full_name"]; ok && v != nil {
		if _, isString := v.(string); !isString {
			return nil, types.NewBadRequestError("full_name must be a string")
		}
	}

	if len(values) == 0 {
		return s.GetProfile(ctx, p)
	}

	profile, err := s.repo.UpdateProfile(ctx, p.UserID, values)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, types.NewNotFoundError("Profile not found")
		}
		return nil, types.NewInternalError("failed to update profile", err)
	}

	s.logger.Audit(ctx, "update", "profile", p.UserID, true, map[string]interface{}{"fields": UpdatableFields})
	return profile, nil
}
