package tenant

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/monitoring"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// ProfileStore loads the profile linking a user to an organization.
// A missing profile is reported as database.ErrNotFound.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*types.Profile, error)
}

// Authorizer turns a request's bearer token into a Principal
type Authorizer struct {
	tokens   TokenVerifier
	profiles ProfileStore
	metrics  *monitoring.MetricsCollector
	logger   *logger.Logger
}

// NewAuthorizer creates an authorizer. metrics may be nil.
func NewAuthorizer(tokens TokenVerifier, profiles ProfileStore, metrics *monitoring.MetricsCollector, log *logger.Logger) *Authorizer {
	return &Authorizer{
		tokens:   tokens,
		profiles: profiles,
		metrics:  metrics,
		logger:   log,
	}
}

// Authenticate verifies the bearer token on r
func (a *Authorizer) Authenticate(r *http.Request) (*types.UserClaims, error) {
	tokenString, ok := bearerToken(r)
	if !ok {
		a.recordAuth("missing")
		return nil, types.NewUnauthorizedError(nil)
	}

	claims, err := a.tokens.ValidateJWT(tokenString)
	if err != nil {
		a.recordAuth("invalid")
		a.logger.Security(r.Context(), "token_rejected", map[string]interface{}{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		return nil, types.NewUnauthorizedError(err)
	}

	a.recordAuth("success")
	return claims, nil
}

// Resolve authenticates r and loads the caller's organization. Callers without a
// profile or without an organization are rejected with 403.
func (a *Authorizer) Resolve(r *http.Request) (*types.Principal, error) {
	claims, err := a.Authenticate(r)
	if err != nil {
		return nil, err
	}

	ctx := r.Context()
	profile, err := a.profiles.GetProfile(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			a.recordDenial("no_profile")
			a.logger.Security(ctx, "tenant_unresolved", map[string]interface{}{"user_id": claims.UserID, "reason": "no_profile"})
			return nil, types.NewForbiddenError(types.MsgNoOrganization)
		}
		return nil, types.NewInternalError("failed to load profile", err)
	}

	orgID := profile.OrgID()
	if orgID == "" {
		a.recordDenial("no_organization")
		a.logger.Security(ctx, "tenant_unresolved", map[string]interface{}{"user_id": claims.UserID, "reason": "no_organization"})
		return nil, types.NewForbiddenError(types.MsgNoOrganization)
	}

	return principal(claims, profile.Role, orgID), nil
}

func principal(claims *types.UserClaims, role types.UserRole, orgID string) *types.Principal {
	if role == "" {
		role = types.RoleDefault
	}
	return &types.Principal{
		UserID:         claims.UserID,
		Email:          claims.Email,
		Role:           role,
		OrganizationID: orgID,
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}

	token := strings.TrimSpace(parts[1])
	return token, token != ""
}

func (a *Authorizer) recordAuth(status string) {
	if a.metrics != nil {
		a.metrics.RecordAuthAttempt(status)
	}
}

func (a *Authorizer) recordDenial(reason string) {
	if a.metrics != nil {
		a.metrics.RecordTenantDenial(reason)
	}
}
