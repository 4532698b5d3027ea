package profile

import (
	"net/http"

	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/httputil"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// Methods returns the profile endpoint's handlers. POST and DELETE are not supported.
func (s *Service) Methods() tenant.Methods {
	return tenant.Methods{
		Get: s.getProfileHandler,
		Put: s.updateProfileHandler,
	}
}

// getProfileHandler handles GET /api/profile
func (s *Service) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	profile, err := s.GetProfile(r.Context(), p)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, profile)
}

// updateProfileHandler handles PUT /api/profile
func (s *Service) updateProfileHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	payload, err := httputil.DecodePayload(r)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	profile, err := s.UpdateProfile(r.Context(), p, payload)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, profile)
}
