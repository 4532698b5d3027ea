package ai

import (
	"net/http"
	"strings"

	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/httputil"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// DenialRiskMethods returns the handlers of /api/ai/denial-risk
func (s *Service) DenialRiskMethods() tenant.Methods {
	return tenant.Methods{Post: s.denialRiskHandler}
}

// AppealDraftMethods returns the handlers of /api/ai/appeal-draft
func (s *Service) AppealDraftMethods() tenant.Methods {
	return tenant.Methods{Post: s.appealDraftHandler}
}

func (s *Service) denialRiskHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	var req DenialRiskRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	req.ClaimID = strings.TrimSpace(req.ClaimID)

	analysis, err := s.AssessDenialRisk(r.Context(), p, req)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusCreated, analysis)
}

func (s *Service) appealDraftHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	var req AppealDraftRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	req.ClaimID = strings.TrimSpace(req.ClaimID)
	req.AppealID = strings.TrimSpace(req.AppealID)

	draft, err := s.DraftAppealLetter(r.Context(), p, req)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusCreated, draft)
}
