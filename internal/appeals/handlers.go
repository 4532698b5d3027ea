package appeals

import (
	"net/http"

	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/httputil"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// Methods returns the handlers of /api/appeals
func (s *Service) Methods() tenant.Methods {
	return tenant.Methods{
		Get:    s.getAppealsHandler,
		Post:   s.createAppealHandler,
		Put:    s.updateAppealHandler,
		Delete: s.deleteAppealHandler,
	}
}

func (s *Service) getAppealsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	if id := httputil.IDParam(r); id != "" {
		appeal, err := s.GetAppeal(r.Context(), p, id)
		if err != nil {
			httputil.WriteError(w, r, s.logger, err)
			return
		}
		httputil.WriteData(w, http.StatusOK, appeal)
		return
	}

	items, pagination, err := s.ListAppeals(r.Context(), p, httputil.ListParams(r, "claim_id"))
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	httputil.WriteList(w, items, pagination)
}

func (s *Service) createAppealHandler(w http.ResponseWriter, r *http.Request) {
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

	appeal, err := s.CreateAppeal(r.Context(), p, payload)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusCreated, appeal)
}

func (s *Service) updateAppealHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	id := httputil.IDParam(r)
	if id == "" {
		httputil.WriteError(w, r, s.logger, types.NewBadRequestError("Appeal ID is required"))
		return
	}

	payload, err := httputil.DecodePayload(r)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	appeal, err := s.UpdateAppeal(r.Context(), p, id, payload)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, appeal)
}

func (s *Service) deleteAppealHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	id := httputil.IDParam(r)
	if id == "" {
		httputil.WriteError(w, r, s.logger, types.NewBadRequestError("Appeal ID is required"))
		return
	}

	if err := s.DeleteAppeal(r.Context(), p, id); err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Appeal deleted successfully")
}
