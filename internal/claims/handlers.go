package claims

import (
	"net/http"

	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/httputil"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// Methods returns the handlers of /api/claims
func (s *Service) Methods() tenant.Methods {
	return tenant.Methods{
		Get:    s.getClaimsHandler,
		Post:   s.createClaimHandler,
		Put:    s.updateClaimHandler,
		Delete: s.deleteClaimHandler,
	}
}

// getClaimsHandler returns one claim when ?id= is set and a page of claims otherwise.
// Lists accept ?patient_id= in addition to the common filters.
func (s *Service) getClaimsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	if id := httputil.IDParam(r); id != "" {
		claim, err := s.GetClaim(r.Context(), p, id)
		if err != nil {
			httputil.WriteError(w, r, s.logger, err)
			return
		}
		httputil.WriteData(w, http.StatusOK, claim)
		return
	}

	items, pagination, err := s.ListClaims(r.Context(), p, httputil.ListParams(r, "patient_id"))
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	httputil.WriteList(w, items, pagination)
}

func (s *Service) createClaimHandler(w http.ResponseWriter, r *http.Request) {
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

	claim, err := s.CreateClaim(r.Context(), p, payload)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusCreated, claim)
}

func (s *Service) updateClaimHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	id := httputil.IDParam(r)
	if id == "" {
		httputil.WriteError(w, r, s.logger, types.NewBadRequestError("Claim ID is required"))
		return
	}

	payload, err := httputil.DecodePayload(r)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	claim, err := s.UpdateClaim(r.Context(), p, id, payload)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, claim)
}

func (s *Service) deleteClaimHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	id := httputil.IDParam(r)
	if id == "" {
		httputil.WriteError(w, r, s.logger, types.NewBadRequestError("Claim ID is required"))
		return
	}

	if err := s.DeleteClaim(r.Context(), p, id); err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Claim deleted successfully")
}
