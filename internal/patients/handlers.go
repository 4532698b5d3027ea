package patients

import (
	"net/http"

	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/httputil"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// Methods returns the handlers of /api/patients
func (s *Service) Methods() tenant.Methods {
	return tenant.Methods{
		Get:    s.getPatientsHandler,
		Post:   s.createPatientHandler,
		Put:    s.updatePatientHandler,
		Delete: s.deletePatientHandler,
	}
}

// getPatientsHandler returns one patient when ?id= is set and a page of patients otherwise
func (s *Service) getPatientsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	if id := httputil.IDParam(r); id != "" {
		patient, err := s.GetPatient(r.Context(), p, id)
		if err != nil {
			httputil.WriteError(w, r, s.logger, err)
			return
		}
		httputil.WriteData(w, http.StatusOK, patient)
		return
	}

	items, pagination, err := s.ListPatients(r.Context(), p, httputil.ListParams(r))
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}
	httputil.WriteList(w, items, pagination)
}

// createPatientHandler handles POST /api/patients
func (s *Service) createPatientHandler(w http.ResponseWriter, r *http.Request) {
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

	patient, err := s.CreatePatient(r.Context(), p, payload)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusCreated, patient)
}

// updatePatientHandler handles PUT /api/patients?id=
func (s *Service) updatePatientHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	id := httputil.IDParam(r)
	if id == "" {
		httputil.WriteError(w, r, s.logger, types.NewBadRequestError("Patient ID is required"))
		return
	}

	payload, err := httputil.DecodePayload(r)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	patient, err := s.UpdatePatient(r.Context(), p, id, payload)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, patient)
}

// deletePatientHandler handles DELETE /api/patients?id=
func (s *Service) deletePatientHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	id := httputil.IDParam(r)
	if id == "" {
		httputil.WriteError(w, r, s.logger, types.NewBadRequestError("Patient ID is required"))
		return
	}

	if err := s.DeletePatient(r.Context(), p, id); err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteMessage(w, http.StatusOK, "Patient deleted successfully")
}
