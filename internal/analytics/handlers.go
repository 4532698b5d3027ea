package analytics

import (
	"net/http"
	"strings"

	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/httputil"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// Methods returns the handlers of /api/analytics
func (s *Service) Methods() tenant.Methods {
	return tenant.Methods{Get: s.getAnalyticsHandler}
}

// getAnalyticsHandler handles GET /api/analytics?period=
func (s *Service) getAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := tenant.PrincipalFrom(r.Context())
	if !ok {
		httputil.WriteError(w, r, s.logger, types.NewUnauthorizedError(nil))
		return
	}

	period := types.AnalyticsPeriod(strings.TrimSpace(r.URL.Query().Get("period")))
	summary, err := s.Summary(r.Context(), p, period)
	if err != nil {
		httputil.WriteError(w, r, s.logger, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, summary)
}
