package tenant

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gorilla/mux"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/httputil"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/monitoring"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// AllowedHeaders are the request headers browsers may send to the API
const AllowedHeaders = "authorization, x-client-info, apikey, content-type"

// CORS sets the CORS headers on every response and answers preflight requests with
// an empty 200 before any authentication runs.
func CORS(origin string, methods ...string) mux.MiddlewareFunc {
	allowMethods := strings.Join(append(append([]string{}, methods...), http.MethodOptions), ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", allowMethods)
			w.Header().Set("Access-Control-Allow-Headers", AllowedHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders adds the standard hardening headers
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		next.ServeHTTP(w, r)
	})
}

// Require rejects requests without a valid token (401) or without an organization (403)
// and stores the resolved Principal in the request context.
func (a *Authorizer) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Resolve(r)
		if err != nil {
			httputil.WriteError(w, r, a.logger, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Authenticated only verifies the token. The Principal it stores has no organization.
func (a *Authorizer) Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Authenticate(r)
		if err != nil {
			httputil.WriteError(w, r, a.logger, err)
			return
		}

		p := principal(claims, types.UserRole(""), "")
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// Recover turns a panic into a 500 with a generic message. The panic value and stack
// are logged only. metrics may be nil.
func Recover(log *logger.Logger, metrics *monitoring.MetricsCollector) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.WithContext(r.Context()).
						WithField("stack", string(debug.Stack())).
						Errorf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
					if metrics != nil {
						metrics.RecordSystemError("panic", "http")
					}
					httputil.WriteError(w, r, nil, types.NewInternalError("panic", fmt.Errorf("%v", rec)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// Methods maps HTTP methods to handlers for one resource
type Methods struct {
	Get    http.HandlerFunc
	Post   http.HandlerFunc
	Put    http.HandlerFunc
	Delete http.HandlerFunc
}

// Allowed lists the methods with a handler, for the CORS allow list
func (m Methods) Allowed() []string {
	var allowed []string
	for _, entry := range []struct {
		method  string
		handler http.HandlerFunc
	}{
		{http.MethodGet, m.Get},
		{http.MethodPost, m.Post},
		{http.MethodPut, m.Put},
		{http.MethodDelete, m.Delete},
	} {
		if entry.handler != nil {
			allowed = append(allowed, entry.method)
		}
	}
	return allowed
}

// Dispatch routes by method and answers 405 for anything without a handler
func Dispatch(m Methods, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var h http.HandlerFunc
		switch r.Method {
		case http.MethodGet:
			h = m.Get
		case http.MethodPost:
			h = m.Post
		case http.MethodPut:
			h = m.Put
		case http.MethodDelete:
			h = m.Delete
		}

		if h == nil {
			httputil.WriteError(w, r, log, types.NewMethodNotAllowedError())
			return
		}
		h(w, r)
	})
}
