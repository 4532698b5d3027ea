package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// DataResponse wraps a single payload
type DataResponse struct {
	Data interface{} `json:"data"`
}

// ListResponse wraps one page of a collection
type ListResponse struct {
	Data       interface{}      `json:"data"`
	Pagination types.Pagination `json:"pagination"`
}

// MessageResponse is returned by operations with nothing else to report
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every error
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteJSON writes v as the response body with the given status
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if v == nil {
		return
	}
	// the status line is already out, nothing useful can be done on failure
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes {"data": data}
func WriteData(w http.ResponseWriter, statusCode int, data interface{}) {
	WriteJSON(w, statusCode, DataResponse{Data: data})
}

// WriteList writes {"data": items, "pagination": {...}}
func WriteList(w http.ResponseWriter, items interface{}, pagination types.Pagination) {
	WriteJSON(w, http.StatusOK, ListResponse{Data: items, Pagination: pagination})
}

// WriteMessage writes {"message": message}
func WriteMessage(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, MessageResponse{Message: message})
}

// WriteError classifies err, logs it and writes {"error": message}. Internal causes are
// logged and never rendered.
func WriteError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	apiErr := types.AsAPIError(err)
	status := apiErr.StatusCode()

	if log != nil {
		entry := log.WithContext(r.Context()).WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": status,
			"error_kind":  apiErr.Kind,
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.WithError(err).Error("Request failed")
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			entry.Warn(apiErr.Message)
		default:
			entry.Debug(apiErr.Message)
		}
	}

	WriteJSON(w, status, ErrorResponse{Error: types.PublicMessage(apiErr)})
}
