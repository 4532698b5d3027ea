package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

func TestAPIError_StatusCode(t *testing.T) {
	cases := map[*APIError]int{
		NewBadRequestError("x"):          http.StatusBadRequest,
		NewUnauthorizedError(nil):        http.StatusUnauthorized,
		NewForbiddenError("x"):           http.StatusForbidden,
		NewNotFoundError("x"):            http.StatusNotFound,
		NewConflictError("x"):            http.StatusConflict,
		NewMethodNotAllowedError():       http.StatusMethodNotAllowed,
		NewInternalError("x", nil):       http.StatusInternalServerError,
		NewExternalError("x", nil):       http.StatusBadGateway,
		NewUnavailableError("x"):         http.StatusServiceUnavailable,
		{Kind: ErrorKind("unknown_kind")}: http.StatusInternalServerError,
	}

	for err, want := range cases {
		assert.Equal(t, want, err.StatusCode(), string(err.Kind))
	}
}

func TestAsAPIError(t *testing.T) {
	wrapped := fmt.Errorf("loading claim: %w", NewNotFoundError("Claim not found"))
	apiErr := AsAPIError(wrapped)
	assert.Equal(t, KindNotFound, apiErr.Kind)
	assert.True(t, IsNotFound(wrapped))

	raw := errors.New("pq: relation \"claims\" does not exist")
	apiErr = AsAPIError(raw)
	assert.Equal(t, KindInternal, apiErr.Kind)
	assert.Equal(t, MsgInternal, PublicMessage(apiErr))
	assert.ErrorIs(t, apiErr, raw)
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	err := NewInternalError("failed to insert patient", errors.New("duplicate key"))
	assert.Equal(t, MsgInternal, PublicMessage(err))
	assert.Equal(t, "Missing required fields: mrn, first_name", PublicMessage(NewMissingFieldsError([]string{"mrn", "first_name"})))
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, Limit: 20, Total: 0, TotalPages: 0}, NewPagination(1, 20, 0))
	assert.Equal(t, 1, NewPagination(1, 20, 20).TotalPages)
	assert.Equal(t, 2, NewPagination(1, 20, 21).TotalPages)
	assert.Equal(t, 4, NewPagination(3, 3, 10).TotalPages)
}

func TestListParams_Normalize(t *testing.T) {
	p := ListParams{Page: 0, Limit: 1000}
	p.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxLimit, p.Limit)
	assert.Equal(t, 0, p.Offset())

	p = ListParams{Page: 3, Limit: 10}
	p.Normalize()
	assert.Equal(t, 20, p.Offset())
}

func TestPayload(t *testing.T) {
	p := Payload{
		"id":              "client-id",
		"organization_id": "other-org",
		"created_at":      "2020-01-01",
		"created_by":      "someone",
		"mrn":             "M1",
		"first_name":      "  ",
		"last_name":       nil,
		"notes":           "ok",
	}

	assert.Equal(t, []string{"first_name", "last_name", "date_of_birth"}, p.Missing("mrn", "first_name", "last_name", "date_of_birth"))

	p.Strip(ProtectedFields...)
	assert.False(t, p.Has("id"))
	assert.False(t, p.Has("organization_id"))
	assert.False(t, p.Has("created_at"))
	assert.False(t, p.Has("created_by"))

	picked := p.Pick("notes", "status")
	assert.Equal(t, Payload{"notes": "ok"}, picked)
	assert.Equal(t, "M1", p.String("mrn"))
	assert.Equal(t, "", p.String("missing"))
}

func TestJSON_RoundTrip(t *testing.T) {
	var claim struct {
		Codes JSON `json:"codes"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"codes":["99213","J1100"]}`), &claim))
	assert.JSONEq(t, `["99213","J1100"]`, string(claim.Codes))

	v, err := claim.Codes.Value()
	require.NoError(t, err)
	assert.Equal(t, `["99213","J1100"]`, v)

	var scanned JSON
	require.NoError(t, scanned.Scan([]byte(`{"risk":0.7}`)))
	out, err := json.Marshal(scanned)
	require.NoError(t, err)
	assert.JSONEq(t, `{"risk":0.7}`, string(out))

	var empty JSON
	require.NoError(t, empty.Scan(nil))
	out, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestAnalyticsPeriod_Start(t *testing.T) {
	_, ok := AnalyticsPeriod("2w").Start(fixedNow)
	assert.False(t, ok)

	start, ok := Period30Days.Start(fixedNow)
	require.True(t, ok)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), start)
}

func TestPayload_Validation(t *testing.T) {
	p := Payload{
		"service_date":  "2026-02-30",
		"date_of_birth": "1980-05-01",
		"deadline":      nil,
		"billed_amount": json.Number("125.00"),
		"paid_amount":   "abc",
		"appeal_level":  true,
	}

	assert.Equal(t, []string{"service_date"}, p.InvalidDates("service_date", "date_of_birth", "deadline", "absent"))
	assert.Equal(t, []string{"paid_amount", "appeal_level"}, p.InvalidNumbers("billed_amount", "paid_amount", "appeal_level"))
}
