package patients

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/events"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const (
	testUserID    = "5f0c6b9e-2f43-4a57-9d36-0d5c2d7a9a11"
	testOrgID     = "0b8f7a3e-7e1d-4c3b-8d64-2a1c9f5e6b22"
	otherOrgID    = "9c1d2e3f-4a5b-4c6d-8e7f-0a1b2c3d4e5f"
	testPatientID = "7d2e1f0a-3b4c-4d5e-9f60-718293a4b5c6"
)

var rowColumns = []string{
	"id", "organization_id", "mrn", "first_name", "last_name", "date_of_birth", "gender", "email",
	"phone", "insurance_provider", "insurance_id", "status", "created_by", "created_at", "updated_at",
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, e events.Event) bool {
	return m.Called(ctx, e).Bool(0)
}

type testEnv struct {
	sql       sqlmock.Sqlmock
	handler   http.Handler
	publisher *mockPublisher
}

func setupTestService(t *testing.T) *testEnv {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewWithOutput("error", io.Discard)
	publisher := &mockPublisher{}
	service := NewService(NewRepository(sqlx.NewDb(db, "sqlmock"), nil), publisher, log)

	return &testEnv{
		sql:       sqlMock,
		handler:   tenant.Dispatch(service.Methods(), log),
		publisher: publisher,
	}
}

func (env *testEnv) do(orgID, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req = req.WithContext(tenant.WithPrincipal(req.Context(), &types.Principal{
		UserID:         testUserID,
		OrganizationID: orgID,
		Role:           types.RoleBiller,
	}))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func patientRow(rows *sqlmock.Rows, id, orgID, mrn string) *sqlmock.Rows {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return rows.AddRow(id, orgID, mrn, "Ada", "Lovelace", "1980-05-01", nil, nil, nil, "Acme Health", nil, "active", testUserID, now, now)
}

func TestPatients_CreateThenFetch(t *testing.T) {
	env := setupTestService(t)
	env.publisher.On("Publish", mock.Anything, mock.MatchedBy(func(e events.Event) bool {
		return e.Type == events.PatientCreated && e.OrganizationID == testOrgID
	})).Return(true).Once()

	env.sql.ExpectQuery(regexp.QuoteMeta("INSERT INTO patients (created_by,date_of_birth,first_name,insurance_provider,last_name,mrn,organization_id,status) VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, organization_id, mrn")).
		WithArgs(testUserID, "1980-05-01", "Ada", "Acme Health", "Lovelace", "MRN-001", testOrgID, "active").
		WillReturnRows(patientRow(sqlmock.NewRows(rowColumns), testPatientID, testOrgID, "MRN-001"))

	rec := env.do(testOrgID, http.MethodPost, "/api/patients",
		`{"mrn":"MRN-001","first_name":"Ada","last_name":"Lovelace","date_of_birth":"1980-05-01","insurance_provider":"Acme Health","organization_id":"`+otherOrgID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data types.Patient `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, testOrgID, created.Data.OrganizationID)

	env.sql.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE id = $1 AND organization_id = $2")).
		WithArgs(testPatientID, testOrgID).
		WillReturnRows(patientRow(sqlmock.NewRows(rowColumns), testPatientID, testOrgID, "MRN-001"))

	rec = env.do(testOrgID, http.MethodGet, "/api/patients?id="+testPatientID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched struct {
		Data types.Patient `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, "MRN-001", fetched.Data.MRN)
	assert.Equal(t, "1980-05-01", fetched.Data.DateOfBirth)

	assert.NoError(t, env.sql.ExpectationsWereMet())
	env.publisher.AssertExpectations(t)
}

func TestPatients_CreateMissingFields(t *testing.T) {
	env := setupTestService(t)

	rec := env.do(testOrgID, http.MethodPost, "/api/patients", `{"mrn":"MRN-001","first_name":"Ada"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required fields: last_name, date_of_birth"}`, rec.Body.String())
	assert.NoError(t, env.sql.ExpectationsWereMet())
}

func TestPatients_CreateInvalidDate(t *testing.T) {
	env := setupTestService(t)

	rec := env.do(testOrgID, http.MethodPost, "/api/patients",
		`{"mrn":"MRN-001","first_name":"Ada","last_name":"Lovelace","date_of_birth":"05/01/1980"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid date for: date_of_birth"}`, rec.Body.String())
}

func TestPatients_DuplicateMRN(t *testing.T) {
	env := setupTestService(t)

	env.sql.ExpectQuery("INSERT INTO patients").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "patients_organization_id_mrn_key"})

	rec := env.do(testOrgID, http.MethodPost, "/api/patients",
		`{"mrn":"MRN-001","first_name":"Ada","last_name":"Lovelace","date_of_birth":"1980-05-01"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"A patient with this MRN already exists"}`, rec.Body.String())
	env.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestPatients_DatabaseFailureIsGeneric(t *testing.T) {
	env := setupTestService(t)

	env.sql.ExpectQuery("INSERT INTO patients").WillReturnError(errors.New(`pq: relation "patients" does not exist`))

	rec := env.do(testOrgID, http.MethodPost, "/api/patients",
		`{"mrn":"MRN-001","first_name":"Ada","last_name":"Lovelace","date_of_birth":"1980-05-01"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestPatients_CrossTenantReadIsNotFound(t *testing.T) {
	env := setupTestService(t)

	env.sql.ExpectQuery(regexp.QuoteMeta("FROM patients WHERE id = $1 AND organization_id = $2")).
		WithArgs(testPatientID, otherOrgID).
		WillReturnError(sql.ErrNoRows)

	rec := env.do(otherOrgID, http.MethodGet, "/api/patients?id="+testPatientID, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Patient not found"}`, rec.Body.String())
	assert.NoError(t, env.sql.ExpectationsWereMet())
}

func TestPatients_ListPagination(t *testing.T) {
	env := setupTestService(t)

	env.sql.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM patients WHERE (organization_id = $1 AND (first_name ILIKE $2 OR last_name ILIKE $3 OR mrn ILIKE $4))")).
		WithArgs(testOrgID, "%ada%", "%ada%", "%ada%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(45))

	rows := sqlmock.NewRows(rowColumns)
	for i := 0; i < 5; i++ {
		patientRow(rows, testPatientID, testOrgID, "MRN-00"+string(rune('0'+i)))
	}
	env.sql.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT 20 OFFSET 40")).
		WithArgs(testOrgID, "%ada%", "%ada%", "%ada%").
		WillReturnRows(rows)

	rec := env.do(testOrgID, http.MethodGet, "/api/patients?page=3&search=ada", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data       []types.Patient  `json:"data"`
		Pagination types.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 5)
	assert.Equal(t, types.Pagination{Page: 3, Limit: 20, Total: 45, TotalPages: 3}, body.Pagination)
}

func TestPatients_UpdateStripsProtectedFields(t *testing.T) {
	env := setupTestService(t)

	env.sql.ExpectQuery(regexp.QuoteMeta("UPDATE patients SET first_name = $1, updated_at = NOW() WHERE id = $2 AND organization_id = $3 RETURNING")).
		WithArgs("Ann", testPatientID, testOrgID).
		WillReturnRows(patientRow(sqlmock.NewRows(rowColumns), testPatientID, testOrgID, "MRN-001"))

	rec := env.do(testOrgID, http.MethodPut, "/api/patients?id="+testPatientID,
		`{"first_name":"Ann","id":"`+otherOrgID+`","organization_id":"`+otherOrgID+`","created_at":"2020-01-01T00:00:00Z","created_by":"`+otherOrgID+`"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, env.sql.ExpectationsWereMet())
}

func TestPatients_UpdateRequiresID(t *testing.T) {
	env := setupTestService(t)

	rec := env.do(testOrgID, http.MethodPut, "/api/patients", `{"first_name":"Ann"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPatients_UpdateCannotBlankRequiredField(t *testing.T) {
	env := setupTestService(t)

	rec := env.do(testOrgID, http.MethodPut, "/api/patients?id="+testPatientID, `{"mrn":"  "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"mrn cannot be empty"}`, rec.Body.String())
}

func TestPatients_DeleteTwice(t *testing.T) {
	env := setupTestService(t)

	env.sql.ExpectQuery(regexp.QuoteMeta("DELETE FROM patients WHERE id = $1 AND organization_id = $2 RETURNING id")).
		WithArgs(testPatientID, testOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(testPatientID))
	env.sql.ExpectQuery(regexp.QuoteMeta("DELETE FROM patients WHERE id = $1 AND organization_id = $2 RETURNING id")).
		WithArgs(testPatientID, testOrgID).
		WillReturnError(sql.ErrNoRows)

	rec := env.do(testOrgID, http.MethodDelete, "/api/patients?id="+testPatientID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Patient deleted successfully"}`, rec.Body.String())

	rec = env.do(testOrgID, http.MethodDelete, "/api/patients?id="+testPatientID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.NoError(t, env.sql.ExpectationsWereMet())
}
