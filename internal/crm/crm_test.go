package crm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/events"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/monitoring"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const testDemoID = "6a7b8c9d-0e1f-4a2b-8c3d-4e5f6a7b8c9d"

// MockDemoRepository is a mock implementation of Repository
type MockDemoRepository struct {
	mock.Mock
}

func (m *MockDemoRepository) InsertDemoRequest(ctx context.Context, req *types.DemoRequest) error {
	return m.Called(ctx, req).Error(0)
}

func testLogger() *logger.Logger {
	return logger.NewWithOutput("error", io.Discard)
}

func postDemo(handler http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/demo-requests", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHubSpotSubscriber_Handle(t *testing.T) {
	var got contactRequest
	var gotAuth, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	phone := "+1 555 0100"
	sub := NewHubSpotSubscriber(server.URL, "pat-token", monitoring.NewMetricsCollector("test"), testLogger())
	err := sub.Handle(context.Background(), events.New(events.DemoRequested, "", &types.DemoRequest{
		ID:       testDemoID,
		Email:    "grace@example.com",
		FullName: "Grace Brewster Hopper",
		Company:  "Navy Clinic",
		Phone:    &phone,
	}))

	require.NoError(t, err)
	assert.Equal(t, "Bearer pat-token", gotAuth)
	assert.Equal(t, "/crm/v3/objects/contacts", gotPath)
	assert.Equal(t, "grace@example.com", got.Properties["email"])
	assert.Equal(t, "Grace", got.Properties["firstname"])
	assert.Equal(t, "Brewster Hopper", got.Properties["lastname"])
	assert.Equal(t, "Navy Clinic", got.Properties["company"])
	assert.Equal(t, phone, got.Properties["phone"])
	assert.NotContains(t, got.Properties, "message")
}

func TestHubSpotSubscriber_StatusHandling(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"created", http.StatusCreated, false},
		{"existing contact", http.StatusConflict, false},
		{"rejected token", http.StatusUnauthorized, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			sub := NewHubSpotSubscriber(server.URL, "pat-token", nil, testLogger())
			err := sub.Handle(context.Background(), events.New(events.DemoRequested, "", types.DemoRequest{Email: "a@b.co"}))

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHubSpotSubscriber_DecodedPayload(t *testing.T) {
	req, err := demoRequestFrom(events.Event{
		Type: events.DemoRequested,
		Data: map[string]interface{}{"email": "a@b.co", "full_name": "Ada", "company": "Acme"},
	})

	require.NoError(t, err)
	assert.Equal(t, "a@b.co", req.Email)
	assert.Equal(t, "Acme", req.Company)
}

func TestHubSpotSubscriber_DisabledWithoutToken(t *testing.T) {
	sub := NewHubSpotSubscriber("", "", nil, testLogger())

	assert.False(t, sub.Enabled())
	assert.Equal(t, defaultBaseURL, sub.baseURL)
}

func TestDemoRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing fields", `{"email":"a@b.co"}`, "Missing required fields: full_name, company"},
		{"bad email", `{"email":"not-an-email","full_name":"Ada","company":"Acme"}`, "Invalid email address"},
		{"display name form", `{"email":"Ada <a@b.co>","full_name":"Ada","company":"Acme"}`, "Invalid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockDemoRepository{}
			service := NewDemoService(repo, nil, testLogger())

			rec := postDemo(tenant.Dispatch(service.Methods(), nil), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"`+tt.message+`"}`, rec.Body.String())
			repo.AssertNotCalled(t, "InsertDemoRequest", mock.Anything, mock.Anything)
		})
	}
}

func TestDemoRequest_CRMFailureDoesNotFailRequest(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	log := testLogger()
	metrics := monitoring.NewMetricsCollector("test")
	bus := events.NewBus(events.BusConfig{BufferSize: 4, Workers: 1, HandlerTimeout: time.Second}, log, metrics)
	NewHubSpotSubscriber(server.URL, "pat-token", metrics, log).Register(bus)
	bus.Start()

	repo := &MockDemoRepository{}
	repo.On("InsertDemoRequest", mock.Anything, mock.MatchedBy(func(r *types.DemoRequest) bool {
		return r.Email == "ada@example.com" && r.Phone == nil && r.Message != nil && *r.Message == "Need appeals help"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*types.DemoRequest).ID = testDemoID
	}).Return(nil).Once()

	service := NewDemoService(repo, bus, log)
	rec := postDemo(tenant.Dispatch(service.Methods(), nil),
		`{"email":"ada@example.com","full_name":"Ada Lovelace","company":"Analytical Health","message":"Need appeals help"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), testDemoID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, bus.Close(ctx))

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	repo.AssertExpectations(t)
}

func TestDemoRequest_StoreFailure(t *testing.T) {
	repo := &MockDemoRepository{}
	repo.On("InsertDemoRequest", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	service := NewDemoService(repo, nil, testLogger())

	rec := postDemo(tenant.Dispatch(service.Methods(), nil), `{"email":"a@b.co","full_name":"Ada","company":"Acme"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestPostgresRepository_InsertDemoRequest(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sqlMock.ExpectQuery(regexp.QuoteMeta("INSERT INTO demo_requests (email,full_name,company,phone,message) VALUES ($1,$2,$3,$4,$5) RETURNING id")).
		WithArgs("a@b.co", "Ada", "Acme", nil, nil).
		WillReturnRows(sqlmock.NewRows(demoRequestColumns).AddRow(testDemoID, "a@b.co", "Ada", "Acme", nil, nil, now))

	req := &types.DemoRequest{Email: "a@b.co", FullName: "Ada", Company: "Acme"}
	require.NoError(t, NewRepository(sqlx.NewDb(db, "sqlmock"), nil).InsertDemoRequest(context.Background(), req))

	assert.Equal(t, testDemoID, req.ID)
	assert.Equal(t, now, req.CreatedAt)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
