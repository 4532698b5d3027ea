package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ums222/ClarityClaim-AI-sub001/internal/tenant"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const testOrgID = "0b8f7a3e-7e1d-4c3b-8d64-2a1c9f5e6b22"

var fixedNow = time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

// MockAnalyticsRepository is a mock implementation of Repository
type MockAnalyticsRepository struct {
	mock.Mock
}

func (m *MockAnalyticsRepository) ClaimStats(ctx context.Context, orgID string, since time.Time) ([]types.ClaimStat, error) {
	args := m.Called(ctx, orgID, since)
	stats, _ := args.Get(0).([]types.ClaimStat)
	return stats, args.Error(1)
}

func (m *MockAnalyticsRepository) AppealStats(ctx context.Context, orgID string, since time.Time) ([]types.AppealStat, error) {
	args := m.Called(ctx, orgID, since)
	stats, _ := args.Get(0).([]types.AppealStat)
	return stats, args.Error(1)
}

func (m *MockAnalyticsRepository) CountPatients(ctx context.Context, orgID string) (int, error) {
	args := m.Called(ctx, orgID)
	return args.Int(0), args.Error(1)
}

func (m *MockAnalyticsRepository) DenialReasons(ctx context.Context, orgID string, since time.Time, limit int) ([]types.DenialReasonCount, error) {
	args := m.Called(ctx, orgID, since, limit)
	reasons, _ := args.Get(0).([]types.DenialReasonCount)
	return reasons, args.Error(1)
}

func amount(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func paidAmount(v string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: amount(v), Valid: true}
}

func tenClaimsThreeDenied() []types.ClaimStat {
	claims := make([]types.ClaimStat, 0, 10)
	for i := 0; i < 3; i++ {
		claims = append(claims, types.ClaimStat{Status: "denied", BilledAmount: amount("100")})
	}
	for i := 0; i < 5; i++ {
		claims = append(claims, types.ClaimStat{Status: "paid", BilledAmount: amount("100"), PaidAmount: paidAmount("80")})
	}
	claims = append(claims,
		types.ClaimStat{Status: "submitted", BilledAmount: amount("100")},
		types.ClaimStat{Status: "partially_paid", BilledAmount: amount("100"), PaidAmount: paidAmount("50")},
	)
	return claims
}

func setupTestService() (*Service, *MockAnalyticsRepository, http.Handler) {
	repo := &MockAnalyticsRepository{}
	log := logger.NewWithOutput("error", io.Discard)
	service := NewService(repo, log)
	service.now = func() time.Time { return fixedNow }
	return service, repo, tenant.Dispatch(service.Methods(), log)
}

func serve(handler http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(tenant.WithPrincipal(req.Context(), &types.Principal{OrganizationID: testOrgID}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSummarize(t *testing.T) {
	summary := Summarize(types.Period30Days, tenClaimsThreeDenied(),
		[]types.AppealStat{{Status: "won"}, {Status: "won"}, {Status: "lost"}, {Status: "draft"}},
		42, nil)

	assert.Equal(t, 10, summary.TotalClaims)
	assert.Equal(t, 3, summary.TotalDenials)
	assert.Equal(t, 30.0, summary.DenialRate)
	assert.Equal(t, 1000.0, summary.TotalBilled)
	assert.Equal(t, 450.0, summary.TotalPaid)
	assert.Equal(t, 45.0, summary.RecoveryRate)
	assert.Equal(t, 4, summary.TotalAppeals)
	assert.Equal(t, 2, summary.AppealsWon)
	assert.Equal(t, 1, summary.AppealsLost)
	assert.Equal(t, 66.7, summary.AppealSuccessRate)
	assert.Equal(t, 42, summary.TotalPatients)
	assert.Equal(t, map[string]int{"denied": 3, "paid": 5, "submitted": 1, "partially_paid": 1}, summary.ClaimsByStatus)
	assert.NotNil(t, summary.TopDenialReasons)
}

func TestSummarize_EmptyOrganization(t *testing.T) {
	summary := Summarize(types.Period7Days, nil, nil, 0, nil)

	assert.Zero(t, summary.DenialRate)
	assert.Zero(t, summary.RecoveryRate)
	assert.Zero(t, summary.AppealSuccessRate)
	assert.Empty(t, summary.ClaimsByStatus)
}

func TestAnalyticsHandler(t *testing.T) {
	_, repo, handler := setupTestService()
	since := fixedNow.AddDate(0, 0, -90)

	repo.On("ClaimStats", mock.Anything, testOrgID, since).Return(tenClaimsThreeDenied(), nil).Once()
	repo.On("AppealStats", mock.Anything, testOrgID, since).Return([]types.AppealStat{}, nil).Once()
	repo.On("CountPatients", mock.Anything, testOrgID).Return(7, nil).Once()
	repo.On("DenialReasons", mock.Anything, testOrgID, since, TopDenialReasons).
		Return([]types.DenialReasonCount{{Reason: "CO-50 not medically necessary", Count: 2}}, nil).Once()

	rec := serve(handler, "/api/analytics?period=90d")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Data types.AnalyticsSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.Period90Days, resp.Data.Period)
	assert.Equal(t, 30.0, resp.Data.DenialRate)
	assert.Equal(t, 7, resp.Data.TotalPatients)
	require.Len(t, resp.Data.TopDenialReasons, 1)
	repo.AssertExpectations(t)
}

func TestAnalyticsHandler_DefaultPeriod(t *testing.T) {
	_, repo, handler := setupTestService()
	since := fixedNow.AddDate(0, 0, -30)

	repo.On("ClaimStats", mock.Anything, testOrgID, since).Return([]types.ClaimStat{}, nil).Once()
	repo.On("AppealStats", mock.Anything, testOrgID, since).Return([]types.AppealStat{}, nil).Once()
	repo.On("CountPatients", mock.Anything, testOrgID).Return(0, nil).Once()
	repo.On("DenialReasons", mock.Anything, testOrgID, since, TopDenialReasons).Return([]types.DenialReasonCount{}, nil).Once()

	rec := serve(handler, "/api/analytics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"period":"30d"`)
	repo.AssertExpectations(t)
}

func TestAnalyticsHandler_InvalidPeriod(t *testing.T) {
	_, repo, handler := setupTestService()

	rec := serve(handler, "/api/analytics?period=2w")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid period. Use one of: 7d, 30d, 90d, 1y"}`, rec.Body.String())
	repo.AssertNotCalled(t, "ClaimStats", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyticsHandler_AnyQueryFailureFailsTheRequest(t *testing.T) {
	_, repo, handler := setupTestService()

	repo.On("ClaimStats", mock.Anything, testOrgID, mock.Anything).Return([]types.ClaimStat{}, nil).Maybe()
	repo.On("AppealStats", mock.Anything, testOrgID, mock.Anything).Return([]types.AppealStat{}, nil).Maybe()
	repo.On("CountPatients", mock.Anything, testOrgID).Return(0, errors.New("connection refused")).Once()
	repo.On("DenialReasons", mock.Anything, testOrgID, mock.Anything, TopDenialReasons).Return([]types.DenialReasonCount{}, nil).Maybe()

	rec := serve(handler, "/api/analytics?period=7d")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestAnalyticsHandler_MethodNotAllowed(t *testing.T) {
	_, _, handler := setupTestService()

	req := httptest.NewRequest(http.MethodPost, "/api/analytics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPostgresRepository_DenialReasons(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "sqlmock"), nil)
	since := fixedNow.AddDate(0, 0, -7)

	sqlMock.ExpectQuery(regexp.QuoteMeta(
		"SELECT denial_reason AS reason, COUNT(*) AS count FROM claims WHERE organization_id = $1 AND status = $2 AND denial_reason IS NOT NULL AND created_at >= $3 GROUP BY denial_reason ORDER BY count DESC, reason LIMIT 5")).
		WithArgs(testOrgID, "denied", since).
		WillReturnRows(sqlmock.NewRows([]string{"reason", "count"}).
			AddRow("CO-50", 4).
			AddRow("CO-16", 1))

	reasons, err := repo.DenialReasons(context.Background(), testOrgID, since, TopDenialReasons)

	require.NoError(t, err)
	assert.Equal(t, []types.DenialReasonCount{{Reason: "CO-50", Count: 4}, {Reason: "CO-16", Count: 1}}, reasons)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresRepository_ClaimStatsKeepsExactAmounts(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "sqlmock"), nil)
	since := fixedNow.AddDate(0, 0, -30)

	sqlMock.ExpectQuery(regexp.QuoteMeta(
		"SELECT status, billed_amount, paid_amount, denial_reason FROM claims WHERE organization_id = $1 AND created_at >= $2")).
		WithArgs(testOrgID, since).
		WillReturnRows(sqlmock.NewRows([]string{"status", "billed_amount", "paid_amount", "denial_reason"}).
			AddRow("paid", []byte("0.10"), []byte("0.10"), nil).
			AddRow("paid", []byte("0.20"), []byte("0.20"), nil).
			AddRow("denied", []byte("1250.55"), nil, "CO-50"))

	stats, err := repo.ClaimStats(context.Background(), testOrgID, since)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.True(t, stats[0].BilledAmount.Equal(amount("0.10")))
	assert.False(t, stats[2].PaidAmount.Valid)

	summary := Summarize(types.Period30Days, stats, nil, 0, nil)
	assert.Equal(t, 1250.85, summary.TotalBilled)
	assert.Equal(t, 0.3, summary.TotalPaid)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPostgresRepository_CountPatients(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "sqlmock"), nil)

	sqlMock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM patients WHERE organization_id = $1")).
		WithArgs(testOrgID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	count, err := repo.CountPatients(context.Background(), testOrgID)

	require.NoError(t, err)
	assert.Equal(t, 12, count)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}
