package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/logger"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Service builds the per-organization analytics summary
type Service struct {
	repo   Repository
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new analytics service
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, logger: log, now: time.Now}
}

// Summary aggregates the caller's claims, appeals and patients over period.
// The four queries run concurrently; the first failure cancels the rest and fails the request.
func (s *Service) Summary(ctx context.Context, p *types.Principal, period types.AnalyticsPeriod) (*types.AnalyticsSummary, error) {
	if period == "" {
		period = types.DefaultPeriod
	}
	since, ok := period.Start(s.now().UTC())
	if !ok {
		return nil, types.NewBadRequestError("Invalid period. Use one of: 7d, 30d, 90d, 1y")
	}

	var (
		claims   []types.ClaimStat
		appeals  []types.AppealStat
		patients int
		reasons  []types.DenialReasonCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		claims, err = s.repo.ClaimStats(gctx, p.OrganizationID, since)
		return err
	})
	g.Go(func() (err error) {
		appeals, err = s.repo.AppealStats(gctx, p.OrganizationID, since)
		return err
	})
	g.Go(func() (err error) {
		patients, err = s.repo.CountPatients(gctx, p.OrganizationID)
		return err
	})
	g.Go(func() (err error) {
		reasons, err = s.repo.DenialReasons(gctx, p.OrganizationID, since, TopDenialReasons)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, types.NewInternalError("failed to load analytics", err)
	}

	return Summarize(period, claims, appeals, patients, reasons), nil
}

// Summarize folds the raw rows into the summary. Rates are percentages rounded to one decimal
// and are zero when their denominator is zero.
func Summarize(period types.AnalyticsPeriod, claims []types.ClaimStat, appeals []types.AppealStat, patients int, reasons []types.DenialReasonCount) *types.AnalyticsSummary {
	summary := &types.AnalyticsSummary{
		Period:           period,
		TotalClaims:      len(claims),
		TotalAppeals:     len(appeals),
		TotalPatients:    patients,
		ClaimsByStatus:   make(map[string]int),
		TopDenialReasons: reasons,
	}
	if summary.TopDenialReasons == nil {
		summary.TopDenialReasons = []types.DenialReasonCount{}
	}

	billed, paid := decimal.Zero, decimal.Zero
	for _, c := range claims {
		summary.ClaimsByStatus[c.Status]++
		billed = billed.Add(c.BilledAmount)
		if c.PaidAmount.Valid {
			paid = paid.Add(c.PaidAmount.Decimal)
		}
		if c.Status == string(types.ClaimStatusDenied) {
			summary.TotalDenials++
		}
	}

	for _, a := range appeals {
		switch types.AppealStatus(a.Status) {
		case types.AppealStatusWon:
			summary.AppealsWon++
		case types.AppealStatusLost:
			summary.AppealsLost++
		}
	}

	summary.TotalBilled = billed.Round(2).InexactFloat64()
	summary.TotalPaid = paid.Round(2).InexactFloat64()
	summary.DenialRate = percent(decimal.NewFromInt(int64(summary.TotalDenials)), decimal.NewFromInt(int64(summary.TotalClaims)))
	summary.RecoveryRate = percent(paid, billed)
	summary.AppealSuccessRate = percent(decimal.NewFromInt(int64(summary.AppealsWon)), decimal.NewFromInt(int64(summary.AppealsWon+summary.AppealsLost)))

	return summary
}

var hundred = decimal.NewFromInt(100)

func percent(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Mul(hundred).DivRound(whole, 4).Round(1).InexactFloat64()
}
