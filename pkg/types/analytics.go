package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnalyticsPeriod is a lookback window accepted by the analytics endpoint
type AnalyticsPeriod string

const (
	Period7Days   AnalyticsPeriod = "7d"
	Period30Days  AnalyticsPeriod = "30d"
	Period90Days  AnalyticsPeriod = "90d"
	Period1Year   AnalyticsPeriod = "1y"
	DefaultPeriod                 = Period30Days
)

// Start returns the beginning of the window ending at now
func (p AnalyticsPeriod) Start(now time.Time) (time.Time, bool) {
	switch p {
	case Period7Days:
		return now.AddDate(0, 0, -7), true
	case Period30Days:
		return now.AddDate(0, 0, -30), true
	case Period90Days:
		return now.AddDate(0, 0, -90), true
	case Period1Year:
		return now.AddDate(-1, 0, 0), true
	}
	return time.Time{}, false
}

// ClaimStat is the projection of a claim the analytics aggregation needs
type ClaimStat struct {
	Status       string              `db:"status"`
	BilledAmount decimal.Decimal     `db:"billed_amount"`
	PaidAmount   decimal.NullDecimal `db:"paid_amount"`
	DenialReason *string             `db:"denial_reason"`
}

// AppealStat is the projection of an appeal the analytics aggregation needs
type AppealStat struct {
	Status string `db:"status"`
}

// DenialReasonCount is one row of the top denial reasons
type DenialReasonCount struct {
	Reason string `json:"reason" db:"reason"`
	Count  int    `json:"count" db:"count"`
}

// AnalyticsSummary is the analytics response payload
type AnalyticsSummary struct {
	Period            AnalyticsPeriod     `json:"period"`
	TotalClaims       int                 `json:"total_claims"`
	TotalDenials      int                 `json:"total_denials"`
	DenialRate        float64             `json:"denial_rate"`
	TotalBilled       float64             `json:"total_billed"`
	TotalPaid         float64             `json:"total_paid"`
	RecoveryRate      float64             `json:"recovery_rate"`
	TotalAppeals      int                 `json:"total_appeals"`
	AppealsWon        int                 `json:"appeals_won"`
	AppealsLost       int                 `json:"appeals_lost"`
	AppealSuccessRate float64             `json:"appeal_success_rate"`
	TotalPatients     int                 `json:"total_patients"`
	ClaimsByStatus    map[string]int      `json:"claims_by_status"`
	TopDenialReasons  []DenialReasonCount `json:"top_denial_reasons"`
}
