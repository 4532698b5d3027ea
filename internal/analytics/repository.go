package analytics

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

// TopDenialReasons is the number of reasons reported by the summary
const TopDenialReasons = 5

// Repository runs the read-only aggregate queries behind the analytics summary.
// Every query is scoped to orgID.
type Repository interface {
	ClaimStats(ctx context.Context, orgID string, since time.Time) ([]types.ClaimStat, error)
	AppealStats(ctx context.Context, orgID string, since time.Time) ([]types.AppealStat, error)
	CountPatients(ctx context.Context, orgID string) (int, error)
	DenialReasons(ctx context.Context, orgID string, since time.Time, limit int) ([]types.DenialReasonCount, error)
}

// PostgresRepository implements Repository
type PostgresRepository struct {
	db       sqlx.QueryerContext
	observer database.Observer
}

// NewRepository creates a new analytics repository
func NewRepository(db sqlx.QueryerContext, observer database.Observer) *PostgresRepository {
	return &PostgresRepository{db: db, observer: observer}
}

// ClaimStats returns the claims created since the given time
func (r *PostgresRepository) ClaimStats(ctx context.Context, orgID string, since time.Time) (_ []types.ClaimStat, err error) {
	defer database.Track(ctx, r.observer, "aggregate", "claims", time.Now(), &err)

	query, args, err := database.StatementBuilder.
		Select("status", "billed_amount", "paid_amount", "denial_reason").
		From("claims").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return nil, err
	}

	stats := make([]types.ClaimStat, 0)
	if err := sqlx.SelectContext(ctx, r.db, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load claim stats: %w", err)
	}
	return stats, nil
}

// AppealStats returns the appeals created since the given time
func (r *PostgresRepository) AppealStats(ctx context.Context, orgID string, since time.Time) (_ []types.AppealStat, err error) {
	defer database.Track(ctx, r.observer, "aggregate", "appeals", time.Now(), &err)

	query, args, err := database.StatementBuilder.
		Select("status").
		From("appeals").
		Where(sq.Eq{"organization_id": orgID}).
		Where(sq.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return nil, err
	}

	stats := make([]types.AppealStat, 0)
	if err := sqlx.SelectContext(ctx, r.db, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load appeal stats: %w", err)
	}
	return stats, nil
}

// CountPatients returns the number of patients of the organization
func (r *PostgresRepository) CountPatients(ctx context.Context, orgID string) (_ int, err error) {
	defer database.Track(ctx, r.observer, "aggregate", "patients", time.Now(), &err)

	query, args, err := database.StatementBuilder.
		Select("COUNT(*)").
		From("patients").
		Where(sq.Eq{"organization_id": orgID}).
		ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return count, nil
}

// DenialReasons returns the most frequent denial reasons since the given time
func (r *PostgresRepository) DenialReasons(ctx context.Context, orgID string, since time.Time, limit int) (_ []types.DenialReasonCount, err error) {
	defer database.Track(ctx, r.observer, "aggregate", "claims", time.Now(), &err)

	query, args, err := database.StatementBuilder.
		Select("denial_reason AS reason", "COUNT(*) AS count").
		From("claims").
		Where(sq.Eq{"organization_id": orgID, "status": string(types.ClaimStatusDenied)}).
		Where(sq.NotEq{"denial_reason": nil}).
		Where(sq.GtOrEq{"created_at": since}).
		GroupBy("denial_reason").
		OrderBy("count DESC", "reason").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	reasons := make([]types.DenialReasonCount, 0)
	if err := sqlx.SelectContext(ctx, r.db, &reasons, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load denial reasons: %w", err)
	}
	return reasons, nil
}
