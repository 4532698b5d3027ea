package appeals

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const activitiesTable = "appeal_activities"

var appealColumns = []string{
	"id",
	"organization_id",
	"claim_id",
	"appeal_number",
	"appeal_level",
	"status",
	"appeal_letter",
	"deadline::text AS deadline",
	"submitted_at",
	"outcome_notes",
	"created_by",
	"created_at",
	"updated_at",
}

var activityColumns = []string{"id", "organization_id", "appeal_id", "action", "old_status", "new_status", "actor_id", "created_at"}

// Repository stores appeals. Every method is scoped to orgID.
type Repository interface {
	Get(ctx context.Context, orgID, id string) (*types.Appeal, error)
	List(ctx context.Context, orgID string, params types.ListParams) ([]types.Appeal, int, error)
	Insert(ctx context.Context, orgID string, values types.Payload) (*types.Appeal, error)
	Update(ctx context.Context, orgID, id string, values types.Payload) (*types.Appeal, error)
	// UpdateIf writes values only while the row still holds expected, else database.ErrConflict
	UpdateIf(ctx context.Context, orgID, id string, expected, values types.Payload) (*types.Appeal, error)
	Delete(ctx context.Context, orgID, id string) error
}

// ActivityRepository appends to and reads the audit trail of appeals. Rows are never updated.
type ActivityRepository interface {
	AddActivity(ctx context.Context, orgID string, activity *types.AppealActivity) error
	ListActivities(ctx context.Context, orgID, appealID string) ([]types.AppealActivity, error)
}

// ClaimStore is the part of the claim repository appeals depend on
type ClaimStore interface {
	Get(ctx context.Context, orgID, id string) (*types.Claim, error)
	Update(ctx context.Context, orgID, id string, values types.Payload) (*types.Claim, error)
}

// PostgresRepository implements Repository on the appeals table
type PostgresRepository struct {
	*database.ScopedTable[types.Appeal]
}

// NewRepository creates a new appeal repository
func NewRepository(db sqlx.ExtContext, observer database.Observer) *PostgresRepository {
	return &PostgresRepository{
		ScopedTable: database.NewScopedTable[types.Appeal](db, "appeals", appealColumns, []string{"appeal_number"}, observer),
	}
}

// PostgresActivityRepository implements ActivityRepository
type PostgresActivityRepository struct {
	db       sqlx.ExtContext
	observer database.Observer
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db sqlx.ExtContext, observer database.Observer) *PostgresActivityRepository {
	return &PostgresActivityRepository{db: db, observer: observer}
}

// AddActivity inserts activity under orgID and fills in its id and created_at
func (r *PostgresActivityRepository) AddActivity(ctx context.Context, orgID string, activity *types.AppealActivity) (err error) {
	defer database.Track(ctx, r.observer, "insert", activitiesTable, time.Now(), &err)

	query, args, err := database.StatementBuilder.
		Insert(activitiesTable).
		Columns("organization_id", "appeal_id", "action", "old_status", "new_status", "actor_id").
		Values(orgID, activity.AppealID, activity.Action, activity.OldStatus, activity.NewStatus, activity.ActorID).
		Suffix("RETURNING " + strings.Join(activityColumns, ", ")).
		ToSql()
	if err != nil {
		return err
	}

	if err := sqlx.GetContext(ctx, r.db, activity, query, args...); err != nil {
		return fmt.Errorf("failed to insert appeal activity: %w", err)
	}
	return nil
}

// ListActivities returns the activities of one appeal, newest first
func (r *PostgresActivityRepository) ListActivities(ctx context.Context, orgID, appealID string) (_ []types.AppealActivity, err error) {
	defer database.Track(ctx, r.observer, "list", activitiesTable, time.Now(), &err)

	items := make([]types.AppealActivity, 0)
	if !database.IsUUID(appealID) {
		return items, nil
	}

	query, args, err := database.StatementBuilder.
		Select(activityColumns...).
		From(activitiesTable).
		Where(sq.Eq{"appeal_id": appealID, "organization_id": orgID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, err
	}

	if err := sqlx.SelectContext(ctx, r.db, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appeal activities: %w", err)
	}
	return items, nil
}
