package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const (
	analysesTable = "claim_analyses"
	draftsTable   = "appeal_drafts"
)

var (
	analysisColumns = []string{"id", "organization_id", "claim_id", "result", "created_by", "created_at"}
	draftColumns    = []string{"id", "organization_id", "claim_id", "appeal_id", "content", "created_by", "created_at"}
)

// Repository persists inference results verbatim
type Repository interface {
	InsertAnalysis(ctx context.Context, orgID string, analysis *types.ClaimAnalysis) error
	InsertDraft(ctx context.Context, orgID string, draft *types.AppealDraft) error
}

// ClaimReader looks up a claim of an organization
type ClaimReader interface {
	Get(ctx context.Context, orgID, id string) (*types.Claim, error)
}

// AppealReader looks up an appeal of an organization
type AppealReader interface {
	Get(ctx context.Context, orgID, id string) (*types.Appeal, error)
}

// PostgresRepository implements Repository
type PostgresRepository struct {
	db       sqlx.ExtContext
	observer database.Observer
}

// NewRepository creates a new inference result repository
func NewRepository(db sqlx.ExtContext, observer database.Observer) *PostgresRepository {
	return &PostgresRepository{db: db, observer: observer}
}

// InsertAnalysis stores a denial-risk result under orgID
func (r *PostgresRepository) InsertAnalysis(ctx context.Context, orgID string, analysis *types.ClaimAnalysis) (err error) {
	defer database.Track(ctx, r.observer, "insert", analysesTable, time.Now(), &err)

	query, args, err := database.StatementBuilder.
		Insert(analysesTable).
		Columns("organization_id", "claim_id", "result", "created_by").
		Values(orgID, analysis.ClaimID, analysis.Result, analysis.CreatedBy).
		Suffix("RETURNING " + strings.Join(analysisColumns, ", ")).
		ToSql()
	if err != nil {
		return err
	}

	if err := sqlx.GetContext(ctx, r.db, analysis, query, args...); err != nil {
		return fmt.Errorf("failed to insert claim analysis: %w", err)
	}
	return nil
}

// InsertDraft stores an appeal letter draft under orgID
func (r *PostgresRepository) InsertDraft(ctx context.Context, orgID string, draft *types.AppealDraft) (err error) {
	defer database.Track(ctx, r.observer, "insert", draftsTable, time.Now(), &err)

	query, args, err := database.StatementBuilder.
		Insert(draftsTable).
		Columns("organization_id", "claim_id", "appeal_id", "content", "created_by").
		Values(orgID, draft.ClaimID, draft.AppealID, draft.Content, draft.CreatedBy).
		Suffix("RETURNING " + strings.Join(draftColumns, ", ")).
		ToSql()
	if err != nil {
		return err
	}

	if err := sqlx.GetContext(ctx, r.db, draft, query, args...); err != nil {
		return fmt.Errorf("failed to insert appeal draft: %w", err)
	}
	return nil
}
