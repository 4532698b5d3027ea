package crm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const demoRequestsTable = "demo_requests"

var demoRequestColumns = []string{"id", "email", "full_name", "company", "phone", "message", "created_at"}

// Repository stores public demo requests. They belong to no organization.
type Repository interface {
	InsertDemoRequest(ctx context.Context, req *types.DemoRequest) error
}

// PostgresRepository implements Repository
type PostgresRepository struct {
	db       sqlx.ExtContext
	observer database.Observer
}

// NewRepository creates a new demo request repository
func NewRepository(db sqlx.ExtContext, observer database.Observer) *PostgresRepository {
	return &PostgresRepository{db: db, observer: observer}
}

// InsertDemoRequest stores req and fills in its id and created_at
func (r *PostgresRepository) InsertDemoRequest(ctx context.Context, req *types.DemoRequest) (err error) {
	defer database.Track(ctx, r.observer, "insert", demoRequestsTable, time.Now(), &err)

	query, args, err := database.StatementBuilder.
		Insert(demoRequestsTable).
		Columns("email", "full_name", "company", "phone", "message").
		Values(req.Email, req.FullName, req.Company, req.Phone, req.Message).
		Suffix("RETURNING " + strings.Join(demoRequestColumns, ", ")).
		ToSql()
	if err != nil {
		return err
	}

	if err := sqlx.GetContext(ctx, r.db, req, query, args...); err != nil {
		return fmt.Errorf("failed to insert demo request: %w", err)
	}
	return nil
}
