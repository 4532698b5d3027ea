package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

const profilesTable = "profiles"

var profileColumns = []string{"id", "organization_id", "email", "full_name", "role", "created_at", "updated_at"}

// Repository reads and updates profiles. Profiles are keyed by the auth user id
// rather than by organization.
type Repository interface {
	GetProfile(ctx context.Context, userID string) (*types.Profile, error)
	UpdateProfile(ctx context.Context, userID string, values types.Payload) (*types.Profile, error)
}

// PostgresRepository implements Repository
type PostgresRepository struct {
	db       sqlx.ExtContext
	observer database.Observer
}

// NewRepository creates a new profile repository
func NewRepository(db sqlx.ExtContext, observer database.Observer) *PostgresRepository {
	return &PostgresRepository{db: db, observer: observer}
}

// GetProfile returns the profile for userID or database.ErrNotFound
func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (_ *types.Profile, err error) {
	defer database.Track(ctx, r.observer, "select", profilesTable, time.Now(), &err)

	if !database.IsUUID(userID) {
		return nil, database.ErrNotFound
	}

	query, args, err := database.StatementBuilder.
		Select(profileColumns...).
		From(profilesTable).
		Where(sq.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var p types.Profile
	if err := sqlx.GetContext(ctx, r.db, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &p, nil
}

// UpdateProfile applies values to the caller's own profile
func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID string, values types.Payload) (_ *types.Profile, err error) {
	defer database.Track(ctx, r.observer, "update", profilesTable, time.Now(), &err)

	if !database.IsUUID(userID) {
		return nil, database.ErrNotFound
	}

	query, args, err := database.StatementBuilder.
		Update(profilesTable).
		SetMap(values).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": userID}).
		Suffix("RETURNING " + strings.Join(profileColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	var p types.Profile
	if err := sqlx.GetContext(ctx, r.db, &p, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &p, nil
}
