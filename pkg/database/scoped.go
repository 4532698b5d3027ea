package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

var (
	// ErrNotFound is returned when no row matches both the id and the organization
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert or update violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned by UpdateIf when the row no longer holds the expected values
	ErrConflict = errors.New("record changed concurrently")
)

const uniqueViolation = "23505"

// StatementBuilder builds Postgres ($n) placeholder queries
var StatementBuilder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// IsUniqueViolation reports whether err is a Postgres unique constraint violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// Observer is notified after every query a ScopedTable issues
type Observer interface {
	ObserveQuery(ctx context.Context, operation, table string, duration time.Duration, err error)
}

// ScopedTable performs CRUD on a tenant-owned table. Every statement it builds carries
// organization_id = orgID; there is no method that reads or writes without it.
type ScopedTable[T any] struct {
	db       sqlx.ExtContext
	name     string
	columns  []string
	search   []string
	observer Observer
}

// NewScopedTable creates a scoped table. columns is the select/returning list and may
// contain expressions such as "service_date::text AS service_date". search lists the
// columns matched case-insensitively by ListParams.Search.
func NewScopedTable[T any](db sqlx.ExtContext, name string, columns, search []string, observer Observer) *ScopedTable[T] {
	return &ScopedTable[T]{
		db:       db,
		name:     name,
		columns:  columns,
		search:   search,
		observer: observer,
	}
}

// Name returns the table name
func (t *ScopedTable[T]) Name() string {
	return t.name
}

// Get returns the row with id owned by orgID
func (t *ScopedTable[T]) Get(ctx context.Context, orgID, id string) (_ *T, err error) {
	defer t.observe(ctx, "select", time.Now(), &err)

	if !IsUUID(id) {
		return nil, ErrNotFound
	}

	query, args, err := StatementBuilder.
		Select(t.columns...).
		From(t.name).
		Where(sq.Eq{"id": id, "organization_id": orgID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row T
	if err := sqlx.GetContext(ctx, t.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s row: %w", t.name, err)
	}

	return &row, nil
}

// List returns one page of rows owned by orgID, newest first, and the total match count
func (t *ScopedTable[T]) List(ctx context.Context, orgID string, params types.ListParams) (_ []T, _ int, err error) {
	defer t.observe(ctx, "list", time.Now(), &err)

	params.Normalize()
	items := make([]T, 0)

	where := sq.And{sq.Eq{"organization_id": orgID}}
	if params.Status != "" {
		where = append(where, sq.Eq{"status": params.Status})
	}

	keys := make([]string, 0, len(params.Filters))
	for k := range params.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := params.Filters[k]
		if strings.HasSuffix(k, "_id") && !IsUUID(v) {
			// a malformed foreign key can match nothing
			return items, 0, nil
		}
		where = append(where, sq.Eq{k: v})
	}

	if params.Search != "" && len(t.search) > 0 {
		pattern := "%" + escapeLike(params.Search) + "%"
		match := sq.Or{}
		for _, col := range t.search {
			match = append(match, sq.ILike{col: pattern})
		}
		where = append(where, match)
	}

	countQuery, countArgs, err := StatementBuilder.Select("COUNT(*)").From(t.name).Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := sqlx.GetContext(ctx, t.db, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count %s rows: %w", t.name, err)
	}

	// pages past the last one are empty; this also keeps huge page numbers out of OFFSET
	if params.Page > types.NewPagination(params.Page, params.Limit, total).TotalPages {
		return items, total, nil
	}

	query, args, err := StatementBuilder.
		Select(t.columns...).
		From(t.name).
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(params.Limit)).
		Offset(uint64(params.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	if err := sqlx.SelectContext(ctx, t.db, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list %s rows: %w", t.name, err)
	}

	return items, total, nil
}

// Insert stamps organization_id = orgID on values and inserts the row
func (t *ScopedTable[T]) Insert(ctx context.Context, orgID string, values types.Payload) (_ *T, err error) {
	defer t.observe(ctx, "insert", time.Now(), &err)

	clauses, err := normalize(values)
	if err != nil {
		return nil, err
	}
	clauses["organization_id"] = orgID

	query, args, err := StatementBuilder.
		Insert(t.name).
		SetMap(clauses).
		Suffix("RETURNING " + strings.Join(t.columns, ", ")).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row T
	if err := sqlx.GetContext(ctx, t.db, &row, query, args...); err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return nil, fmt.Errorf("failed to insert %s row: %w", t.name, err)
	}

	return &row, nil
}

// Update applies values to the row with id owned by orgID and bumps updated_at
func (t *ScopedTable[T]) Update(ctx context.Context, orgID, id string, values types.Payload) (*T, error) {
	if len(values) == 0 {
		return t.Get(ctx, orgID, id)
	}
	return t.update(ctx, orgID, id, nil, values)
}

// UpdateIf is Update guarded by expected: the row is only written while its columns
// still hold those values. A row that exists but no longer matches yields ErrConflict.
func (t *ScopedTable[T]) UpdateIf(ctx context.Context, orgID, id string, expected, values types.Payload) (*T, error) {
	row, err := t.update(ctx, orgID, id, sq.Eq(expected), values)
	if !errors.Is(err, ErrNotFound) || !IsUUID(id) {
		return row, err
	}
	if _, getErr := t.Get(ctx, orgID, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrConflict
}

func (t *ScopedTable[T]) update(ctx context.Context, orgID, id string, expected sq.Eq, values types.Payload) (_ *T, err error) {
	defer t.observe(ctx, "update", time.Now(), &err)

	if !IsUUID(id) {
		return nil, ErrNotFound
	}

	clauses, err := normalize(values)
	if err != nil {
		return nil, err
	}

	builder := StatementBuilder.
		Update(t.name).
		SetMap(clauses).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id, "organization_id": orgID})
	if len(expected) > 0 {
		builder = builder.Where(expected)
	}

	query, args, err := builder.Suffix("RETURNING " + strings.Join(t.columns, ", ")).ToSql()
	if err != nil {
		return nil, err
	}

	var row T
	if err := sqlx.GetContext(ctx, t.db, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return nil, fmt.Errorf("failed to update %s row: %w", t.name, err)
	}

	return &row, nil
}

// Delete removes the row with id owned by orgID. A second delete returns ErrNotFound.
func (t *ScopedTable[T]) Delete(ctx context.Context, orgID, id string) (err error) {
	defer t.observe(ctx, "delete", time.Now(), &err)

	if !IsUUID(id) {
		return ErrNotFound
	}

	query, args, err := StatementBuilder.
		Delete(t.name).
		Where(sq.Eq{"id": id, "organization_id": orgID}).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return err
	}

	var deleted string
	if err := sqlx.GetContext(ctx, t.db, &deleted, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s row: %w", t.name, err)
	}

	return nil
}

func (t *ScopedTable[T]) observe(ctx context.Context, operation string, start time.Time, err *error) {
	Track(ctx, t.observer, operation, t.name, start, err)
}

// Track reports a finished query to o. ErrNotFound is an answer, not a failure.
// Call it deferred with a pointer to the named error result.
func Track(ctx context.Context, o Observer, operation, table string, start time.Time, err *error) {
	if o == nil {
		return
	}
	var e error
	if err != nil && *err != nil && !errors.Is(*err, ErrNotFound) {
		e = *err
	}
	o.ObserveQuery(ctx, operation, table, time.Since(start), e)
}

// normalize encodes nested JSON values so they can be bound to jsonb columns
func normalize(values types.Payload) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(values)+1)
	for k, v := range values {
		switch v.(type) {
		case []interface{}, map[string]interface{}:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("failed to encode %s: %w", k, err)
			}
			out[k] = string(b)
		default:
			out[k] = v
		}
	}
	return out, nil
}

// IsUUID reports whether s parses as a UUID. Ids that do not can match no row.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
