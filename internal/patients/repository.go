package patients

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

var patientColumns = []string{
	"id",
	"organization_id",
	"mrn",
	"first_name",
	"last_name",
	"date_of_birth::text AS date_of_birth",
	"gender",
	"email",
	"phone",
	"insurance_provider",
	"insurance_id",
	"status",
	"created_by",
	"created_at",
	"updated_at",
}

var searchColumns = []string{"first_name", "last_name", "mrn"}

// Repository stores patients. Every method is scoped to orgID.
type Repository interface {
	Get(ctx context.Context, orgID, id string) (*types.Patient, error)
	List(ctx context.Context, orgID string, params types.ListParams) ([]types.Patient, int, error)
	Insert(ctx context.Context, orgID string, values types.Payload) (*types.Patient, error)
	Update(ctx context.Context, orgID, id string, values types.Payload) (*types.Patient, error)
	Delete(ctx context.Context, orgID, id string) error
}

// PostgresRepository implements Repository on the patients table
type PostgresRepository struct {
	*database.ScopedTable[types.Patient]
}

// NewRepository creates a new patient repository
func NewRepository(db sqlx.ExtContext, observer database.Observer) *PostgresRepository {
	return &PostgresRepository{
		ScopedTable: database.NewScopedTable[types.Patient](db, "patients", patientColumns, searchColumns, observer),
	}
}
