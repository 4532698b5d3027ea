package claims

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/database"
	"github.com/ums222/ClarityClaim-AI-sub001/pkg/types"
)

var claimColumns = []string{
	"id",
	"organization_id",
	"patient_id",
	"claim_number",
	"payer_name",
	"service_date::text AS service_date",
	"billed_amount",
	"paid_amount",
	"status",
	"denial_reason",
	"denial_code",
	"procedure_codes",
	"diagnosis_codes",
	"notes",
	"created_by",
	"created_at",
	"updated_at",
}

var searchColumns = []string{"claim_number", "payer_name"}

// Repository stores claims. Every method is scoped to orgID.
type Repository interface {
	Get(ctx context.Context, orgID, id string) (*types.Claim, error)
	List(ctx context.Context, orgID string, params types.ListParams) ([]types.Claim, int, error)
	Insert(ctx context.Context, orgID string, values types.Payload) (*types.Claim, error)
	Update(ctx context.Context, orgID, id string, values types.Payload) (*types.Claim, error)
	Delete(ctx context.Context, orgID, id string) error
}

// PatientReader looks up a patient of an organization
type PatientReader interface {
	Get(ctx context.Context, orgID, id string) (*types.Patient, error)
}

// PostgresRepository implements Repository on the claims table
type PostgresRepository struct {
	*database.ScopedTable[types.Claim]
}

// NewRepository creates a new claim repository
func NewRepository(db sqlx.ExtContext, observer database.Observer) *PostgresRepository {
	return &PostgresRepository{
		ScopedTable: database.NewScopedTable[types.Claim](db, "claims", claimColumns, searchColumns, observer),
	}
}
