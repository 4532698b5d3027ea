package types

import "time"

// Patient belongs to one organization; (organization_id, mrn) is unique
type Patient struct {
	ID                string    `json:"id" db:"id"`
	OrganizationID    string    `json:"organization_id" db:"organization_id"`
	MRN               string    `json:"mrn" db:"mrn"`
	FirstName         string    `json:"first_name" db:"first_name"`
	LastName          string    `json:"last_name" db:"last_name"`
	DateOfBirth       string    `json:"date_of_birth" db:"date_of_birth"`
	Gender            *string   `json:"gender" db:"gender"`
	Email             *string   `json:"email" db:"email"`
	Phone             *string   `json:"phone" db:"phone"`
	InsuranceProvider *string   `json:"insurance_provider" db:"insurance_provider"`
	InsuranceID       *string   `json:"insurance_id" db:"insurance_id"`
	Status            string    `json:"status" db:"status"`
	CreatedBy         *string   `json:"created_by" db:"created_by"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

const PatientStatusActive = "active"

// ClaimStatus represents claim status values
type ClaimStatus string

const (
	ClaimStatusDraft         ClaimStatus = "draft"
	ClaimStatusSubmitted     ClaimStatus = "submitted"
	ClaimStatusPending       ClaimStatus = "pending"
	ClaimStatusDenied        ClaimStatus = "denied"
	ClaimStatusAppealed      ClaimStatus = "appealed"
	ClaimStatusPaid          ClaimStatus = "paid"
	ClaimStatusPartiallyPaid ClaimStatus = "partially_paid"
)

// Claim belongs to one organization and one patient; (organization_id, claim_number) is unique
type Claim struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	PatientID      string    `json:"patient_id" db:"patient_id"`
	ClaimNumber    string    `json:"claim_number" db:"claim_number"`
	PayerName      string    `json:"payer_name" db:"payer_name"`
	ServiceDate    string    `json:"service_date" db:"service_date"`
	BilledAmount   float64   `json:"billed_amount" db:"billed_amount"`
	PaidAmount     *float64  `json:"paid_amount" db:"paid_amount"`
	Status         string    `json:"status" db:"status"`
	DenialReason   *string   `json:"denial_reason" db:"denial_reason"`
	DenialCode     *string   `json:"denial_code" db:"denial_code"`
	ProcedureCodes JSON      `json:"procedure_codes" db:"procedure_codes"`
	DiagnosisCodes JSON      `json:"diagnosis_codes" db:"diagnosis_codes"`
	Notes          *string   `json:"notes" db:"notes"`
	CreatedBy      *string   `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`

	Patient *Patient `json:"patient,omitempty" db:"-"`
}

// AppealStatus represents appeal status values
type AppealStatus string

const (
	AppealStatusDraft     AppealStatus = "draft"
	AppealStatusSubmitted AppealStatus = "submitted"
	AppealStatusInReview  AppealStatus = "in_review"
	AppealStatusWon       AppealStatus = "won"
	AppealStatusLost      AppealStatus = "lost"
)

// Appeal belongs to one organization and one claim
type Appeal struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	ClaimID        string     `json:"claim_id" db:"claim_id"`
	AppealNumber   string     `json:"appeal_number" db:"appeal_number"`
	AppealLevel    int        `json:"appeal_level" db:"appeal_level"`
	Status         string     `json:"status" db:"status"`
	AppealLetter   *string    `json:"appeal_letter" db:"appeal_letter"`
	Deadline       *string    `json:"deadline" db:"deadline"`
	SubmittedAt    *time.Time `json:"submitted_at" db:"submitted_at"`
	OutcomeNotes   *string    `json:"outcome_notes" db:"outcome_notes"`
	CreatedBy      *string    `json:"created_by" db:"created_by"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`

	Claim      *Claim           `json:"claim,omitempty" db:"-"`
	Activities []AppealActivity `json:"activities,omitempty" db:"-"`
}

// AppealActivity is an append-only audit row for an appeal
type AppealActivity struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	AppealID       string    `json:"appeal_id" db:"appeal_id"`
	Action         string    `json:"action" db:"action"`
	OldStatus      *string   `json:"old_status" db:"old_status"`
	NewStatus      *string   `json:"new_status" db:"new_status"`
	ActorID        *string   `json:"actor_id" db:"actor_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

const (
	ActivityCreated       = "created"
	ActivityStatusChanged = "status_changed"
)

// ClaimAnalysis is a denial-risk result persisted verbatim from the AI service
type ClaimAnalysis struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	ClaimID        string    `json:"claim_id" db:"claim_id"`
	Result         JSON      `json:"result" db:"result"`
	CreatedBy      *string   `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// AppealDraft is an appeal letter persisted verbatim from the AI service
type AppealDraft struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	ClaimID        string    `json:"claim_id" db:"claim_id"`
	AppealID       *string   `json:"appeal_id" db:"appeal_id"`
	Content        JSON      `json:"content" db:"content"`
	CreatedBy      *string   `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// DemoRequest is a public demo signup. It is not tenant owned.
type DemoRequest struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name" db:"full_name"`
	Company   string    `json:"company" db:"company"`
	Phone     *string   `json:"phone" db:"phone"`
	Message   *string   `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
