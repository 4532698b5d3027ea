package database

import (
	"context"
	"fmt"
)

// CreateSchema bootstraps the tables used by the API. Every statement is idempotent.
func (db *DB) CreateSchema(ctx context.Context) error {
	log := db.logger.WithComponent("database")
	log.Info("Creating database schema...")

	if _, err := db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS "pgcrypto";`); err != nil {
		return fmt.Errorf("failed to create extensions: %w", err)
	}

	tables := []string{
		createOrganizationsTable,
		createProfilesTable,
		createPatientsTable,
		createClaimsTable,
		createAppealsTable,
		createAppealActivitiesTable,
		createClaimAnalysesTable,
		createAppealDraftsTable,
		createDemoRequestsTable,
	}

	for _, table := range tables {
		if _, err := db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []string{
		createPatientsIndexes,
		createClaimsIndexes,
		createAppealsIndexes,
	}

	for _, index := range indexes {
		if _, err := db.ExecContext(ctx, index); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	log.Info("Database schema created successfully")
	return nil
}

const (
	createOrganizationsTable = `
		CREATE TABLE IF NOT EXISTS organizations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createProfilesTable = `
		CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			organization_id UUID REFERENCES organizations(id),
			email TEXT,
			full_name TEXT,
			role TEXT NOT NULL DEFAULT 'viewer',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createPatientsTable = `
		CREATE TABLE IF NOT EXISTS patients (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID NOT NULL REFERENCES organizations(id),
			mrn TEXT NOT NULL,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			date_of_birth DATE NOT NULL,
			gender TEXT,
			email TEXT,
			phone TEXT,
			insurance_provider TEXT,
			insurance_id TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			created_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (organization_id, mrn)
		);`

	createClaimsTable = `
		CREATE TABLE IF NOT EXISTS claims (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID NOT NULL REFERENCES organizations(id),
			patient_id UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
			claim_number TEXT NOT NULL,
			payer_name TEXT NOT NULL,
			service_date DATE NOT NULL,
			billed_amount NUMERIC(12,2) NOT NULL,
			paid_amount NUMERIC(12,2),
			status TEXT NOT NULL DEFAULT 'submitted',
			denial_reason TEXT,
			denial_code TEXT,
			procedure_codes JSONB,
			diagnosis_codes JSONB,
			notes TEXT,
			created_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (organization_id, claim_number)
		);`

	createAppealsTable = `
		CREATE TABLE IF NOT EXISTS appeals (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID NOT NULL REFERENCES organizations(id),
			claim_id UUID NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			appeal_number TEXT NOT NULL,
			appeal_level INTEGER NOT NULL DEFAULT 1,
			status TEXT NOT NULL DEFAULT 'draft',
			appeal_letter TEXT,
			deadline DATE,
			submitted_at TIMESTAMPTZ,
			outcome_notes TEXT,
			created_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (organization_id, appeal_number)
		);`

	// appeal_activities is append-only. appeal_id carries no foreign key so the trail
	// outlives deleted appeals, claims and patients.
	createAppealActivitiesTable = `
		CREATE TABLE IF NOT EXISTS appeal_activities (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID NOT NULL REFERENCES organizations(id),
			appeal_id UUID NOT NULL,
			action TEXT NOT NULL,
			old_status TEXT,
			new_status TEXT,
			actor_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createClaimAnalysesTable = `
		CREATE TABLE IF NOT EXISTS claim_analyses (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID NOT NULL REFERENCES organizations(id),
			claim_id UUID NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			result JSONB NOT NULL,
			created_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createAppealDraftsTable = `
		CREATE TABLE IF NOT EXISTS appeal_drafts (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			organization_id UUID NOT NULL REFERENCES organizations(id),
			claim_id UUID NOT NULL REFERENCES claims(id) ON DELETE CASCADE,
			appeal_id UUID REFERENCES appeals(id) ON DELETE SET NULL,
			content JSONB NOT NULL,
			created_by UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createDemoRequestsTable = `
		CREATE TABLE IF NOT EXISTS demo_requests (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email TEXT NOT NULL,
			full_name TEXT NOT NULL,
			company TEXT NOT NULL,
			phone TEXT,
			message TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`

	createPatientsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_patients_org_created ON patients(organization_id, created_at DESC);`

	createClaimsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_claims_org_created ON claims(organization_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_claims_org_status ON claims(organization_id, status);
		CREATE INDEX IF NOT EXISTS idx_claims_patient_id ON claims(patient_id);`

	createAppealsIndexes = `
		CREATE INDEX IF NOT EXISTS idx_appeals_org_created ON appeals(organization_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_appeals_claim_id ON appeals(claim_id);
		CREATE INDEX IF NOT EXISTS idx_appeal_activities_appeal_id ON appeal_activities(appeal_id, created_at DESC);`
)
