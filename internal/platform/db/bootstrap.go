package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Bootstrapper creates the schema idempotently at startup: tables first,
// then cleanup of rows that would violate the unique constraints (keeping
// the lowest-id row per duplicate group), then the constraints themselves,
// then indexes. Seeding is a separate step (Seed).
type Bootstrapper struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewBootstrapper(pool *pgxpool.Pool, logger zerolog.Logger) *Bootstrapper {
	return &Bootstrapper{pool: pool, logger: logger}
}

var createTables = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		cpf TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		phone TEXT,
		roles TEXT[] NOT NULL,
		birth_date DATE,
		street TEXT,
		number TEXT,
		district TEXT,
		city TEXT,
		state TEXT,
		zip_code TEXT,
		subscription_status TEXT NOT NULL DEFAULT 'pending',
		subscription_expires_at TIMESTAMPTZ,
		percentage INT NOT NULL DEFAULT 0,
		category_id UUID,
		photo_url TEXT,
		affiliate_code TEXT,
		affiliate_id UUID,
		referral_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS service_categories (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS services (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		category_id UUID REFERENCES service_categories(id),
		price BIGINT NOT NULL,
		is_base BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS dependents (
		id UUID PRIMARY KEY,
		client_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		cpf TEXT NOT NULL,
		birth_date DATE,
		subscription_status TEXT NOT NULL DEFAULT 'pending',
		subscription_expires_at TIMESTAMPTZ,
		gateway_payment_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS private_patients (
		id UUID PRIMARY KEY,
		professional_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		cpf TEXT,
		phone TEXT,
		email TEXT,
		birth_date DATE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_locations (
		id UUID PRIMARY KEY,
		professional_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		address TEXT,
		city TEXT,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS consultations (
		id UUID PRIMARY KEY,
		professional_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		client_id UUID REFERENCES users(id) ON DELETE CASCADE,
		dependent_id UUID REFERENCES dependents(id) ON DELETE CASCADE,
		private_patient_id UUID REFERENCES private_patients(id) ON DELETE CASCADE,
		service_id UUID NOT NULL REFERENCES services(id),
		location_id UUID REFERENCES attendance_locations(id) ON DELETE SET NULL,
		value BIGINT NOT NULL,
		scheduled_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'completed',
		notes TEXT,
		cancelled_at TIMESTAMPTZ,
		cancelled_by UUID,
		cancel_reason TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT consultations_one_patient CHECK (
			(client_id IS NOT NULL)::int +
			(dependent_id IS NOT NULL)::int +
			(private_patient_id IS NOT NULL)::int = 1
		)
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id UUID PRIMARY KEY,
		professional_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		client_id UUID REFERENCES users(id) ON DELETE CASCADE,
		dependent_id UUID REFERENCES dependents(id) ON DELETE CASCADE,
		private_patient_id UUID REFERENCES private_patients(id) ON DELETE CASCADE,
		service_id UUID REFERENCES services(id),
		location_id UUID REFERENCES attendance_locations(id) ON DELETE SET NULL,
		date DATE NOT NULL,
		time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'scheduled',
		notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS medical_records (
		id UUID PRIMARY KEY,
		professional_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		private_patient_id UUID NOT NULL REFERENCES private_patients(id) ON DELETE CASCADE,
		chief_complaint TEXT,
		history TEXT,
		medications TEXT,
		allergies TEXT,
		examination TEXT,
		diagnosis TEXT,
		treatment_plan TEXT,
		notes TEXT,
		vital_signs JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS medical_documents (
		id UUID PRIMARY KEY,
		professional_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		private_patient_id UUID NOT NULL REFERENCES private_patients(id) ON DELETE CASCADE,
		record_id UUID REFERENCES medical_records(id) ON DELETE SET NULL,
		title TEXT NOT NULL,
		kind TEXT NOT NULL,
		url TEXT NOT NULL,
		template_inputs JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS affiliate_referrals (
		id UUID PRIMARY KEY,
		affiliate_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		visitor_id TEXT NOT NULL,
		referral_code TEXT NOT NULL,
		metadata JSONB,
		user_id UUID REFERENCES users(id) ON DELETE SET NULL,
		converted BOOLEAN NOT NULL DEFAULT FALSE,
		converted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS client_payments (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount BIGINT NOT NULL,
		external_reference TEXT NOT NULL,
		preference_id TEXT,
		gateway_payment_id TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS dependent_payments (
		id UUID PRIMARY KEY,
		dependent_id UUID NOT NULL REFERENCES dependents(id) ON DELETE CASCADE,
		amount BIGINT NOT NULL,
		external_reference TEXT NOT NULL,
		preference_id TEXT,
		gateway_payment_id TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS professional_payments (
		id UUID PRIMARY KEY,
		professional_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount BIGINT NOT NULL,
		external_reference TEXT NOT NULL,
		preference_id TEXT,
		gateway_payment_id TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		processed_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS scheduling_access (
		id UUID PRIMARY KEY,
		professional_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		granted_by UUID,
		granted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL,
		reason TEXT
	)`,
}

// cleanup statements remove rows that would violate the unique constraints
// created right after, keeping the lowest id per duplicate group.
type cleanup struct {
	name string
	sql  string
}

var cleanups = []cleanup{
	{"users duplicate cpf", `DELETE FROM users a USING users b
		WHERE a.cpf = b.cpf AND a.id > b.id`},
	{"dependents duplicate cpf", `DELETE FROM dependents a USING dependents b
		WHERE a.cpf = b.cpf AND a.id > b.id`},
	{"private patients duplicate cpf per professional", `DELETE FROM private_patients a USING private_patients b
		WHERE a.professional_id = b.professional_id AND a.cpf IS NOT NULL
		AND a.cpf = b.cpf AND a.id > b.id`},
	{"service categories duplicate name", `DELETE FROM service_categories a USING service_categories b
		WHERE a.name = b.name AND a.id > b.id`},
	{"appointments duplicate slot", `DELETE FROM appointments a USING appointments b
		WHERE a.professional_id = b.professional_id AND a.date = b.date AND a.time = b.time
		AND a.status <> 'cancelled' AND b.status <> 'cancelled' AND a.id > b.id`},
}

var createConstraintsAndIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS users_cpf_key ON users (cpf)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_affiliate_code_key ON users (affiliate_code) WHERE affiliate_code IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS users_roles_idx ON users USING GIN (roles)`,
	`CREATE INDEX IF NOT EXISTS users_city_idx ON users (city)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS service_categories_name_key ON service_categories (name)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dependents_cpf_key ON dependents (cpf)`,
	`CREATE INDEX IF NOT EXISTS dependents_client_idx ON dependents (client_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS private_patients_cpf_key ON private_patients (professional_id, cpf) WHERE cpf IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS consultations_professional_date_idx ON consultations (professional_id, scheduled_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS appointments_slot_key ON appointments (professional_id, date, time) WHERE status <> 'cancelled'`,
	`CREATE INDEX IF NOT EXISTS appointments_professional_date_idx ON appointments (professional_id, date)`,
	`CREATE INDEX IF NOT EXISTS affiliate_referrals_affiliate_idx ON affiliate_referrals (affiliate_id, created_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS client_payments_gateway_key ON client_payments (gateway_payment_id) WHERE gateway_payment_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS dependent_payments_gateway_key ON dependent_payments (gateway_payment_id) WHERE gateway_payment_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS professional_payments_gateway_key ON professional_payments (gateway_payment_id) WHERE gateway_payment_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS scheduling_access_professional_idx ON scheduling_access (professional_id)`,
}

// Run applies the full bootstrap sequence. It is safe to run any number of
// times: tables and indexes use IF NOT EXISTS, and cleanups only touch rows
// that would violate the constraints.
func (b *Bootstrapper) Run(ctx context.Context) error {
	for _, stmt := range createTables {
		if _, err := b.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	b.logger.Info().Int("tables", len(createTables)).Msg("schema tables ensured")

	for _, c := range cleanups {
		tag, err := b.pool.Exec(ctx, c.sql)
		if err != nil {
			return fmt.Errorf("cleanup %s: %w", c.name, err)
		}
		if tag.RowsAffected() > 0 {
			b.logger.Warn().
				Str("cleanup", c.name).
				Int64("rows_removed", tag.RowsAffected()).
				Msg("removed rows violating a unique constraint, kept lowest id per group")
		}
	}

	for _, stmt := range createConstraintsAndIndexes {
		if _, err := b.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	b.logger.Info().Int("indexes", len(createConstraintsAndIndexes)).Msg("constraints and indexes ensured")

	return nil
}

type seedService struct {
	name     string
	category string
	price    int64 // centavos
	isBase   bool
}

var seedCategories = []string{
	"Clínica Geral",
	"Odontologia",
	"Psicologia",
	"Fisioterapia",
	"Nutrição",
}

var seedServices = []seedService{
	{"Consulta Clínica Geral", "Clínica Geral", 10000, true},
	{"Avaliação Odontológica", "Odontologia", 8000, true},
	{"Sessão de Psicoterapia", "Psicologia", 12000, false},
	{"Sessão de Fisioterapia", "Fisioterapia", 9000, false},
	{"Consulta Nutricional", "Nutrição", 9000, false},
}

// Seed inserts the default service catalog and a default admin user when
// none exists. adminCPF/adminPasswordHash describe the fallback admin;
// the hash must already be a bcrypt digest.
func (b *Bootstrapper) Seed(ctx context.Context, adminCPF, adminName, adminPasswordHash string) error {
	for _, name := range seedCategories {
		tag, err := b.pool.Exec(ctx, `
			INSERT INTO service_categories (id, name)
			SELECT gen_random_uuid(), $1
			WHERE NOT EXISTS (SELECT 1 FROM service_categories WHERE name = $1)`, name)
		if err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
		if tag.RowsAffected() > 0 {
			b.logger.Info().Str("category", name).Msg("seeded service category")
		}
	}

	for _, s := range seedServices {
		tag, err := b.pool.Exec(ctx, `
			INSERT INTO services (id, name, category_id, price, is_base)
			SELECT gen_random_uuid(), $1, sc.id, $2, $3
			FROM service_categories sc
			WHERE sc.name = $4
			AND NOT EXISTS (SELECT 1 FROM services WHERE name = $1)`,
			s.name, s.price, s.isBase, s.category)
		if err != nil {
			return fmt.Errorf("seed service %q: %w", s.name, err)
		}
		if tag.RowsAffected() > 0 {
			b.logger.Info().Str("service", s.name).Msg("seeded service")
		}
	}

	tag, err := b.pool.Exec(ctx, `
		INSERT INTO users (id, cpf, password_hash, name, roles, subscription_status)
		SELECT gen_random_uuid(), $1, $2, $3, ARRAY['admin'], 'active'
		WHERE NOT EXISTS (SELECT 1 FROM users WHERE 'admin' = ANY(roles))`,
		adminCPF, adminPasswordHash, adminName)
	if err != nil {
		return fmt.Errorf("seed default admin: %w", err)
	}
	if tag.RowsAffected() > 0 {
		b.logger.Warn().Str("cpf", adminCPF).Msg("seeded default admin user, change its password")
	}

	return nil
}
