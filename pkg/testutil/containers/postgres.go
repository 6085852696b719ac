//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers Postgres instance with the module
// schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("domopass_test"),
		tcpostgres.WithUsername("domopass"),
		tcpostgres.WithPassword("domopass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres: %v", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
	if err := pc.applySchema(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Cleanup is handled by Ryuk; the container is shared across suites.

	return pc
}

// TruncateTables empties the named tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", "))
	if _, err := p.DB.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}

func (p *PostgresContainer) applySchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			id          UUID PRIMARY KEY,
			name        TEXT NOT NULL,
			secret_hash TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id         UUID PRIMARY KEY,
			phone      TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS access_objects (
			id           UUID PRIMARY KEY,
			company_id   UUID NOT NULL,
			display_name TEXT NOT NULL,
			categories   TEXT[] NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS perimeters (
			id         UUID PRIMARY KEY,
			object_id  UUID NOT NULL REFERENCES access_objects (id),
			company_id UUID NOT NULL,
			name       TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tariff_plans (
			id         UUID PRIMARY KEY,
			company_id UUID NOT NULL,
			name       TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS abonents (
			id         UUID PRIMARY KEY,
			company_id UUID NOT NULL,
			name       TEXT NOT NULL,
			phone      TEXT NOT NULL,
			address    TEXT NOT NULL,
			user_id    UUID,
			cars       TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (company_id, phone)
		)`,
		`CREATE TABLE IF NOT EXISTS abonent_grants (
			abonent_id     UUID NOT NULL REFERENCES abonents (id) ON DELETE CASCADE,
			perimeter_id   UUID NOT NULL,
			tariff_plan_id UUID NOT NULL,
			position       INT NOT NULL,
			PRIMARY KEY (abonent_id, perimeter_id)
		)`,
		`CREATE TABLE IF NOT EXISTS abonent_temporary_grants (
			abonent_id   UUID NOT NULL REFERENCES abonents (id) ON DELETE CASCADE,
			perimeter_id UUID NOT NULL,
			removed      BOOLEAN NOT NULL DEFAULT FALSE,
			removed_at   TIMESTAMPTZ,
			position     INT NOT NULL,
			PRIMARY KEY (abonent_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS key_templates (
			id              UUID PRIMARY KEY,
			perimeter_id    UUID NOT NULL,
			parking_enabled BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS composite_keys (
			id          UUID PRIMARY KEY,
			owner_id    UUID,
			company_id  UUID NOT NULL,
			kind        TEXT NOT NULL,
			template_id UUID NOT NULL,
			parent_id   UUID,
			payload     JSONB NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS audit_events (
			id         UUID PRIMARY KEY,
			company_id UUID NOT NULL,
			operator   TEXT NOT NULL DEFAULT '',
			action     TEXT NOT NULL,
			entity     TEXT NOT NULL DEFAULT '',
			entity_id  TEXT NOT NULL DEFAULT '',
			request_id TEXT NOT NULL DEFAULT '',
			client_ip  TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := p.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
