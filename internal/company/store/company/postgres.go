package company

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"domopass/internal/company/models"
	id "domopass/pkg/domain"
	"domopass/pkg/platform/sentinel"
	"domopass/pkg/platform/tx"
)

// Postgres persists companies. Name uniqueness relies on a unique index over
// lower(name).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer joins an ambient transaction when the caller opened one.
func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, company *models.Company) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO companies (id, name, secret_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, uuid.UUID(company.ID), company.Name, company.SecretHash, company.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert company: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error) {
	return s.findOne(ctx, `
		SELECT id, name, secret_hash, created_at FROM companies WHERE id = $1
	`, uuid.UUID(companyID))
}

func (s *Postgres) FindByName(ctx context.Context, name string) (*models.Company, error) {
	return s.findOne(ctx, `
		SELECT id, name, secret_hash, created_at FROM companies WHERE lower(name) = lower($1)
	`, name)
}

func (s *Postgres) findOne(ctx context.Context, query string, args ...any) (*models.Company, error) {
	var company models.Company
	var companyID uuid.UUID

	err := s.execer(ctx).QueryRowContext(ctx, query, args...).
		Scan(&companyID, &company.Name, &company.SecretHash, &company.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query company: %w", err)
	}
	company.ID = id.CompanyID(companyID)
	return &company, nil
}
