package abonent

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
	"domopass/pkg/platform/sentinel"
)

// Postgres persists the abonent aggregate across three tables: the abonent
// row, family grants, and the append-only temporary grant log. Updates
// rewrite the grant tables inside one transaction so a reader never observes
// a half-applied aggregate.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByID(ctx context.Context, companyID id.CompanyID, abonentID id.AbonentID) (*models.Abonent, error) {
	return s.findOne(ctx, `
		SELECT id, company_id, name, phone, address, user_id, cars, created_at, updated_at
		FROM abonents
		WHERE company_id = $1 AND id = $2
	`, uuid.UUID(companyID), uuid.UUID(abonentID))
}

func (s *Postgres) FindByPhone(ctx context.Context, companyID id.CompanyID, phone string) (*models.Abonent, error) {
	return s.findOne(ctx, `
		SELECT id, company_id, name, phone, address, user_id, cars, created_at, updated_at
		FROM abonents
		WHERE company_id = $1 AND phone = $2
	`, uuid.UUID(companyID), phone)
}

func (s *Postgres) FindByUser(ctx context.Context, companyID id.CompanyID, userID id.UserID) (*models.Abonent, error) {
	return s.findOne(ctx, `
		SELECT id, company_id, name, phone, address, user_id, cars, created_at, updated_at
		FROM abonents
		WHERE company_id = $1 AND user_id = $2
	`, uuid.UUID(companyID), uuid.UUID(userID))
}

func (s *Postgres) findOne(ctx context.Context, query string, args ...any) (*models.Abonent, error) {
	var a models.Abonent
	var aid, cid uuid.UUID
	var userID uuid.NullUUID
	var cars pq.StringArray

	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&aid, &cid, &a.Name, &a.Phone, &a.Address, &userID, &cars, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query abonent: %w", err)
	}

	a.ID = id.AbonentID(aid)
	a.CompanyID = id.CompanyID(cid)
	a.Cars = []string(cars)
	if userID.Valid {
		a.User = id.Some(id.UserID(userID.UUID))
	}

	if err := s.loadGrants(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Postgres) loadGrants(ctx context.Context, a *models.Abonent) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT perimeter_id, tariff_plan_id
		FROM abonent_grants
		WHERE abonent_id = $1
		ORDER BY position
	`, uuid.UUID(a.ID))
	if err != nil {
		return fmt.Errorf("query family grants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pid, tid uuid.UUID
		if err := rows.Scan(&pid, &tid); err != nil {
			return fmt.Errorf("scan family grant: %w", err)
		}
		a.Grants = append(a.Grants, models.PerimeterGrant{
			PerimeterID:  id.PerimeterID(pid),
			TariffPlanID: id.TariffPlanID(tid),
		})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	tempRows, err := s.db.QueryContext(ctx, `
		SELECT perimeter_id, removed, removed_at
		FROM abonent_temporary_grants
		WHERE abonent_id = $1
		ORDER BY position
	`, uuid.UUID(a.ID))
	if err != nil {
		return fmt.Errorf("query temporary grants: %w", err)
	}
	defer tempRows.Close()
	for tempRows.Next() {
		var g models.TemporaryGrant
		var pid uuid.UUID
		var removedAt sql.NullTime
		if err := tempRows.Scan(&pid, &g.Removed, &removedAt); err != nil {
			return fmt.Errorf("scan temporary grant: %w", err)
		}
		g.PerimeterID = id.PerimeterID(pid)
		if removedAt.Valid {
			g.RemovedAt = removedAt.Time
		}
		a.TemporaryGrants = append(a.TemporaryGrants, g)
	}
	return tempRows.Err()
}

func (s *Postgres) Add(ctx context.Context, abonent *models.Abonent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO abonents (id, company_id, name, phone, address, user_id, cars, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, uuid.UUID(abonent.ID), uuid.UUID(abonent.CompanyID), abonent.Name, abonent.Phone,
		abonent.Address, nullableUser(abonent), pq.Array(abonent.Cars), abonent.CreatedAt, abonent.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert abonent: %w", err)
	}

	if err := writeGrants(ctx, tx, abonent); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Postgres) Update(ctx context.Context, abonent *models.Abonent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE abonents
		SET name = $1, address = $2, user_id = $3, cars = $4, updated_at = $5
		WHERE id = $6
	`, abonent.Name, abonent.Address, nullableUser(abonent), pq.Array(abonent.Cars),
		abonent.UpdatedAt, uuid.UUID(abonent.ID))
	if err != nil {
		return fmt.Errorf("update abonent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}

	// Grant tables are rewritten from the aggregate; the temporary table
	// keeps removed rows because the aggregate carries them forever.
	if _, err := tx.ExecContext(ctx, `DELETE FROM abonent_grants WHERE abonent_id = $1`, uuid.UUID(abonent.ID)); err != nil {
		return fmt.Errorf("clear family grants: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM abonent_temporary_grants WHERE abonent_id = $1`, uuid.UUID(abonent.ID)); err != nil {
		return fmt.Errorf("clear temporary grants: %w", err)
	}
	if err := writeGrants(ctx, tx, abonent); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Postgres) Delete(ctx context.Context, companyID id.CompanyID, abonentID id.AbonentID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM abonents WHERE company_id = $1 AND id = $2
	`, uuid.UUID(companyID), uuid.UUID(abonentID))
	if err != nil {
		return fmt.Errorf("delete abonent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func writeGrants(ctx context.Context, tx *sql.Tx, abonent *models.Abonent) error {
	for i, g := range abonent.Grants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO abonent_grants (abonent_id, perimeter_id, tariff_plan_id, position)
			VALUES ($1, $2, $3, $4)
		`, uuid.UUID(abonent.ID), uuid.UUID(g.PerimeterID), uuid.UUID(g.TariffPlanID), i)
		if err != nil {
			return fmt.Errorf("insert family grant: %w", err)
		}
	}
	for i, g := range abonent.TemporaryGrants {
		var removedAt sql.NullTime
		if g.Removed {
			removedAt = sql.NullTime{Time: g.RemovedAt, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO abonent_temporary_grants (abonent_id, perimeter_id, removed, removed_at, position)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.UUID(abonent.ID), uuid.UUID(g.PerimeterID), g.Removed, removedAt, i)
		if err != nil {
			return fmt.Errorf("insert temporary grant: %w", err)
		}
	}
	return nil
}

func nullableUser(abonent *models.Abonent) uuid.NullUUID {
	if userID, ok := abonent.User.Get(); ok {
		return uuid.NullUUID{UUID: uuid.UUID(userID), Valid: true}
	}
	return uuid.NullUUID{}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
