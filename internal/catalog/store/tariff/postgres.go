package tariff

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"domopass/internal/catalog/models"
	id "domopass/pkg/domain"
)

// Postgres reads the tariff-plan catalog.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByIDs(ctx context.Context, ids []id.TariffPlanID) ([]*models.TariffPlan, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]uuid.UUID, len(ids))
	for i, planID := range ids {
		raw[i] = uuid.UUID(planID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, name
		FROM tariff_plans
		WHERE id = ANY($1)
	`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("query tariff plans: %w", err)
	}
	defer rows.Close()

	var found []*models.TariffPlan
	for rows.Next() {
		var p models.TariffPlan
		var pid, cid uuid.UUID
		if err := rows.Scan(&pid, &cid, &p.Name); err != nil {
			return nil, fmt.Errorf("scan tariff plan: %w", err)
		}
		p.ID = id.TariffPlanID(pid)
		p.CompanyID = id.CompanyID(cid)
		found = append(found, &p)
	}
	return found, rows.Err()
}
