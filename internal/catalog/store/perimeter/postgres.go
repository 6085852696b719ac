package perimeter

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"domopass/internal/catalog/models"
	id "domopass/pkg/domain"
)

// Postgres reads the perimeter catalog maintained by the object-management
// tooling. This service never writes to it.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByIDs(ctx context.Context, companyID id.CompanyID, ids []id.PerimeterID) ([]*models.Perimeter, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	raw := make([]uuid.UUID, len(ids))
	for i, perimeterID := range ids {
		raw[i] = uuid.UUID(perimeterID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, object_id, company_id, name
		FROM perimeters
		WHERE company_id = $1 AND id = ANY($2)
	`, uuid.UUID(companyID), pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("query perimeters: %w", err)
	}
	defer rows.Close()

	var found []*models.Perimeter
	for rows.Next() {
		var p models.Perimeter
		var pid, oid, cid uuid.UUID
		if err := rows.Scan(&pid, &oid, &cid, &p.Name); err != nil {
			return nil, fmt.Errorf("scan perimeter: %w", err)
		}
		p.ID = id.PerimeterID(pid)
		p.ObjectID = id.ObjectID(oid)
		p.CompanyID = id.CompanyID(cid)
		found = append(found, &p)
	}
	return found, rows.Err()
}
