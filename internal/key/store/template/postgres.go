package template

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"domopass/internal/key/models"
	id "domopass/pkg/domain"
)

// Postgres reads the template catalog maintained by the issuance engine.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) FindByPerimeters(ctx context.Context, perimeterIDs []id.PerimeterID) ([]*models.Template, error) {
	if len(perimeterIDs) == 0 {
		return nil, nil
	}
	raw := make([]uuid.UUID, len(perimeterIDs))
	for i, perimeterID := range perimeterIDs {
		raw[i] = uuid.UUID(perimeterID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, perimeter_id, parking_enabled
		FROM key_templates
		WHERE perimeter_id = ANY($1)
	`, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	var out []*models.Template
	for rows.Next() {
		var t models.Template
		var templateID, perimeterID uuid.UUID
		if err := rows.Scan(&templateID, &perimeterID, &t.ParkingEnabled); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.ID = id.TemplateID(templateID)
		t.PerimeterID = id.PerimeterID(perimeterID)
		out = append(out, &t)
	}
	return out, rows.Err()
}
