package object

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"domopass/internal/catalog/models"
	id "domopass/pkg/domain"
	"domopass/pkg/platform/sentinel"
)

// Postgres reads the access-object catalog.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) ParentOfPerimeter(ctx context.Context, perimeterID id.PerimeterID) (*models.AccessObject, error) {
	var obj models.AccessObject
	var oid, cid uuid.UUID
	var categories pq.StringArray

	err := s.db.QueryRowContext(ctx, `
		SELECT o.id, o.company_id, o.display_name, o.categories
		FROM access_objects o
		JOIN perimeters p ON p.object_id = o.id
		WHERE p.id = $1
	`, uuid.UUID(perimeterID)).Scan(&oid, &cid, &obj.DisplayName, &categories)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("query access object: %w", err)
	}

	obj.ID = id.ObjectID(oid)
	obj.CompanyID = id.CompanyID(cid)
	obj.Categories = []string(categories)
	return &obj, nil
}
