package key

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"domopass/internal/key/models"
	id "domopass/pkg/domain"
	"domopass/pkg/platform/sentinel"
)

// Postgres reads key metadata and writes payloads. Key rows are created by
// the issuance engine; this store never inserts or deletes them.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// payloadItem is the JSONB shape of one payload slot.
type payloadItem struct {
	Kind string   `json:"kind"`
	Text string   `json:"text,omitempty"`
	List []string `json:"list,omitempty"`
}

func (s *Postgres) ListByOwner(ctx context.Context, companyID id.CompanyID, ownerID id.UserID) ([]*models.CompositeKey, error) {
	return s.list(ctx, `
		SELECT id, owner_id, company_id, kind, template_id, parent_id, payload
		FROM composite_keys
		WHERE company_id = $1 AND owner_id = $2
	`, uuid.UUID(companyID), uuid.UUID(ownerID))
}

func (s *Postgres) ListMembers(ctx context.Context, parentIDs []id.KeyID) ([]*models.CompositeKey, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	raw := make([]uuid.UUID, len(parentIDs))
	for i, keyID := range parentIDs {
		raw[i] = uuid.UUID(keyID)
	}
	return s.list(ctx, `
		SELECT id, owner_id, company_id, kind, template_id, parent_id, payload
		FROM composite_keys
		WHERE parent_id = ANY($1)
	`, pq.Array(raw))
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.CompositeKey, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var out []*models.CompositeKey
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

func scanKey(rows *sql.Rows) (*models.CompositeKey, error) {
	var key models.CompositeKey
	var keyID, ownerID, companyID, templateID uuid.UUID
	var parentID uuid.NullUUID
	var kind string
	var rawPayload []byte

	if err := rows.Scan(&keyID, &ownerID, &companyID, &kind, &templateID, &parentID, &rawPayload); err != nil {
		return nil, fmt.Errorf("scan key: %w", err)
	}

	key.ID = id.KeyID(keyID)
	key.OwnerID = id.UserID(ownerID)
	key.CompanyID = id.CompanyID(companyID)
	key.Kind = models.Kind(kind)
	key.TemplateID = id.TemplateID(templateID)
	if parentID.Valid {
		key.ParentID = id.Some(id.KeyID(parentID.UUID))
	}

	var items []payloadItem
	if len(rawPayload) > 0 {
		if err := json.Unmarshal(rawPayload, &items); err != nil {
			return nil, fmt.Errorf("unmarshal key payload: %w", err)
		}
	}
	modelItems := make([]models.PayloadItem, len(items))
	for i, item := range items {
		modelItems[i] = models.PayloadItem{
			Kind: models.PayloadKind(item.Kind),
			Text: item.Text,
			List: item.List,
		}
	}
	key.Payload = models.NewPayload(modelItems...)
	return &key, nil
}

func (s *Postgres) UpdatePayload(ctx context.Context, keyID id.KeyID, payload models.Payload) error {
	items := payload.Items()
	raw := make([]payloadItem, len(items))
	for i, item := range items {
		raw[i] = payloadItem{Kind: string(item.Kind), Text: item.Text, List: item.List}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal key payload: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE composite_keys SET payload = $1 WHERE id = $2
	`, encoded, uuid.UUID(keyID))
	if err != nil {
		return fmt.Errorf("update key payload: %w", err)
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
