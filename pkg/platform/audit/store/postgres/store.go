package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "domopass/pkg/domain"
	audit "domopass/pkg/platform/audit"
	"domopass/pkg/platform/tx"
)

// Store persists audit events in the audit_events table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer joins an ambient transaction when the caller opened one.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	const query = `
		INSERT INTO audit_events (
			id, company_id, operator, action, entity, entity_id,
			request_id, client_ip, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(event.CompanyID),
		event.Operator,
		string(event.Action),
		event.Entity,
		event.EntityID,
		event.RequestID,
		event.ClientIP,
		event.UserAgent,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *Store) ListByCompany(ctx context.Context, companyID id.CompanyID) ([]audit.Event, error) {
	const query = `
		SELECT company_id, operator, action, entity, entity_id,
		       request_id, client_ip, user_agent, created_at
		FROM audit_events
		WHERE company_id = $1
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(companyID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var (
			event     audit.Event
			company   uuid.UUID
			action    string
		)
		if err := rows.Scan(
			&company,
			&event.Operator,
			&action,
			&event.Entity,
			&event.EntityID,
			&event.RequestID,
			&event.ClientIP,
			&event.UserAgent,
			&event.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.CompanyID = id.CompanyID(company)
		event.Action = audit.Action(action)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
