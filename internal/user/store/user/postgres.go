package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "domopass/pkg/domain"
)

// Postgres reads the platform account table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// FindByPhone resolves an account by phone number. A missing account is not
// an error; it returns an absent Optional.
func (s *Postgres) FindByPhone(ctx context.Context, phone string) (id.Optional[id.UserID], error) {
	var userID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM users WHERE phone = $1
	`, phone).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return id.None[id.UserID](), nil
		}
		return id.None[id.UserID](), fmt.Errorf("query user: %w", err)
	}
	return id.Some(id.UserID(userID)), nil
}
