// Package models defines the service companies that administer abonents.
package models

import (
	"time"

	id "domopass/pkg/domain"
)

// Company is a management organization operating one or more access objects.
// SecretHash is the bcrypt hash of its API secret; the plaintext is shown
// exactly once at registration.
type Company struct {
	ID         id.CompanyID
	Name       string
	SecretHash string
	CreatedAt  time.Time
}
