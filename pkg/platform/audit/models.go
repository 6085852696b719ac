// Package audit captures who changed what through the administration
// API. Entries are emitted from handlers after a mutation succeeds and
// persisted out of the request path.
package audit

import (
	"context"
	"time"

	id "domopass/pkg/domain"
)

// Action identifies an audited administrative operation.
type Action string

const (
	ActionAbonentRegistered      Action = "abonent_registered"
	ActionAbonentUpdated         Action = "abonent_updated"
	ActionAbonentUnregistered    Action = "abonent_unregistered"
	ActionFamilyGrantRemoved     Action = "family_grant_removed"
	ActionTemporaryGrantRemoved  Action = "temporary_grant_removed"
	ActionCompanyRegistered      Action = "company_registered"
	ActionOperatorTokenIssued    Action = "operator_token_issued"
)

// Event is a single audit trail entry. It is transport-agnostic so
// stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	CompanyID id.CompanyID
	Operator  string
	Action    Action

	// Entity identifies the record the operation touched, when any.
	Entity   string
	EntityID string

	// Request metadata for correlation and forensics.
	RequestID string
	ClientIP  string
	UserAgent string
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCompany(ctx context.Context, companyID id.CompanyID) ([]Event, error)
}
