// Package service implements company onboarding and operator
// authentication: a company registers once, receives its API secret, and
// exchanges it later for short-lived operator tokens scoping every admin
// call to that company.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"domopass/internal/company/models"
	"domopass/internal/company/secrets"
	jwttoken "domopass/internal/jwt_token"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	audit "domopass/pkg/platform/audit"
	"domopass/pkg/platform/middleware/metadata"
	"domopass/pkg/platform/sentinel"
	"domopass/pkg/requestcontext"
)

const tokenLifetime = time.Hour

// CompanyStore persists companies.
type CompanyStore interface {
	Create(ctx context.Context, company *models.Company) error
	FindByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error)
	FindByName(ctx context.Context, name string) (*models.Company, error)
}

// TxRunner runs fn as one database transaction; stores joining through the
// context commit and roll back together.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates company onboarding and token issuance.
type Service struct {
	companies CompanyStore
	tokens    *jwttoken.JWTService
	logger    *slog.Logger
	audit     audit.Store
	runner    TxRunner
}

type Option func(s *Service)

// WithAuditTrail makes onboarding append its audit record in the same
// transaction as the company row: a company never exists without the record
// of who created it.
func WithAuditTrail(trail audit.Store, runner TxRunner) Option {
	return func(s *Service) {
		s.audit = trail
		s.runner = runner
	}
}

// New constructs a Service.
func New(companies CompanyStore, tokens *jwttoken.JWTService, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{companies: companies, tokens: tokens, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registration is the one-time result of onboarding a company. Secret is the
// plaintext API secret; it is never recoverable afterwards.
type Registration struct {
	Company *models.Company
	Secret  string
}

// Register onboards a company and returns its API secret.
func (s *Service) Register(ctx context.Context, name string) (*Registration, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "company name is required")
	}

	secret, err := secrets.Generate()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate secret")
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash secret")
	}

	company := &models.Company{
		ID:         id.CompanyID(uuid.New()),
		Name:       name,
		SecretHash: hash,
		CreatedAt:  requestcontext.Now(ctx),
	}
	if err := s.persist(ctx, company); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeDuplicateEntry, "company name already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist company")
	}

	s.logger.InfoContext(ctx, "company registered",
		"company_id", company.ID.String(),
		"name", company.Name,
	)
	return &Registration{Company: company, Secret: secret}, nil
}

// persist writes the company row, together with its onboarding audit record
// when a trail is configured.
func (s *Service) persist(ctx context.Context, company *models.Company) error {
	write := func(ctx context.Context) error {
		if err := s.companies.Create(ctx, company); err != nil {
			return err
		}
		if s.audit == nil {
			return nil
		}
		return s.audit.Append(ctx, audit.Event{
			Timestamp: company.CreatedAt,
			CompanyID: company.ID,
			Action:    audit.ActionCompanyRegistered,
			Entity:    "company",
			EntityID:  company.ID.String(),
			RequestID: requestcontext.RequestID(ctx),
			ClientIP:  metadata.GetClientIP(ctx),
			UserAgent: metadata.GetUserAgent(ctx),
		})
	}
	if s.runner == nil {
		return write(ctx)
	}
	return s.runner.WithinTx(ctx, write)
}

// IssueToken exchanges a company's API secret for a short-lived operator
// token. The operator name travels in the claims for audit trails.
func (s *Service) IssueToken(ctx context.Context, companyID id.CompanyID, operator, secret string) (string, error) {
	company, err := s.companies.FindByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Indistinguishable from a bad secret, so probing for
			// company ids reveals nothing.
			return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load company")
	}

	if err := secrets.Verify(secret, company.SecretHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify secret")
	}

	token, err := s.tokens.GenerateOperatorToken(company.ID, operator, tokenLifetime)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return token, nil
}
