package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"domopass/internal/company/store/company"
	jwttoken "domopass/internal/jwt_token"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	audit "domopass/pkg/platform/audit"
	auditmemory "domopass/pkg/platform/audit/store/memory"
)

// passthroughRunner stands in for a database transaction runner: it records
// how the unit of work ended without opening a real transaction.
type passthroughRunner struct {
	began      int
	rolledBack int
}

func (r *passthroughRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.began++
	if err := fn(ctx); err != nil {
		r.rolledBack++
		return err
	}
	return nil
}

// failingAuditStore rejects every append.
type failingAuditStore struct{}

func (failingAuditStore) Append(ctx context.Context, event audit.Event) error {
	return errors.New("audit store down")
}

func (failingAuditStore) ListByCompany(ctx context.Context, companyID id.CompanyID) ([]audit.Event, error) {
	return nil, nil
}

type CompanyServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *company.InMemory
	tokens  *jwttoken.JWTService
	service *Service
}

func TestCompanyServiceSuite(t *testing.T) {
	suite.Run(t, new(CompanyServiceSuite))
}

func (s *CompanyServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = company.NewInMemory()
	s.tokens = jwttoken.NewJWTService("test-key", "domopass", "admin-api")
	s.service = New(s.store, s.tokens, nil)
}

// TestRegister verifies onboarding and name uniqueness.
func (s *CompanyServiceSuite) TestRegister() {
	s.Run("returns the plaintext secret exactly once", func() {
		reg, err := s.service.Register(s.ctx, "UK Comfort")
		s.Require().NoError(err)
		s.NotEmpty(reg.Secret)
		s.NotEqual(reg.Secret, reg.Company.SecretHash)

		stored, err := s.store.FindByID(s.ctx, reg.Company.ID)
		s.Require().NoError(err)
		s.Equal(reg.Company.SecretHash, stored.SecretHash)
	})

	s.Run("rejects an empty name", func() {
		_, err := s.service.Register(s.ctx, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects a duplicate name", func() {
		_, err := s.service.Register(s.ctx, "Duplicated")
		s.Require().NoError(err)

		_, err = s.service.Register(s.ctx, "duplicated")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeDuplicateEntry))
	})
}

// TestRegisterAuditTrail verifies onboarding and its audit record land as
// one unit of work.
func (s *CompanyServiceSuite) TestRegisterAuditTrail() {
	s.Run("appends the onboarding record within the transaction", func() {
		trail := auditmemory.NewInMemoryStore()
		runner := &passthroughRunner{}
		svc := New(s.store, s.tokens, nil, WithAuditTrail(trail, runner))

		reg, err := svc.Register(s.ctx, "Audited Co")
		s.Require().NoError(err)
		s.Equal(1, runner.began)
		s.Zero(runner.rolledBack)

		events, err := trail.ListByCompany(s.ctx, reg.Company.ID)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionCompanyRegistered, events[0].Action)
		s.Equal(reg.Company.ID.String(), events[0].EntityID)
		s.Equal(reg.Company.CreatedAt, events[0].Timestamp)
	})

	s.Run("rolls onboarding back when the record cannot be written", func() {
		runner := &passthroughRunner{}
		svc := New(s.store, s.tokens, nil, WithAuditTrail(failingAuditStore{}, runner))

		_, err := svc.Register(s.ctx, "Unrecorded Co")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Equal(1, runner.rolledBack)
	})
}

// TestIssueToken verifies the secret exchange.
func (s *CompanyServiceSuite) TestIssueToken() {
	s.Run("issues a token scoped to the company", func() {
		reg, err := s.service.Register(s.ctx, "Token Co")
		s.Require().NoError(err)

		token, err := s.service.IssueToken(s.ctx, reg.Company.ID, "dispatcher-1", reg.Secret)
		s.Require().NoError(err)

		claims, err := s.tokens.ValidateToken(token)
		s.Require().NoError(err)
		s.Equal(reg.Company.ID.String(), claims.CompanyID)
		s.Equal("dispatcher-1", claims.Operator)
	})

	s.Run("rejects a wrong secret", func() {
		reg, err := s.service.Register(s.ctx, "Wrong Secret Co")
		s.Require().NoError(err)

		_, err = s.service.IssueToken(s.ctx, reg.Company.ID, "dispatcher-1", "not-the-secret")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("rejects an unknown company indistinguishably", func() {
		_, err := s.service.IssueToken(s.ctx, id.CompanyID(uuid.New()), "dispatcher-1", "whatever")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
