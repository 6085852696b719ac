package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"domopass/internal/company/service"
	"domopass/internal/company/store/company"
	jwttoken "domopass/internal/jwt_token"
	"domopass/pkg/platform/middleware/requesttime"
)

type CompanyHandlerSuite struct {
	suite.Suite

	tokens *jwttoken.JWTService
	router http.Handler
}

func TestCompanyHandlerSuite(t *testing.T) {
	suite.Run(t, new(CompanyHandlerSuite))
}

func (s *CompanyHandlerSuite) SetupTest() {
	s.tokens = jwttoken.NewJWTService("test-signing-key", "domopass", "domopass-admin")
	svc := service.New(company.NewInMemory(), s.tokens, slog.Default())

	r := chi.NewRouter()
	r.Use(requesttime.Middleware)
	New(svc, nil, slog.Default()).Register(r)
	s.router = r
}

func (s *CompanyHandlerSuite) post(path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *CompanyHandlerSuite) registerCompany(name string) RegisterResponse {
	rec := s.post("/companies", map[string]string{"name": name})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var resp RegisterResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func (s *CompanyHandlerSuite) TestRegister() {
	s.Run("returns the one-time secret", func() {
		resp := s.registerCompany("Uyut Service")
		s.NotEmpty(resp.ID)
		s.Equal("Uyut Service", resp.Name)
		s.NotEmpty(resp.Secret)
	})

	s.Run("rejects empty name", func() {
		rec := s.post("/companies", map[string]string{"name": "  "})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("rejects duplicate name", func() {
		s.registerCompany("Dom Komfort")
		rec := s.post("/companies", map[string]string{"name": "dom komfort"})
		s.Equal(http.StatusConflict, rec.Code)
	})
}

func (s *CompanyHandlerSuite) TestIssueToken() {
	s.Run("exchanges the secret for an operator token", func() {
		created := s.registerCompany("Gorod Service")

		rec := s.post("/companies/"+created.ID+"/tokens", map[string]string{
			"operator": "dispatcher-7",
			"secret":   created.Secret,
		})
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

		var resp TokenResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&resp))

		claims, err := s.tokens.ValidateToken(resp.Token)
		s.Require().NoError(err)
		s.Equal(created.ID, claims.CompanyID)
		s.Equal("dispatcher-7", claims.Operator)
	})

	s.Run("rejects a wrong secret", func() {
		created := s.registerCompany("Kvartal Service")

		rec := s.post("/companies/"+created.ID+"/tokens", map[string]string{
			"operator": "dispatcher-7",
			"secret":   "wrong",
		})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("unknown company is indistinguishable from a bad secret", func() {
		rec := s.post("/companies/"+uuid.NewString()+"/tokens", map[string]string{
			"operator": "dispatcher-7",
			"secret":   "whatever",
		})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("malformed company id is 400", func() {
		rec := s.post("/companies/garbage/tokens", map[string]string{
			"operator": "dispatcher-7",
			"secret":   "whatever",
		})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}
