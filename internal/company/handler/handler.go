// Package handler exposes company onboarding and operator token
// endpoints. Both run outside the operator token middleware: onboarding
// has nothing to authenticate with yet, and token issuance
// authenticates with the company secret instead.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"domopass/internal/company/service"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	audit "domopass/pkg/platform/audit"
	"domopass/pkg/platform/audit/publisher"
	"domopass/pkg/platform/httputil"
	"domopass/pkg/platform/middleware/metadata"
	"domopass/pkg/requestcontext"
)

// Service defines the interface for company operations.
type Service interface {
	Register(ctx context.Context, name string) (*service.Registration, error)
	IssueToken(ctx context.Context, companyID id.CompanyID, operator, secret string) (string, error)
}

// Handler wires company endpoints to the company service.
type Handler struct {
	service Service
	audit   *publisher.Publisher
	logger  *slog.Logger
}

// New constructs a company handler with its dependencies.
func New(service Service, auditPublisher *publisher.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		audit:   auditPublisher,
		logger:  logger,
	}
}

// Register mounts company endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/companies", h.HandleRegister)
	r.Post("/companies/{companyID}/tokens", h.HandleIssueToken)
}

// RegisterRequest is the HTTP request body for POST /companies.
type RegisterRequest struct {
	Name string `json:"name"`
}

// Validate validates the request.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

// RegisterResponse carries the company id and its one-time API secret.
type RegisterResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Secret    string    `json:"secret"`
	CreatedAt time.Time `json:"created_at"`
}

// HandleRegister handles POST /companies requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	registration, err := h.service.Register(ctx, req.Name)
	if err != nil {
		h.logger.ErrorContext(ctx, "company registration failed",
			"request_id", requestID,
			"name", req.Name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	// Onboarding audit is written by the service, in the same transaction
	// as the company row.
	h.logger.InfoContext(ctx, "company registered",
		"request_id", requestID,
		"company_id", registration.Company.ID,
	)

	httputil.WriteJSON(w, http.StatusCreated, RegisterResponse{
		ID:        registration.Company.ID.String(),
		Name:      registration.Company.Name,
		Secret:    registration.Secret,
		CreatedAt: registration.Company.CreatedAt,
	})
}

// TokenRequest is the HTTP request body for POST /companies/{companyID}/tokens.
type TokenRequest struct {
	Operator string `json:"operator"`
	Secret   string `json:"secret"`
}

// Validate validates the request.
func (r *TokenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Operator = strings.TrimSpace(r.Operator)
	if r.Operator == "" {
		return dErrors.New(dErrors.CodeValidation, "operator is required")
	}
	if r.Secret == "" {
		return dErrors.New(dErrors.CodeValidation, "secret is required")
	}
	return nil
}

// TokenResponse carries an issued operator token.
type TokenResponse struct {
	Token string `json:"token"`
}

// HandleIssueToken handles POST /companies/{companyID}/tokens requests.
func (h *Handler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.service.IssueToken(ctx, companyID, req.Operator, req.Secret)
	if err != nil {
		h.logger.WarnContext(ctx, "operator token refused",
			"request_id", requestID,
			"company_id", companyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.emitAudit(ctx, audit.ActionOperatorTokenIssued, companyID, req.Operator)
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{Token: token})
}

func (h *Handler) emitAudit(ctx context.Context, action audit.Action, companyID id.CompanyID, operator string) {
	if h.audit == nil {
		return
	}
	event := audit.Event{
		CompanyID: companyID,
		Operator:  operator,
		Action:    action,
		Entity:    "company",
		EntityID:  companyID.String(),
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  metadata.GetClientIP(ctx),
		UserAgent: metadata.GetUserAgent(ctx),
	}
	if err := h.audit.Emit(ctx, event); err != nil {
		h.logger.WarnContext(ctx, "failed to record audit event",
			"action", action,
			"error", err,
		)
	}
}
