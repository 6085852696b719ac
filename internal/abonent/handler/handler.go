package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"domopass/internal/abonent/models"
	id "domopass/pkg/domain"
	dErrors "domopass/pkg/domain-errors"
	audit "domopass/pkg/platform/audit"
	"domopass/pkg/platform/audit/publisher"
	"domopass/pkg/platform/httputil"
	"domopass/pkg/platform/middleware/metadata"
	"domopass/pkg/requestcontext"
)

// Service defines the interface for abonent administration operations.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Abonent, error)
	Update(ctx context.Context, req models.UpdateRequest) (*models.Abonent, error)
	Unregister(ctx context.Context, req models.UnregisterRequest) error
	Get(ctx context.Context, companyID id.CompanyID, abonentID id.AbonentID) (*models.Abonent, error)
	DeleteFamilyGrant(ctx context.Context, userID id.UserID, companyID id.CompanyID, perimeterID id.PerimeterID) error
	DeleteTemporaryGrant(ctx context.Context, userID id.UserID, companyID id.CompanyID, perimeterID id.PerimeterID) error
}

// Handler wires abonent administration endpoints to the service.
type Handler struct {
	service Service
	audit   *publisher.Publisher
	logger  *slog.Logger
}

// New constructs an abonent handler with its dependencies. The audit
// publisher may be nil when the trail is disabled.
func New(service Service, auditPublisher *publisher.Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		audit:   auditPublisher,
		logger:  logger,
	}
}

// Register mounts abonent administration endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/abonents", func(r chi.Router) {
		r.Post("/", h.HandleRegister)
		r.Route("/{abonentID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleUnregister)
		})
	})
	r.Delete("/users/{userID}/grants/family/{perimeterID}", h.HandleDeleteFamilyGrant)
	r.Delete("/users/{userID}/grants/temporary/{perimeterID}", h.HandleDeleteTemporaryGrant)
}

// HandleRegister handles POST /abonents requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	companyID, ok := h.companyScope(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	abonent, err := h.service.Register(ctx, req.ToDomain(companyID))
	if err != nil && !partialSuccess(abonent, err) {
		h.logger.ErrorContext(ctx, "abonent registration failed",
			"request_id", requestID,
			"company_id", companyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if err != nil {
		// Persisted but not fully propagated. The mutation stands;
		// reconciliation catches up from the aggregate state.
		h.logger.WarnContext(ctx, "abonent registered with incomplete propagation",
			"request_id", requestID,
			"abonent_id", abonent.ID,
			"error", err,
		)
	}

	h.emitAudit(ctx, audit.ActionAbonentRegistered, "abonent", abonent.ID.String())
	h.logger.InfoContext(ctx, "abonent registered",
		"request_id", requestID,
		"abonent_id", abonent.ID,
		"company_id", companyID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromAbonent(abonent))
}

// HandleGet handles GET /abonents/{abonentID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	companyID, ok := h.companyScope(w, ctx)
	if !ok {
		return
	}

	abonentID, err := id.ParseAbonentID(chi.URLParam(r, "abonentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	abonent, err := h.service.Get(ctx, companyID, abonentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromAbonent(abonent))
}

// HandleUpdate handles PUT /abonents/{abonentID} requests.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	companyID, ok := h.companyScope(w, ctx)
	if !ok {
		return
	}

	abonentID, err := id.ParseAbonentID(chi.URLParam(r, "abonentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	abonent, err := h.service.Update(ctx, req.ToDomain(companyID, abonentID))
	if err != nil && !partialSuccess(abonent, err) {
		h.logger.ErrorContext(ctx, "abonent update failed",
			"request_id", requestID,
			"abonent_id", abonentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "abonent updated with incomplete propagation",
			"request_id", requestID,
			"abonent_id", abonentID,
			"error", err,
		)
	}

	h.emitAudit(ctx, audit.ActionAbonentUpdated, "abonent", abonentID.String())
	h.logger.InfoContext(ctx, "abonent updated",
		"request_id", requestID,
		"abonent_id", abonentID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromAbonent(abonent))
}

// HandleUnregister handles DELETE /abonents/{abonentID} requests.
func (h *Handler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	companyID, ok := h.companyScope(w, ctx)
	if !ok {
		return
	}

	abonentID, err := id.ParseAbonentID(chi.URLParam(r, "abonentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	err = h.service.Unregister(ctx, models.UnregisterRequest{
		AbonentID: abonentID,
		CompanyID: companyID,
	})
	if err != nil && !dErrors.HasCode(err, dErrors.CodeHandlerFailure) {
		h.logger.ErrorContext(ctx, "abonent unregistration failed",
			"request_id", requestID,
			"abonent_id", abonentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "abonent unregistered with incomplete propagation",
			"request_id", requestID,
			"abonent_id", abonentID,
			"error", err,
		)
	}

	h.emitAudit(ctx, audit.ActionAbonentUnregistered, "abonent", abonentID.String())
	h.logger.InfoContext(ctx, "abonent unregistered",
		"request_id", requestID,
		"abonent_id", abonentID,
	)

	w.WriteHeader(http.StatusNoContent)
}

// HandleDeleteFamilyGrant handles DELETE /users/{userID}/grants/family/{perimeterID}.
func (h *Handler) HandleDeleteFamilyGrant(w http.ResponseWriter, r *http.Request) {
	h.handleGrantRemoval(w, r, h.service.DeleteFamilyGrant, audit.ActionFamilyGrantRemoved)
}

// HandleDeleteTemporaryGrant handles DELETE /users/{userID}/grants/temporary/{perimeterID}.
func (h *Handler) HandleDeleteTemporaryGrant(w http.ResponseWriter, r *http.Request) {
	h.handleGrantRemoval(w, r, h.service.DeleteTemporaryGrant, audit.ActionTemporaryGrantRemoved)
}

func (h *Handler) handleGrantRemoval(
	w http.ResponseWriter,
	r *http.Request,
	remove func(ctx context.Context, userID id.UserID, companyID id.CompanyID, perimeterID id.PerimeterID) error,
	action audit.Action,
) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	companyID, ok := h.companyScope(w, ctx)
	if !ok {
		return
	}

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	perimeterID, err := id.ParsePerimeterID(chi.URLParam(r, "perimeterID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	err = remove(ctx, userID, companyID, perimeterID)
	if err != nil && !dErrors.HasCode(err, dErrors.CodeHandlerFailure) {
		h.logger.ErrorContext(ctx, "grant removal failed",
			"request_id", requestID,
			"user_id", userID,
			"perimeter_id", perimeterID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if err != nil {
		h.logger.WarnContext(ctx, "grant removed with incomplete propagation",
			"request_id", requestID,
			"user_id", userID,
			"perimeter_id", perimeterID,
			"error", err,
		)
	}

	h.emitAudit(ctx, action, "perimeter", perimeterID.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) companyScope(w http.ResponseWriter, ctx context.Context) (id.CompanyID, bool) {
	companyID := requestcontext.CompanyID(ctx)
	if companyID == (id.CompanyID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.CompanyID{}, false
	}
	return companyID, true
}

func (h *Handler) emitAudit(ctx context.Context, action audit.Action, entity, entityID string) {
	if h.audit == nil {
		return
	}
	event := audit.Event{
		CompanyID: requestcontext.CompanyID(ctx),
		Operator:  requestcontext.Operator(ctx),
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
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

// partialSuccess reports whether the mutation persisted but propagation
// to subscribers did not complete.
func partialSuccess(abonent *models.Abonent, err error) bool {
	return abonent != nil && dErrors.HasCode(err, dErrors.CodeHandlerFailure)
}
