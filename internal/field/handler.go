package field

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := utilities.DecodeJSON(r, &in); err != nil {
		utilities.WriteError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "request body must be valid JSON", nil)
		return
	}
	p, _ := auth.PrincipalFrom(r.Context())
	f, err := h.svc.Create(r.Context(), p, in)
	if err != nil {
		h.writeErr(w, "create field", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusCreated, f, "Field created successfully")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		limit = DefaultLimit
	}
	p, _ := auth.PrincipalFrom(r.Context())
	fields, err := h.svc.List(r.Context(), p, limit)
	if err != nil {
		h.writeErr(w, "list fields", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, map[string]any{"fields": fields}, "")
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	var verr *utilities.ValidationError
	switch {
	case errors.As(err, &verr):
		utilities.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Fields)
	case errors.Is(err, ErrForbidden):
		utilities.WriteError(w, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", "Operation not permitted for this role", nil)
	case errors.Is(err, ErrNotFound):
		utilities.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Field not found", nil)
	default:
		h.logger.Errorw(op+" failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", "An internal error occurred", nil)
	}
}

// Mount registers the field routes.
func (h *Handler) Mount(mux *http.ServeMux, gate *auth.Gate) {
	mux.Handle("POST /api/fields", gate.RequireFunc(h.Create, auth.RoleFarmer))
	mux.Handle("GET /api/fields", gate.RequireFunc(h.List, auth.RoleFarmer))
}
