package crop

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
	if !h.decode(w, r, &in) {
		return
	}
	p, _ := auth.PrincipalFrom(r.Context())
	c, err := h.svc.Create(r.Context(), p, in)
	if err != nil {
		h.writeErr(w, "create crop", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusCreated, c, "Crop lifecycle created successfully")
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	p, _ := auth.PrincipalFrom(r.Context())
	crops, err := h.svc.List(r.Context(), p, limit)
	if err != nil {
		h.writeErr(w, "list crops", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, map[string]any{"crops": crops}, "")
}

func (h *Handler) AddIrrigation(w http.ResponseWriter, r *http.Request) {
	var in IrrigationInput
	if !h.decode(w, r, &in) {
		return
	}
	p, _ := auth.PrincipalFrom(r.Context())
	rec, totals, err := h.svc.AddIrrigation(r.Context(), p, r.PathValue("id"), in)
	if err != nil {
		h.writeErr(w, "add irrigation", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusCreated, map[string]any{
		"irrigation_record_id": rec.ID,
		"record":               rec,
		"totals":               totals,
	}, "Irrigation record added successfully")
}

func (h *Handler) AddFertilizer(w http.ResponseWriter, r *http.Request) {
	var in FertilizerInput
	if !h.decode(w, r, &in) {
		return
	}
	p, _ := auth.PrincipalFrom(r.Context())
	rec, totals, err := h.svc.AddFertilizer(r.Context(), p, r.PathValue("id"), in)
	if err != nil {
		h.writeErr(w, "add fertilizer", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusCreated, map[string]any{
		"fertilizer_record_id": rec.ID,
		"record":               rec,
		"totals":               totals,
	}, "Fertilizer record added successfully")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := utilities.DecodeJSON(r, v); err != nil {
		h.logger.Debugw("invalid crop payload", "path", r.URL.Path, "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "request body must be valid JSON", nil)
		return false
	}
	return true
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	var verr *utilities.ValidationError
	switch {
	case errors.As(err, &verr):
		utilities.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Fields)
	case errors.Is(err, ErrNotFound):
		utilities.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Crop not found", nil)
	case errors.Is(err, ErrFieldNotFound):
		utilities.WriteError(w, http.StatusNotFound, "FIELD_NOT_FOUND", "Field not found", nil)
	case errors.Is(err, ErrForbidden):
		utilities.WriteError(w, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", "Operation not permitted for this role", nil)
	default:
		h.logger.Errorw(op+" failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", "An internal error occurred", nil)
	}
}

// Mount registers the crop routes.
func (h *Handler) Mount(mux *http.ServeMux, gate *auth.Gate) {
	mux.Handle("POST /api/crops", gate.RequireFunc(h.Create, auth.RoleFarmer))
	mux.Handle("GET /api/crops", gate.RequireFunc(h.List, auth.RoleFarmer))
	mux.Handle("POST /api/crops/{id}/irrigation", gate.RequireFunc(h.AddIrrigation, auth.RoleFarmer))
	mux.Handle("POST /api/crops/{id}/fertilizer", gate.RequireFunc(h.AddFertilizer, auth.RoleFarmer))
}
