package dashboard

import (
	"errors"
	"net/http"

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

func (h *Handler) Farmer(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	sum, err := h.svc.Farmer(r.Context(), p)
	if err != nil {
		h.writeErr(w, "farmer dashboard", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, sum, "")
}

func (h *Handler) Government(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	sum, err := h.svc.Government(r.Context(), p)
	if err != nil {
		h.writeErr(w, "government dashboard", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, sum, "")
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrForbidden) {
		utilities.WriteError(w, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", "Dashboard not available for this role", nil)
		return
	}
	h.logger.Errorw(op+" failed", "err", err)
	utilities.WriteError(w, http.StatusInternalServerError, "DASHBOARD_FAILED", "An internal error occurred", nil)
}

// Mount registers the dashboard routes.
func (h *Handler) Mount(mux *http.ServeMux, gate *auth.Gate) {
	mux.Handle("GET /api/dashboard/farmer-summary", gate.RequireFunc(h.Farmer, auth.RoleFarmer))
	mux.Handle("GET /api/dashboard/government-summary", gate.RequireFunc(h.Government, auth.RoleGovernment))
}
