package scheme

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

// Handler serves the public scheme catalog.
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

// List answers GET /api/government-schemes?search=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	schemes, err := h.svc.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Errorw("list schemes failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", "An internal error occurred", nil)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, map[string]any{"schemes": schemes}, "")
}

// Mount registers the public scheme route; it needs no gate.
func (h *Handler) Mount(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/government-schemes", h.List)
}
