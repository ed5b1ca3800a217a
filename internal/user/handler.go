package user

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

// Handler exposes HTTP endpoints for user operations (register / login / me).
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterInput
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "request body must be valid JSON", nil)
		return
	}
	sess, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.writeErr(w, "register", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusCreated, sess, "Registration successful")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginInput
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "request body must be valid JSON", nil)
		return
	}
	sess, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.writeErr(w, "login", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, sess, "Login successful")
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.PrincipalFrom(r.Context())
	prof, err := h.svc.Profile(r.Context(), p.ID)
	if err != nil {
		h.writeErr(w, "profile", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, prof, "")
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		utilities.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Fields)
	case errors.Is(err, ErrBadCredentials):
		utilities.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	case errors.Is(err, ErrUserTypeMismatch):
		utilities.WriteError(w, http.StatusForbidden, "USER_TYPE_MISMATCH", "User type does not match", nil)
	case errors.Is(err, ErrEmailExists):
		utilities.WriteError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
	case errors.Is(err, ErrUserNotFound):
		utilities.WriteError(w, http.StatusNotFound, "NOT_FOUND", "User not found", nil)
	default:
		h.logger.Errorw(op+" failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", "An internal error occurred", nil)
	}
}

// Mount registers the account routes. Register and login are public.
func (h *Handler) Mount(mux *http.ServeMux, gate *auth.Gate) {
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.Handle("GET /api/auth/me", gate.RequireFunc(h.Me))
}
