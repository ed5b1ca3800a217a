package claim

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/auth"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/internal/claim/entity"
	"github.com/ovaphlow/pitchfork/service-krishi-connect/pkg/utilities"
)

// Handler exposes the claim endpoints. Role checks happen in the gate
// before these methods run.
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
		h.logger.Debugw("invalid claim payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "request body must be valid JSON", nil)
		return
	}
	rec, err := h.svc.Create(r.Context(), principal(r), in)
	if err != nil {
		h.writeErr(w, "create claim", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusCreated, rec, "Climate damage claim submitted successfully")
}

// List serves both the farmer's own listing and the government listing;
// the service scopes the query by role.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q, err := listQuery(r)
	if err != nil {
		h.writeErr(w, "list claims", err)
		return
	}
	claims, err := h.svc.List(r.Context(), principal(r), q)
	if err != nil {
		h.writeErr(w, "list claims", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, map[string]any{
		"claims": claims,
		"count":  len(claims),
		"limit":  clampLimit(q.Limit),
		"offset": q.Offset,
	}, "")
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		h.writeErr(w, "get claim", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, c, "")
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in StatusInput
	if err := utilities.DecodeJSON(r, &in); err != nil {
		h.logger.Debugw("invalid status payload", "err", err)
		utilities.WriteError(w, http.StatusBadRequest, "INVALID_PAYLOAD", "request body must be valid JSON", nil)
		return
	}
	c, err := h.svc.UpdateStatus(r.Context(), principal(r), r.PathValue("id"), in)
	if err != nil {
		h.writeErr(w, "update claim status", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, c, "Claim status updated to "+string(c.Status))
}

func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Statistics(r.Context(), principal(r), r.URL.Query().Get("user_id"))
	if err != nil {
		h.writeErr(w, "claim statistics", err)
		return
	}
	utilities.WriteSuccess(w, http.StatusOK, st, "")
}

func (h *Handler) writeErr(w http.ResponseWriter, op string, err error) {
	var verr *ValidationError
	var terr *TransitionError
	switch {
	case errors.As(err, &verr):
		utilities.WriteError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), verr.Fields)
	case errors.Is(err, ErrNotFound):
		utilities.WriteError(w, http.StatusNotFound, "NOT_FOUND", "Claim not found", nil)
	case errors.Is(err, ErrInvalidStatus):
		utilities.WriteError(w, http.StatusBadRequest, "INVALID_STATUS",
			"Status must be one of: "+statusList(), nil)
	case errors.Is(err, ErrApprovedAmountRequired):
		utilities.WriteError(w, http.StatusBadRequest, "APPROVED_AMOUNT_REQUIRED",
			"Approved amount is required when approving a claim", nil)
	case errors.As(err, &terr):
		utilities.WriteError(w, http.StatusConflict, "INVALID_TRANSITION", terr.Error(),
			map[string]any{"from": terr.From, "to": terr.To})
	case errors.Is(err, ErrForbidden):
		utilities.WriteError(w, http.StatusForbidden, "INSUFFICIENT_PERMISSIONS", "Operation not permitted for this role", nil)
	default:
		h.logger.Errorw(op+" failed", "err", err)
		utilities.WriteError(w, http.StatusInternalServerError, "PERSISTENCE_ERROR", "An internal error occurred", nil)
	}
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func listQuery(r *http.Request) (ListQuery, error) {
	v := r.URL.Query()
	q := ListQuery{
		Status:     v.Get("status"),
		DamageType: v.Get("damage_type"),
		Severity:   v.Get("severity"),
		From:       v.Get("from"),
		To:         v.Get("to"),
		UserID:     v.Get("user_id"),
	}
	var bad utilities.Violations
	q.Limit = intParam(v.Get("limit"), "limit", &bad)
	q.Offset = intParam(v.Get("offset"), "offset", &bad)
	return q, bad.Err()
}

func intParam(raw, field string, v *utilities.Violations) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.Add(field, "%s must be an integer", field)
		return 0
	}
	return n
}

func statusList() string {
	parts := make([]string, len(entity.Statuses))
	for i, s := range entity.Statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}

// Mount registers the claim routes on mux behind gate.
func (h *Handler) Mount(mux *http.ServeMux, gate *auth.Gate) {
	const base = "/api/climate-damage-claims"
	mux.Handle("POST "+base, gate.RequireFunc(h.Create, auth.RoleFarmer))
	mux.Handle("GET "+base, gate.RequireFunc(h.List, auth.RoleFarmer))
	mux.Handle("GET "+base+"/statistics", gate.RequireFunc(h.Statistics, auth.RoleFarmer, auth.RoleGovernment))
	mux.Handle("GET "+base+"/government", gate.RequireFunc(h.List, auth.RoleGovernment))
	mux.Handle("GET "+base+"/government/{id}", gate.RequireFunc(h.Get, auth.RoleGovernment))
	mux.Handle("PUT "+base+"/government/{id}/status", gate.RequireFunc(h.UpdateStatus, auth.RoleGovernment))
	mux.Handle("GET "+base+"/{id}", gate.RequireFunc(h.Get, auth.RoleFarmer))
}
