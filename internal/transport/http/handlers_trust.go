package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	resmodels "vigil/internal/restriction/models"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/httputil"
)

type revokeActiveRequest struct {
	UserID string `json:"user_id"`
	Scope  string `json:"scope"`
	Mode   string `json:"mode"`
}

// HandleRestrictionList handles GET /admin/restrictions/{userID} requests.
func (h *Handler) HandleRestrictionList(w http.ResponseWriter, r *http.Request) {
	restrictions, err := h.restrictions.ListActive(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"restrictions": restrictions})
}

// HandleRestrictionRevoke handles DELETE /admin/restrictions/{restrictionID}.
func (h *Handler) HandleRestrictionRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	restrictionID := chi.URLParam(r, "restrictionID")

	if err := h.restrictions.Revoke(ctx, restrictionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "restriction revoked",
		"log_type", "audit",
		"restriction_id", restrictionID,
		"actor_id", actor(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// HandleRestrictionRevokeActive handles POST /admin/restrictions/revoke.
// Revokes every active restriction matching user, scope, and mode; this is
// the moderator unmute path when several overlapping rows exist.
func (h *Handler) HandleRestrictionRevokeActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[revokeActiveRequest](w, r, h.logger)
	if !ok {
		return
	}

	mode := resmodels.Mode(req.Mode)
	if !mode.IsValid() {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeInvalidInput, "unknown mode %q", req.Mode))
		return
	}

	revoked, err := h.restrictions.RevokeActive(ctx, req.UserID, req.Scope, mode)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "active restrictions revoked",
		"log_type", "audit",
		"user_id", req.UserID,
		"scope", req.Scope,
		"mode", req.Mode,
		"revoked", revoked,
		"actor_id", actor(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"revoked": revoked})
}

// HandleReputationGet handles GET /admin/reputation/{userID} requests. The
// response carries the score row and its recent events.
func (h *Handler) HandleReputationGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "userID")

	score, err := h.reputation.GetOrCreate(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.reputation.EventsByUser(ctx, userID, queryLimit(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"score":  score,
		"events": events,
	})
}
