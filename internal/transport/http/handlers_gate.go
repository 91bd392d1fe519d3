package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	gatemodels "vigil/internal/gate/models"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/httputil"
)

type gateRequest struct {
	UserID       string `json:"user_id"`
	Body         string `json:"body"`
	CaptchaOK    bool   `json:"captcha_ok"`
	HoneyTripped bool   `json:"honey_tripped"`
	Band         string `json:"band,omitempty"`
}

// HandleGateEnforce runs a write attempt through the gate. A 200 response
// carries the mutated write context (shadow and strip flags set); rejection
// codes map straight onto HTTP (429 cooldown, 403 captcha, 503 outage).
func (h *Handler) HandleGateEnforce(w http.ResponseWriter, r *http.Request) {
	surface := chi.URLParam(r, "surface")

	req, ok := httputil.Decode[gateRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.UserID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "user_id is required"))
		return
	}

	wctx := &gatemodels.WriteContext{
		Body:         req.Body,
		CaptchaOK:    req.CaptchaOK,
		HoneyTripped: req.HoneyTripped,
		Band:         req.Band,
	}
	out, err := h.gate.Enforce(r.Context(), req.UserID, surface, wctx)
	if err != nil {
		h.logger.Info("gate rejected write",
			"user_id", req.UserID,
			"surface", surface,
			"code", dErrors.CodeOf(err))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, out)
}
