package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	qmodels "vigil/internal/quarantine/models"
	dErrors "vigil/pkg/domain-errors"
	"vigil/pkg/platform/httputil"
)

const defaultPageSize = 50

type resolveRequest struct {
	Verdict string `json:"verdict"`
	Note    string `json:"note,omitempty"`
}

// HandleQuarantineList handles GET /admin/quarantine requests. Query params:
// status (default needs_review), after (RFC 3339 cursor), limit.
func (h *Handler) HandleQuarantineList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := qmodels.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = qmodels.StatusNeedsReview
	}

	var after time.Time
	if raw := r.URL.Query().Get("after"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "after must be RFC 3339"))
			return
		}
		after = parsed
	}

	items, err := h.quarantine.ListItems(ctx, status, after, queryLimit(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// HandleQuarantineResolve handles POST /admin/quarantine/{attachmentID}/resolve.
func (h *Handler) HandleQuarantineResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	attachmentID := chi.URLParam(r, "attachmentID")

	req, ok := httputil.Decode[resolveRequest](w, r, h.logger)
	if !ok {
		return
	}

	item, err := h.quarantine.Resolve(ctx, attachmentID, req.Verdict, req.Note, actor(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "quarantine resolve failed",
			"attachment_id", attachmentID,
			"verdict", req.Verdict,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, item)
}

func queryLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultPageSize
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultPageSize
	}
	return limit
}
