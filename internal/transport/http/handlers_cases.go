package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	enfmodels "vigil/internal/enforce/models"
	"vigil/pkg/platform/httputil"
)

type noteRequest struct {
	Note string `json:"note,omitempty"`
}

type assignRequest struct {
	Assignee string `json:"assignee"`
}

type appealRequest struct {
	UserID string `json:"user_id"`
	Note   string `json:"note,omitempty"`
}

// HandleCaseList handles GET /admin/cases requests. An empty status query
// returns cases in every state.
func (h *Handler) HandleCaseList(w http.ResponseWriter, r *http.Request) {
	status := enfmodels.Status(r.URL.Query().Get("status"))
	cases, err := h.cases.ListCases(r.Context(), status, queryLimit(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cases": cases})
}

// HandleCaseGet handles GET /admin/cases/{caseID} requests.
func (h *Handler) HandleCaseGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.cases.GetCase(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleCaseActions handles GET /admin/cases/{caseID}/actions requests.
func (h *Handler) HandleCaseActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.cases.ActionsByCase(r.Context(), chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

// HandleCaseDismiss handles POST /admin/cases/{caseID}/dismiss requests.
func (h *Handler) HandleCaseDismiss(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[noteRequest](w, r, h.logger)
	if !ok {
		return
	}
	h.mutateCase(w, r, func() (*enfmodels.Case, error) {
		return h.cases.Dismiss(ctx, chi.URLParam(r, "caseID"), actor(ctx), req.Note)
	})
}

// HandleCaseEscalate handles POST /admin/cases/{caseID}/escalate requests.
func (h *Handler) HandleCaseEscalate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.mutateCase(w, r, func() (*enfmodels.Case, error) {
		return h.cases.Escalate(ctx, chi.URLParam(r, "caseID"), actor(ctx))
	})
}

// HandleCaseReopen handles POST /admin/cases/{caseID}/reopen requests.
func (h *Handler) HandleCaseReopen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	h.mutateCase(w, r, func() (*enfmodels.Case, error) {
		return h.cases.Reopen(ctx, chi.URLParam(r, "caseID"), actor(ctx))
	})
}

// HandleCaseAssign handles POST /admin/cases/{caseID}/assign requests.
func (h *Handler) HandleCaseAssign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[assignRequest](w, r, h.logger)
	if !ok {
		return
	}
	h.mutateCase(w, r, func() (*enfmodels.Case, error) {
		return h.cases.Assign(ctx, chi.URLParam(r, "caseID"), req.Assignee, actor(ctx))
	})
}

// HandleAppealOpen handles POST /admin/cases/{caseID}/appeal requests.
func (h *Handler) HandleAppealOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[appealRequest](w, r, h.logger)
	if !ok {
		return
	}
	h.mutateCase(w, r, func() (*enfmodels.Case, error) {
		return h.cases.OpenAppeal(ctx, chi.URLParam(r, "caseID"), req.UserID, req.Note)
	})
}

// HandleAppealResolve handles POST /admin/cases/{caseID}/appeal/resolve requests.
func (h *Handler) HandleAppealResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[noteRequest](w, r, h.logger)
	if !ok {
		return
	}
	h.mutateCase(w, r, func() (*enfmodels.Case, error) {
		return h.cases.ResolveAppeal(ctx, chi.URLParam(r, "caseID"), actor(ctx), req.Note)
	})
}

func (h *Handler) mutateCase(w http.ResponseWriter, r *http.Request, mutate func() (*enfmodels.Case, error)) {
	c, err := mutate()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "case mutation failed",
			"case_id", chi.URLParam(r, "caseID"),
			"path", r.URL.Path,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}
