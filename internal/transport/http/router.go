// Package httptransport is the thin HTTP layer over the moderation services.
// Handlers delegate to domain services and translate coded errors; no
// business logic lives here.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	enfmodels "vigil/internal/enforce/models"
	gatemodels "vigil/internal/gate/models"
	qmodels "vigil/internal/quarantine/models"
	repmodels "vigil/internal/reputation/models"
	resmodels "vigil/internal/restriction/models"
	adminmw "vigil/pkg/platform/middleware/admin"
	"vigil/pkg/platform/middleware/metadata"
	request "vigil/pkg/platform/middleware/request"
	"vigil/pkg/platform/middleware/requesttime"
	"vigil/pkg/requestcontext"
)

// SystemActor is recorded when an admin request carries no actor header.
const SystemActor = "system"

// QuarantineService is the review-queue surface of the admin API.
type QuarantineService interface {
	ListItems(ctx context.Context, status qmodels.Status, after time.Time, limit int) ([]*qmodels.Item, error)
	Resolve(ctx context.Context, attachmentID, verdict, note, actorID string) (*qmodels.Item, error)
}

// CaseService is the moderation-case surface of the admin API.
type CaseService interface {
	GetCase(ctx context.Context, caseID string) (*enfmodels.Case, error)
	ListCases(ctx context.Context, status enfmodels.Status, limit int) ([]*enfmodels.Case, error)
	ActionsByCase(ctx context.Context, caseID string) ([]*enfmodels.ModerationAction, error)
	Dismiss(ctx context.Context, caseID, actorID, note string) (*enfmodels.Case, error)
	Escalate(ctx context.Context, caseID, actorID string) (*enfmodels.Case, error)
	Reopen(ctx context.Context, caseID, actorID string) (*enfmodels.Case, error)
	Assign(ctx context.Context, caseID, assignee, actorID string) (*enfmodels.Case, error)
	OpenAppeal(ctx context.Context, caseID, userID, note string) (*enfmodels.Case, error)
	ResolveAppeal(ctx context.Context, caseID, actorID, note string) (*enfmodels.Case, error)
}

// RestrictionService is the restriction-ledger surface of the admin API.
type RestrictionService interface {
	ListActive(ctx context.Context, userID string) ([]*resmodels.Restriction, error)
	Revoke(ctx context.Context, id string) error
	RevokeActive(ctx context.Context, userID, scope string, mode resmodels.Mode) (int, error)
}

// GateService is the write-path check invoked by the owning platform before
// it accepts user content.
type GateService interface {
	Enforce(ctx context.Context, userID, surface string, wctx *gatemodels.WriteContext) (*gatemodels.WriteContext, error)
}

// ReputationService is the reputation surface of the admin API.
type ReputationService interface {
	GetOrCreate(ctx context.Context, userID string) (*repmodels.Score, error)
	EventsByUser(ctx context.Context, userID string, limit int) ([]*repmodels.Event, error)
}

// Handler wires the admin endpoints to the domain services.
type Handler struct {
	gate         GateService
	quarantine   QuarantineService
	cases        CaseService
	restrictions RestrictionService
	reputation   ReputationService
	logger       *slog.Logger
}

// New constructs the admin handler with its dependencies.
func New(gate GateService, quarantine QuarantineService, cases CaseService, restrictions RestrictionService, reputation ReputationService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		gate:         gate,
		quarantine:   quarantine,
		cases:        cases,
		restrictions: restrictions,
		reputation:   reputation,
		logger:       logger,
	}
}

// NewRouter assembles the full HTTP surface: health, metrics exposition, and
// the token-protected moderator admin API.
func NewRouter(h *Handler, adminToken string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Write-path check, called service-to-service by the owning platform.
	r.Post("/v1/gate/{surface}", h.HandleGateEnforce)

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(adminmw.RequireAdminToken(adminToken, logger))
		ar.Use(adminmw.ActorFromHeader)

		ar.Get("/quarantine", h.HandleQuarantineList)
		ar.Post("/quarantine/{attachmentID}/resolve", h.HandleQuarantineResolve)

		ar.Get("/cases", h.HandleCaseList)
		ar.Get("/cases/{caseID}", h.HandleCaseGet)
		ar.Get("/cases/{caseID}/actions", h.HandleCaseActions)
		ar.Post("/cases/{caseID}/dismiss", h.HandleCaseDismiss)
		ar.Post("/cases/{caseID}/escalate", h.HandleCaseEscalate)
		ar.Post("/cases/{caseID}/reopen", h.HandleCaseReopen)
		ar.Post("/cases/{caseID}/assign", h.HandleCaseAssign)
		ar.Post("/cases/{caseID}/appeal", h.HandleAppealOpen)
		ar.Post("/cases/{caseID}/appeal/resolve", h.HandleAppealResolve)

		ar.Get("/restrictions/{userID}", h.HandleRestrictionList)
		ar.Delete("/restrictions/{restrictionID}", h.HandleRestrictionRevoke)
		ar.Post("/restrictions/revoke", h.HandleRestrictionRevokeActive)

		ar.Get("/reputation/{userID}", h.HandleReputationGet)
	})

	return r
}

// actor resolves the acting moderator from the request context.
func actor(ctx context.Context) string {
	if actorID := requestcontext.ActorID(ctx); actorID != "" {
		return actorID
	}
	return SystemActor
}
