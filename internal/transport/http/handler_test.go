package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/audit"
	enfmodels "vigil/internal/enforce/models"
	"vigil/internal/enforce/ports"
	enfservice "vigil/internal/enforce/service"
	enfstore "vigil/internal/enforce/store"
	gateservice "vigil/internal/gate/service"
	"vigil/internal/policy"
	qmodels "vigil/internal/quarantine/models"
	qservice "vigil/internal/quarantine/service"
	qstore "vigil/internal/quarantine/store"
	repservice "vigil/internal/reputation/service"
	repstore "vigil/internal/reputation/store"
	resmodels "vigil/internal/restriction/models"
	resservice "vigil/internal/restriction/service"
	resstore "vigil/internal/restriction/store"
	velconfig "vigil/internal/velocity/config"
	velservice "vigil/internal/velocity/service"
	velstore "vigil/internal/velocity/store"
)

const testAdminToken = "test-admin-token"

type AdminAPISuite struct {
	suite.Suite

	ctx          context.Context
	server       *httptest.Server
	enforcement  *enfservice.Service
	quarantine   *qservice.Service
	restrictions *resservice.Service
	reputation   *repservice.Service
	gate         *gateservice.Service
}

func TestAdminAPISuite(t *testing.T) {
	suite.Run(t, new(AdminAPISuite))
}

func (s *AdminAPISuite) SetupTest() {
	s.ctx = context.Background()

	var err error
	s.enforcement, err = enfservice.New(enfstore.NewMemory(), ports.NoopHooks{},
		enfservice.WithAudit(audit.NewPublisher(audit.NewMemoryStore())))
	s.Require().NoError(err)

	s.quarantine, err = qservice.New(qstore.NewMemory(), s.enforcement)
	s.Require().NoError(err)

	s.restrictions, err = resservice.New(resstore.NewMemory())
	s.Require().NoError(err)

	s.reputation, err = repservice.New(repstore.NewMemory())
	s.Require().NoError(err)

	velocity, err := velservice.New(velstore.NewMemory(),
		velservice.WithConfig(velconfig.DefaultConfig()))
	s.Require().NoError(err)
	s.gate, err = gateservice.New(s.reputation, velocity, s.restrictions)
	s.Require().NoError(err)

	handler := New(s.gate, s.quarantine, s.enforcement, s.restrictions, s.reputation, nil)
	s.server = httptest.NewServer(NewRouter(handler, testAdminToken, nil))
}

func (s *AdminAPISuite) TearDownTest() {
	s.server.Close()
}

func (s *AdminAPISuite) do(method, path string, body any, authed bool) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	if authed {
		req.Header.Set("X-Admin-Token", testAdminToken)
		req.Header.Set("X-Actor-ID", "mod-1")
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *AdminAPISuite) decode(resp *http.Response, into any) {
	defer resp.Body.Close()
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(into))
}

func (s *AdminAPISuite) TestHealthz() {
	resp, err := s.server.Client().Get(s.server.URL + "/healthz")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *AdminAPISuite) TestMetricsExposition() {
	resp, err := s.server.Client().Get(s.server.URL + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *AdminAPISuite) TestAdminRequiresToken() {
	resp := s.do(http.MethodGet, "/admin/cases", nil, false)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *AdminAPISuite) TestQuarantineListAndResolve() {
	_, err := s.quarantine.Intake(s.ctx, "att-1", "attachment", "att-1",
		map[string]float64{"nsfw": 0.93})
	s.Require().NoError(err)

	resp := s.do(http.MethodGet, "/admin/quarantine", nil, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var listBody struct {
		Items []*qmodels.Item `json:"items"`
	}
	s.decode(resp, &listBody)
	s.Require().Len(listBody.Items, 1)
	s.Equal("att-1", listBody.Items[0].AttachmentID)

	resp = s.do(http.MethodPost, "/admin/quarantine/att-1/resolve",
		map[string]string{"verdict": "blocked", "note": "confirmed"}, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var item qmodels.Item
	s.decode(resp, &item)
	s.Equal(qmodels.StatusResolved, item.SafetyStatus)

	// The verdict opened and actioned a case through enforcement.
	cases, err := s.enforcement.ListCases(s.ctx, enfmodels.StatusActioned, 10)
	s.Require().NoError(err)
	s.Require().Len(cases, 1)
	s.Equal("attachment", cases[0].SubjectType)
	s.Equal(5, cases[0].Severity)
}

func (s *AdminAPISuite) TestQuarantineResolveValidation() {
	s.Run("unknown attachment", func() {
		resp := s.do(http.MethodPost, "/admin/quarantine/missing/resolve",
			map[string]string{"verdict": "clean"}, true)
		defer resp.Body.Close()
		s.Equal(http.StatusNotFound, resp.StatusCode)
	})

	s.Run("unknown verdict", func() {
		_, err := s.quarantine.Intake(s.ctx, "att-2", "attachment", "att-2", nil)
		s.Require().NoError(err)

		resp := s.do(http.MethodPost, "/admin/quarantine/att-2/resolve",
			map[string]string{"verdict": "obliterate"}, true)
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})

	s.Run("bad cursor", func() {
		resp := s.do(http.MethodGet, "/admin/quarantine?after=yesterday", nil, true)
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *AdminAPISuite) openCase() *enfmodels.Case {
	decision := &policy.Decision{Action: policy.ActionWarn, Severity: 1, Reasons: []string{"spam"}}
	c, _, err := s.enforcement.ApplyDecision(s.ctx, "post", "p-1", "", "spam", decision, "")
	s.Require().NoError(err)
	return c
}

func (s *AdminAPISuite) TestCaseLifecycleOverHTTP() {
	c := s.openCase()

	resp := s.do(http.MethodGet, "/admin/cases/"+c.CaseID, nil, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var fetched enfmodels.Case
	s.decode(resp, &fetched)
	s.Equal(c.CaseID, fetched.CaseID)
	s.Equal(enfmodels.StatusActioned, fetched.Status)

	resp = s.do(http.MethodGet, "/admin/cases/"+c.CaseID+"/actions", nil, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var actionsBody struct {
		Actions []*enfmodels.ModerationAction `json:"actions"`
	}
	s.decode(resp, &actionsBody)
	s.Require().Len(actionsBody.Actions, 1)

	resp = s.do(http.MethodPost, "/admin/cases/"+c.CaseID+"/appeal",
		map[string]string{"user_id": "u-1", "note": "not spam"}, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var appealed enfmodels.Case
	s.decode(resp, &appealed)
	s.True(appealed.AppealOpen)

	resp = s.do(http.MethodPost, "/admin/cases/"+c.CaseID+"/appeal/resolve",
		map[string]string{"note": "reviewed"}, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var resolved enfmodels.Case
	s.decode(resp, &resolved)
	s.False(resolved.AppealOpen)
}

func (s *AdminAPISuite) TestCaseListFiltersByStatus() {
	s.openCase()

	resp := s.do(http.MethodGet, "/admin/cases?status=actioned", nil, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var body struct {
		Cases []*enfmodels.Case `json:"cases"`
	}
	s.decode(resp, &body)
	s.Len(body.Cases, 1)

	resp = s.do(http.MethodGet, "/admin/cases?status=dismissed", nil, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var empty struct {
		Cases []*enfmodels.Case `json:"cases"`
	}
	s.decode(resp, &empty)
	s.Empty(empty.Cases)

	resp = s.do(http.MethodGet, "/admin/cases?status=bogus", nil, true)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *AdminAPISuite) TestCaseTransitionConflict() {
	c := s.openCase()

	resp := s.do(http.MethodPost, "/admin/cases/"+c.CaseID+"/dismiss",
		map[string]string{"note": "duplicate"}, true)
	defer resp.Body.Close()
	// Actioned is terminal except for escalation; dismiss conflicts.
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *AdminAPISuite) TestUnknownCaseIs404() {
	resp := s.do(http.MethodGet, "/admin/cases/missing", nil, true)
	defer resp.Body.Close()
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *AdminAPISuite) TestRestrictionListAndRevoke() {
	restriction, err := s.restrictions.ApplyCooldown(s.ctx, "u-1", "post",
		30*time.Minute, "velocity trip", "system")
	s.Require().NoError(err)

	resp := s.do(http.MethodGet, "/admin/restrictions/u-1", nil, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var listBody struct {
		Restrictions []*resmodels.Restriction `json:"restrictions"`
	}
	s.decode(resp, &listBody)
	s.Require().Len(listBody.Restrictions, 1)

	resp = s.do(http.MethodDelete, "/admin/restrictions/"+restriction.ID, nil, true)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	remaining, err := s.restrictions.ListActive(s.ctx, "u-1")
	s.Require().NoError(err)
	s.Empty(remaining)
}

func (s *AdminAPISuite) TestRevokeActiveUnmutesAllRows() {
	_, err := s.restrictions.ApplyShadow(s.ctx, "u-2", "message", time.Hour, "mute", "system")
	s.Require().NoError(err)
	_, err = s.restrictions.ApplyShadow(s.ctx, "u-2", "message", 2*time.Hour, "mute again", "system")
	s.Require().NoError(err)

	resp := s.do(http.MethodPost, "/admin/restrictions/revoke",
		map[string]string{"user_id": "u-2", "scope": "message", "mode": "shadow"}, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var body struct {
		Revoked int `json:"revoked"`
	}
	s.decode(resp, &body)
	s.Equal(2, body.Revoked)

	s.Run("unknown mode rejected", func() {
		resp := s.do(http.MethodPost, "/admin/restrictions/revoke",
			map[string]string{"user_id": "u-2", "scope": "message", "mode": "banhammer"}, true)
		defer resp.Body.Close()
		s.Equal(http.StatusBadRequest, resp.StatusCode)
	})
}

func (s *AdminAPISuite) TestReputationLookup() {
	_, err := s.reputation.RecordEvent(s.ctx, "u-3", "post", "velocity_trip", 5)
	s.Require().NoError(err)

	resp := s.do(http.MethodGet, "/admin/reputation/u-3", nil, true)
	s.Equal(http.StatusOK, resp.StatusCode)
	var body struct {
		Score struct {
			UserID string `json:"user_id"`
			Score  int    `json:"score"`
			Band   string `json:"band"`
		} `json:"score"`
		Events []map[string]any `json:"events"`
	}
	s.decode(resp, &body)
	s.Equal("u-3", body.Score.UserID)
	s.Equal(5, body.Score.Score)
	s.Len(body.Events, 1)
}

func (s *AdminAPISuite) TestGateAllowsCleanWrite() {
	resp := s.do(http.MethodPost, "/v1/gate/post", map[string]any{
		"user_id": "u-10",
		"body":    "hello there",
	}, false)
	s.Equal(http.StatusOK, resp.StatusCode)

	var wctx struct {
		Shadow     bool `json:"shadow"`
		StripLinks bool `json:"strip_links"`
	}
	s.decode(resp, &wctx)
	s.False(wctx.Shadow)
	s.False(wctx.StripLinks)
}

func (s *AdminAPISuite) TestGateCooldownRejectsWithRetryAfter() {
	_, err := s.restrictions.ApplyCooldown(s.ctx, "u-11", "post", 10*time.Minute, "spam burst", "mod-1")
	s.Require().NoError(err)

	resp := s.do(http.MethodPost, "/v1/gate/post", map[string]any{
		"user_id": "u-11",
		"body":    "again",
	}, false)
	s.Equal(http.StatusTooManyRequests, resp.StatusCode)
	s.NotEmpty(resp.Header.Get("Retry-After"))

	var body map[string]string
	s.decode(resp, &body)
	s.Equal("cooldown_active", body["error"])
}

func (s *AdminAPISuite) TestGateHoneypotForcesCaptcha() {
	resp := s.do(http.MethodPost, "/v1/gate/message", map[string]any{
		"user_id":       "u-12",
		"body":          "buy now",
		"honey_tripped": true,
	}, false)
	s.Equal(http.StatusForbidden, resp.StatusCode)

	var body map[string]string
	s.decode(resp, &body)
	s.Equal("captcha_required", body["error"])

	active, err := s.restrictions.ListActive(s.ctx, "u-12")
	s.Require().NoError(err)
	s.Len(active, 2)
}

func (s *AdminAPISuite) TestGateRejectsMissingUser() {
	resp := s.do(http.MethodPost, "/v1/gate/post", map[string]any{"body": "x"}, false)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
