package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	enfmodels "vigil/internal/enforce/models"
	"vigil/internal/policy"
	qmodels "vigil/internal/quarantine/models"
	"vigil/internal/scan"
	urlscan "vigil/internal/scan/url"
	"vigil/internal/stream"
	"vigil/internal/threshold"
	dErrors "vigil/pkg/domain-errors"
)

type enforceCall struct {
	subjectType string
	subjectID   string
	reason      string
	policyID    string
	decision    policy.Decision
}

type fakeEnforcer struct {
	mu    sync.Mutex
	calls []enforceCall
	err   error
}

func (f *fakeEnforcer) ApplyDecision(_ context.Context, subjectType, subjectID, _, baseReason string, decision *policy.Decision, policyID string) (*enfmodels.Case, policy.Action, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, policy.ActionNone, f.err
	}
	f.calls = append(f.calls, enforceCall{
		subjectType: subjectType,
		subjectID:   subjectID,
		reason:      baseReason,
		policyID:    policyID,
		decision:    *decision,
	})
	return &enfmodels.Case{
		CaseID:      "case-1",
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Status:      enfmodels.StatusActioned,
	}, decision.Action, nil
}

type HandlersSuite struct {
	suite.Suite

	ctx       context.Context
	transport *stream.MemoryLog
	enforcer  *fakeEnforcer
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersSuite))
}

func (s *HandlersSuite) SetupTest() {
	s.ctx = context.Background()
	s.transport = stream.NewMemoryLog()
	s.enforcer = &fakeEnforcer{}
}

func (s *HandlersSuite) entry(v any) stream.Entry {
	payload, err := json.Marshal(v)
	s.Require().NoError(err)
	return stream.Entry{ID: "1", Payload: payload}
}

func (s *HandlersSuite) decisions() []DecisionRecord {
	entries, err := s.transport.Read(s.ctx, stream.Decisions, "", 100, 0)
	s.Require().NoError(err)
	out := make([]DecisionRecord, len(entries))
	for i, e := range entries {
		s.Require().NoError(json.Unmarshal(e.Payload, &out[i]))
	}
	return out
}

func (s *HandlersSuite) results() []ScanResult {
	entries, err := s.transport.Read(s.ctx, stream.Results, "", 100, 0)
	s.Require().NoError(err)
	out := make([]ScanResult, len(entries))
	for i, e := range entries {
		s.Require().NoError(json.Unmarshal(e.Payload, &out[i]))
	}
	return out
}

func testPolicy() *policy.Policy {
	return &policy.Policy{
		ID:            "baseline",
		Version:       3,
		DefaultAction: policy.ActionNone,
		Rules: []policy.Rule{
			{
				ID: "toxic-high",
				When: []policy.Predicate{{
					Kind:       policy.PredicateTextAnyOf,
					Thresholds: []policy.LabelThreshold{{Category: "toxicity", Min: policy.LabelHigh}},
				}},
				Then: policy.Effect{Action: policy.ActionRemove, Severity: 5, Reason: "high toxicity"},
			},
			{
				ID: "spam-signals",
				When: []policy.Predicate{{
					Kind: policy.PredicateSignalsAllOf,
					Keys: []string{"link_spam"},
				}},
				Then: policy.Effect{Action: policy.ActionShadowHide, Severity: 2, Reason: "link spam"},
			},
		},
	}
}

func (s *HandlersSuite) TestIngressAppliesPolicyAndEmitsDecision() {
	h := NewIngressHandler(policy.NewEngine(), testPolicy(), s.enforcer, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(IngressEvent{
		EventID:     "ev-1",
		SubjectType: "post",
		SubjectID:   "p-1",
		TextLabels:  map[string]string{"toxicity": "high"},
	}))
	s.Require().NoError(err)

	s.Require().Len(s.enforcer.calls, 1)
	call := s.enforcer.calls[0]
	s.Equal("post", call.subjectType)
	s.Equal("p-1", call.subjectID)
	s.Equal("baseline", call.policyID)
	s.Equal(policy.ActionRemove, call.decision.Action)
	s.Equal(5, call.decision.Severity)

	recs := s.decisions()
	s.Require().Len(recs, 1)
	s.Equal("case-1", recs[0].CaseID)
	s.Equal("ev-1", recs[0].EventID)
	s.Equal(string(policy.ActionRemove), recs[0].AppliedAction)
	s.Equal([]string{"high toxicity"}, recs[0].Reasons)
}

func (s *HandlersSuite) TestDecisionsCarrySignals() {
	s.Run("ingress decisions carry the event signals", func() {
		h := NewIngressHandler(policy.NewEngine(), testPolicy(), s.enforcer, s.transport, nil, nil)

		err := h.Handle(s.ctx, s.entry(IngressEvent{
			EventID:     "ev-20",
			SubjectType: "post",
			SubjectID:   "p-20",
			Signals:     map[string]bool{"link_spam": true, "dup_text": true},
		}))
		s.Require().NoError(err)

		recs := s.decisions()
		s.Require().Len(recs, 1)
		s.Equal(map[string]bool{"link_spam": true, "dup_text": true}, recs[0].Signals)
	})

	s.Run("results decisions carry the scan result signals", func() {
		h := NewResultsHandler(s.enforcer, s.transport, nil, nil)

		err := h.Handle(s.ctx, s.entry(ScanResult{
			EventID:         "ev-21",
			SubjectType:     "post",
			SubjectID:       "p-21",
			Scanner:         scan.KindText,
			Signals:         map[string]bool{"dup_text": true},
			Status:          string(threshold.StatusQuarantined),
			Level:           3,
			SuggestedAction: string(policy.ActionTombstone),
		}))
		s.Require().NoError(err)

		recs := s.decisions()
		s.Require().Len(recs, 2)
		s.Equal(map[string]bool{"dup_text": true}, recs[1].Signals)
	})

	s.Run("signals key is present even without signals", func() {
		entries, err := s.transport.Read(s.ctx, stream.Decisions, "", 100, 0)
		s.Require().NoError(err)
		for _, e := range entries {
			var raw map[string]json.RawMessage
			s.Require().NoError(json.Unmarshal(e.Payload, &raw))
			s.Contains(raw, "signals")
		}
	})
}

func (s *HandlersSuite) TestIngressCleanEventIsSilent() {
	h := NewIngressHandler(policy.NewEngine(), testPolicy(), s.enforcer, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(IngressEvent{
		EventID:     "ev-2",
		SubjectType: "post",
		SubjectID:   "p-2",
		TextLabels:  map[string]string{"toxicity": "low"},
	}))
	s.Require().NoError(err)

	s.Empty(s.enforcer.calls)
	s.Empty(s.decisions())
}

func (s *HandlersSuite) TestIngressRejectsMalformedPayloads() {
	h := NewIngressHandler(policy.NewEngine(), testPolicy(), s.enforcer, s.transport, nil, nil)

	s.Run("bad json", func() {
		err := h.Handle(s.ctx, stream.Entry{ID: "1", Payload: []byte("{not json")})
		s.Require().Error(err)
		s.NotEqual(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	})

	s.Run("missing subject", func() {
		err := h.Handle(s.ctx, s.entry(IngressEvent{EventID: "ev-3"}))
		s.Require().Error(err)
		s.NotEqual(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	})
}

func (s *HandlersSuite) TestIngressEnforcerOutagePropagates() {
	s.enforcer.err = dErrors.New(dErrors.CodeUnavailable, "store down")
	h := NewIngressHandler(policy.NewEngine(), testPolicy(), s.enforcer, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(IngressEvent{
		EventID:     "ev-4",
		SubjectType: "post",
		SubjectID:   "p-4",
		Signals:     map[string]bool{"link_spam": true},
	}))
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	s.Empty(s.decisions())
}

func (s *HandlersSuite) TestResultsAppliesSuggestedAction() {
	h := NewResultsHandler(s.enforcer, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(ScanResult{
		EventID:         "ev-5",
		SubjectType:     "post",
		SubjectID:       "p-5",
		Scanner:         scan.KindText,
		Status:          string(threshold.StatusQuarantined),
		Level:           3,
		SuggestedAction: string(policy.ActionTombstone),
	}))
	s.Require().NoError(err)

	s.Require().Len(s.enforcer.calls, 1)
	call := s.enforcer.calls[0]
	s.Equal(policy.ActionTombstone, call.decision.Action)
	s.Equal(3, call.decision.Severity)
	s.Equal("text scan quarantined", call.reason)

	recs := s.decisions()
	s.Require().Len(recs, 1)
	s.Equal(3, recs[0].Severity)
	s.Equal(string(policy.ActionTombstone), recs[0].AppliedAction)
}

func (s *HandlersSuite) TestResultsIgnoresCleanVerdicts() {
	h := NewResultsHandler(s.enforcer, s.transport, nil, nil)

	for _, action := range []string{"", string(policy.ActionNone)} {
		err := h.Handle(s.ctx, s.entry(ScanResult{
			EventID:         "ev-6",
			SubjectType:     "post",
			SubjectID:       "p-6",
			Scanner:         scan.KindText,
			Status:          string(threshold.StatusClean),
			SuggestedAction: action,
		}))
		s.Require().NoError(err)
	}

	s.Empty(s.enforcer.calls)
	s.Empty(s.decisions())
}

func (s *HandlersSuite) TestResultsRejectsUnknownAction() {
	h := NewResultsHandler(s.enforcer, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(ScanResult{
		EventID:         "ev-7",
		SubjectType:     "post",
		SubjectID:       "p-7",
		SuggestedAction: "obliterate",
	}))
	s.Require().Error(err)
	s.NotEqual(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	s.Empty(s.enforcer.calls)
}

func (s *HandlersSuite) TestActionsConsumesDecisionRecords() {
	h := NewActionsHandler(nil, nil)

	err := h.Handle(s.ctx, s.entry(DecisionRecord{
		CaseID:        "case-9",
		SubjectType:   "post",
		SubjectID:     "p-9",
		Decision:      string(policy.ActionRemove),
		AppliedAction: string(policy.ActionRemove),
		Severity:      5,
	}))
	s.Require().NoError(err)

	s.Require().Error(h.Handle(s.ctx, stream.Entry{ID: "2", Payload: []byte("nope")}))
}

type stubTextScanner struct {
	decision threshold.Decision
	scores   map[string]float64
	err      error
	calls    int
}

func (f *stubTextScanner) Scan(_ context.Context, subjectType, subjectID, _, _ string) (*scan.Record, threshold.Decision, error) {
	f.calls++
	if f.err != nil {
		return nil, threshold.Decision{}, f.err
	}
	rec := scan.NewRecord(subjectType, subjectID, scan.KindText, f.scores, string(f.decision.Status))
	return rec, f.decision, nil
}

func (s *HandlersSuite) TestTextScanEmitsResult() {
	scanner := &stubTextScanner{
		scores: map[string]float64{"profanity": 0.7},
		decision: threshold.Decision{
			Status:          threshold.StatusQuarantined,
			Level:           3,
			SuggestedAction: policy.ActionTombstone,
			Category:        "profanity",
			Score:           0.7,
		},
	}
	h := NewTextScanHandler(scanner, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(IngressEvent{
		EventID:     "ev-10",
		SubjectType: "post",
		SubjectID:   "p-10",
		Surface:     "comment",
		Body:        "some text",
		Signals:     map[string]bool{"new_account": true},
	}))
	s.Require().NoError(err)

	res := s.results()
	s.Require().Len(res, 1)
	s.Equal(scan.KindText, res[0].Scanner)
	s.Equal(map[string]bool{"new_account": true}, res[0].Signals)
	s.Equal("ev-10", res[0].EventID)
	s.Equal(string(threshold.StatusQuarantined), res[0].Status)
	s.Equal(3, res[0].Level)
	s.Equal(string(policy.ActionTombstone), res[0].SuggestedAction)
	s.InDelta(0.7, res[0].Scores["profanity"], 0.0001)
}

func (s *HandlersSuite) TestTextScanSkipsEmptyBodies() {
	scanner := &stubTextScanner{}
	h := NewTextScanHandler(scanner, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(IngressEvent{
		EventID:     "ev-11",
		SubjectType: "post",
		SubjectID:   "p-11",
	}))
	s.Require().NoError(err)
	s.Zero(scanner.calls)
	s.Empty(s.results())
}

func (s *HandlersSuite) TestTextScanOutagePropagates() {
	scanner := &stubTextScanner{err: dErrors.New(dErrors.CodeUnavailable, "detector down")}
	h := NewTextScanHandler(scanner, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(IngressEvent{
		EventID:     "ev-12",
		SubjectType: "post",
		SubjectID:   "p-12",
		Body:        "text",
	}))
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	s.Empty(s.results())
}

type stubURLScanner struct {
	verdicts map[string]threshold.Decision
	err      error
}

func (f *stubURLScanner) Scan(_ context.Context, subjectType, subjectID, rawURL string) (*scan.Record, threshold.Decision, *urlscan.Classification, error) {
	if f.err != nil {
		return nil, threshold.Decision{}, nil, f.err
	}
	decision := f.verdicts[rawURL]
	rec := scan.NewRecord(subjectType, subjectID, scan.KindURL, nil, string(decision.Status))
	cls := &urlscan.Classification{FinalURL: rawURL, Verdict: verdictFor(decision.Status)}
	return rec, decision, cls, nil
}

func verdictFor(status threshold.Status) string {
	switch status {
	case threshold.StatusBlocked:
		return threshold.VerdictDenied
	case threshold.StatusNeedsReview:
		return threshold.VerdictSuspicious
	default:
		return threshold.VerdictAllowed
	}
}

func (s *HandlersSuite) TestURLScanEmitsOneResultPerURL() {
	scanner := &stubURLScanner{verdicts: map[string]threshold.Decision{
		"https://ok.example/a": {Status: threshold.StatusClean, SuggestedAction: policy.ActionNone},
		"https://bad.example/b": {
			Status:          threshold.StatusBlocked,
			Level:           4,
			SuggestedAction: policy.ActionRemove,
		},
	}}
	h := NewURLScanHandler(scanner, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(IngressEvent{
		EventID:     "ev-13",
		SubjectType: "post",
		SubjectID:   "p-13",
		URLs:        []string{"https://ok.example/a", "https://bad.example/b"},
	}))
	s.Require().NoError(err)

	res := s.results()
	s.Require().Len(res, 2)
	s.Equal(threshold.VerdictAllowed, res[0].Verdict)
	s.Equal(string(threshold.StatusClean), res[0].Status)
	s.Equal(threshold.VerdictDenied, res[1].Verdict)
	s.Equal(4, res[1].Level)
	s.Equal(string(policy.ActionRemove), res[1].SuggestedAction)
}

func (s *HandlersSuite) TestURLScanWithoutURLsIsSilent() {
	h := NewURLScanHandler(&stubURLScanner{}, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(IngressEvent{
		EventID:     "ev-14",
		SubjectType: "post",
		SubjectID:   "p-14",
		Body:        "no links here",
	}))
	s.Require().NoError(err)
	s.Empty(s.results())
}

func (s *HandlersSuite) TestURLScanOutagePropagates() {
	scanner := &stubURLScanner{err: dErrors.New(dErrors.CodeUnavailable, "classifier down")}
	h := NewURLScanHandler(scanner, s.transport, nil, nil)

	err := h.Handle(s.ctx, s.entry(IngressEvent{
		EventID:     "ev-15",
		SubjectType: "post",
		SubjectID:   "p-15",
		URLs:        []string{"https://x.example"},
	}))
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

type stubIntake struct {
	holds []QuarantineHold
	err   error
}

func (f *stubIntake) Intake(_ context.Context, attachmentID, subjectType, subjectID string, scores map[string]float64) (*qmodels.Item, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.holds = append(f.holds, QuarantineHold{
		AttachmentID: attachmentID,
		SubjectType:  subjectType,
		SubjectID:    subjectID,
		SafetyScore:  scores,
	})
	return &qmodels.Item{AttachmentID: attachmentID}, nil
}

func (s *HandlersSuite) TestQuarantineHandlerHoldsAttachments() {
	intake := &stubIntake{}
	h := NewQuarantineHandler(intake, nil)

	err := h.Handle(s.ctx, s.entry(QuarantineHold{
		AttachmentID: "att-20",
		SubjectType:  "attachment",
		SubjectID:    "att-20",
		SafetyScore:  map[string]float64{"nsfw": 0.9},
	}))
	s.Require().NoError(err)
	s.Require().Len(intake.holds, 1)
	s.Equal("att-20", intake.holds[0].AttachmentID)

	s.Run("intake outage propagates", func() {
		intake.err = dErrors.New(dErrors.CodeUnavailable, "store down")
		err := h.Handle(s.ctx, s.entry(QuarantineHold{AttachmentID: "att-21", SubjectType: "attachment", SubjectID: "att-21"}))
		s.Require().Error(err)
		s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	})

	s.Run("bad json is skipped", func() {
		err := h.Handle(s.ctx, stream.Entry{ID: "9", Payload: []byte("{")})
		s.Require().Error(err)
		s.NotEqual(dErrors.CodeUnavailable, dErrors.CodeOf(err))
	})
}
