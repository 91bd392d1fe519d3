package threshold

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"vigil/internal/policy"
)

type EvaluatorSuite struct {
	suite.Suite
	evaluator *Evaluator
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

func (s *EvaluatorSuite) SetupTest() {
	var err error
	s.evaluator, err = New()
	s.Require().NoError(err)
}

func (s *EvaluatorSuite) TestTextCutPoints() {
	cases := []struct {
		name   string
		score  float64
		status Status
		level  int
		action policy.Action
	}{
		{"well below warn", 0.1, StatusClean, 0, policy.ActionNone},
		{"just below warn", 0.39, StatusClean, 0, policy.ActionNone},
		{"at warn", 0.4, StatusFlagged, 1, policy.ActionWarn},
		{"at restrict", 0.6, StatusNeedsReview, 2, policy.ActionRestrictCreate},
		{"at tombstone", 0.8, StatusQuarantined, 3, policy.ActionTombstone},
		{"at remove", 0.92, StatusBlocked, 4, policy.ActionRemove},
		{"maximum", 1.0, StatusBlocked, 4, policy.ActionRemove},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			d := s.evaluator.EvaluateText(map[string]float64{"toxicity": tc.score}, "post")
			s.Equal(tc.status, d.Status)
			s.Equal(tc.level, d.Level)
			s.Equal(tc.action, d.SuggestedAction)
			s.Equal("toxicity", d.Category)
		})
	}
}

func (s *EvaluatorSuite) TestTextMonotonic() {
	prev := -1
	for score := 0.0; score <= 1.0; score += 0.01 {
		d := s.evaluator.EvaluateText(map[string]float64{"spam": score}, "post")
		s.GreaterOrEqual(d.Level, prev, "level regressed at score %.2f", score)
		prev = d.Level
	}
}

func (s *EvaluatorSuite) TestDominantCategoryDrives() {
	d := s.evaluator.EvaluateText(map[string]float64{
		"spam":     0.2,
		"toxicity": 0.85,
		"scam":     0.5,
	}, "post")
	s.Equal("toxicity", d.Category)
	s.Equal(StatusQuarantined, d.Status)
}

func (s *EvaluatorSuite) TestEmptyScoresClean() {
	d := s.evaluator.EvaluateText(nil, "post")
	s.Equal(StatusClean, d.Status)
	s.Equal(policy.ActionNone, d.SuggestedAction)
}

func (s *EvaluatorSuite) TestSurfaceOverride() {
	strict, err := New(WithSurfaceCutPoints("message", CutPoints{
		Warn: 0.2, Restrict: 0.3, Tombstone: 0.5, Remove: 0.7,
	}))
	s.Require().NoError(err)

	scores := map[string]float64{"scam": 0.55}
	s.Equal(StatusClean, strict.EvaluateText(scores, "post").Status)
	s.Equal(StatusQuarantined, strict.EvaluateText(scores, "message").Status)
}

func (s *EvaluatorSuite) TestInvalidCutPointsRejected() {
	_, err := New(WithDefaultCutPoints(CutPoints{Warn: 0.8, Restrict: 0.5, Tombstone: 0.9, Remove: 1.0}))
	s.Error(err)

	_, err = New(WithSurfaceCutPoints("post", CutPoints{Warn: 0.5, Restrict: 0.4, Tombstone: 0.6, Remove: 0.7}))
	s.Error(err)
}

func (s *EvaluatorSuite) TestURLVerdicts() {
	cases := []struct {
		verdict string
		status  Status
		action  policy.Action
	}{
		{VerdictAllowed, StatusClean, policy.ActionNone},
		{VerdictUnknown, StatusClean, policy.ActionNone},
		{VerdictSuspicious, StatusNeedsReview, policy.ActionRestrictCreate},
		{VerdictMalicious, StatusBlocked, policy.ActionRemove},
		{VerdictDenied, StatusBlocked, policy.ActionRemove},
		{"weird-new-verdict", StatusNeedsReview, policy.ActionRestrictCreate},
	}
	for _, tc := range cases {
		s.Run(tc.verdict, func() {
			d := s.evaluator.EvaluateURL(tc.verdict)
			s.Equal(tc.status, d.Status)
			s.Equal(tc.action, d.SuggestedAction)
		})
	}
}
