package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/gate/models"
	repmodels "vigil/internal/reputation/models"
	repservice "vigil/internal/reputation/service"
	repstore "vigil/internal/reputation/store"
	resmodels "vigil/internal/restriction/models"
	resservice "vigil/internal/restriction/service"
	resstore "vigil/internal/restriction/store"
	velconfig "vigil/internal/velocity/config"
	velmodels "vigil/internal/velocity/models"
	velservice "vigil/internal/velocity/service"
	velstore "vigil/internal/velocity/store"
	dErrors "vigil/pkg/domain-errors"
)

type GateSuite struct {
	suite.Suite
	reputation   *repservice.Service
	restrictions *resservice.Service
	resStore     *resstore.MemoryStore
	gate         *Service
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateSuite))
}

func (s *GateSuite) SetupTest() {
	var err error
	s.reputation, err = repservice.New(repstore.NewMemory())
	s.Require().NoError(err)

	cfg := &velconfig.Config{
		Windows: map[string][]velmodels.Window{
			"post":   {{Name: "window_1m", Seconds: 60, Limit: 3, CooldownMinutes: 5}},
			"invite": {{Name: "window_1h", Seconds: 3600, Limit: 10, CooldownMinutes: 60}},
		},
	}
	velocity, err := velservice.New(velstore.NewMemory(), velservice.WithConfig(cfg))
	s.Require().NoError(err)

	s.resStore = resstore.NewMemory()
	s.restrictions, err = resservice.New(s.resStore)
	s.Require().NoError(err)

	s.gate, err = New(s.reputation, velocity, s.restrictions,
		WithSensitiveSurfaces([]string{"invite", "message"}))
	s.Require().NoError(err)
}

func (s *GateSuite) TestCleanWritePasses() {
	ctx := context.Background()

	out, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{Body: "hello"})
	s.Require().NoError(err)
	s.False(out.Shadow)
	s.False(out.StripLinks)
	s.Equal("neutral", out.Band)
}

func (s *GateSuite) TestCooldownRejects() {
	ctx := context.Background()

	_, err := s.restrictions.ApplyCooldown(ctx, "u1", "post", 10*time.Minute, "manual", "mod-1")
	s.Require().NoError(err)

	_, err = s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{})
	s.Require().Error(err)
	s.Equal(dErrors.CodeRateLimited, dErrors.CodeOf(err))

	var dErr *dErrors.Error
	s.Require().ErrorAs(err, &dErr)
	s.InDelta(600, dErr.RetryAfter, 2)
}

func (s *GateSuite) TestShadowMarksContext() {
	ctx := context.Background()

	_, err := s.restrictions.ApplyShadow(ctx, "u1", "post", time.Hour, "risk", "")
	s.Require().NoError(err)

	out, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{})
	s.Require().NoError(err)
	s.True(out.Shadow)
}

func (s *GateSuite) TestVelocityTrip() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{})
		s.Require().NoError(err)
	}

	_, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{})
	s.Require().Error(err)
	s.Equal(dErrors.CodeRateLimited, dErrors.CodeOf(err))

	s.Run("cooldown restriction left behind", func() {
		flags, err := s.restrictions.CheckFlags(ctx, "u1", "post")
		s.Require().NoError(err)
		s.InDelta(float64(5*time.Minute), float64(flags.CooldownTTL), float64(time.Second))
	})

	s.Run("reputation event recorded", func() {
		events, err := s.reputation.EventsByUser(ctx, "u1", 10)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(repmodels.KindVelocityTrip, events[0].Kind)
		s.Positive(events[0].Delta)
	})
}

func (s *GateSuite) TestCaptchaRequired() {
	ctx := context.Background()

	_, err := s.restrictions.RequireCaptcha(ctx, "u1", "post", time.Hour, "trap", "")
	s.Require().NoError(err)

	s.Run("rejected without solution", func() {
		_, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{})
		s.Require().Error(err)
		s.Equal(dErrors.CodeCaptchaRequired, dErrors.CodeOf(err))
	})

	s.Run("passes with solution", func() {
		_, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{CaptchaOK: true})
		s.NoError(err)
	})
}

func (s *GateSuite) TestLinkCooloff() {
	ctx := context.Background()

	_, err := s.restrictions.ApplyLinkCooloff(ctx, "u1", "post", time.Hour, "link spam", "")
	s.Require().NoError(err)

	s.Run("link body gets strip annotation, write proceeds", func() {
		out, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{Body: "check https://example.com/offer"})
		s.Require().NoError(err)
		s.True(out.StripLinks)
		s.Contains(out.Meta, "link_cooloff")
	})

	s.Run("plain body untouched", func() {
		out, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{Body: "no links here"})
		s.Require().NoError(err)
		s.False(out.StripLinks)
	})
}

func (s *GateSuite) TestHoneypotAbsorption() {
	ctx := context.Background()

	_, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{HoneyTripped: true})
	s.Require().Error(err)
	s.Equal(dErrors.CodeCaptchaRequired, dErrors.CodeOf(err))

	s.Run("shadow and captcha restrictions armed", func() {
		flags, err := s.restrictions.CheckFlags(ctx, "u1", "post")
		s.Require().NoError(err)
		s.True(flags.ShadowActive)
		s.True(flags.CaptchaRequired)
	})

	s.Run("reputation event recorded", func() {
		events, err := s.reputation.EventsByUser(ctx, "u1", 10)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(repmodels.KindHoneyTrip, events[0].Kind)
	})

	s.Run("repeat attempt blocked without honeypot", func() {
		_, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{})
		s.Require().Error(err)
		s.Equal(dErrors.CodeCaptchaRequired, dErrors.CodeOf(err))
	})
}

func (s *GateSuite) TestSensitiveSurfaceForcedShadow() {
	ctx := context.Background()

	// Push the user into the risk band.
	_, err := s.reputation.RecordEvent(ctx, "u1", "post", "report_upheld", 60)
	s.Require().NoError(err)

	s.Run("sensitive surface forces shadow and arms a restriction", func() {
		out, err := s.gate.Enforce(ctx, "u1", "invite", &models.WriteContext{})
		s.Require().NoError(err)
		s.True(out.Shadow)

		flags, err := s.restrictions.CheckFlags(ctx, "u1", "invite")
		s.Require().NoError(err)
		s.True(flags.ShadowActive)
	})

	s.Run("non-sensitive surface not shadowed", func() {
		out, err := s.gate.Enforce(ctx, "u1", "post", &models.WriteContext{})
		s.Require().NoError(err)
		s.False(out.Shadow)
	})
}

func (s *GateSuite) TestCachedBandTrusted() {
	ctx := context.Background()

	out, err := s.gate.Enforce(ctx, "u1", "invite", &models.WriteContext{Band: "risk"})
	s.Require().NoError(err)
	s.True(out.Shadow)
}

func (s *GateSuite) TestFailClosed() {
	ctx := context.Background()

	broken, err := New(s.reputation, brokenVelocity{}, failingRestrictions{})
	s.Require().NoError(err)

	_, err = broken.Enforce(ctx, "u1", "post", &models.WriteContext{})
	s.Require().Error(err)
	s.Equal(dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

type failingRestrictions struct{}

func (failingRestrictions) CheckFlags(context.Context, string, string) (*resmodels.Flags, error) {
	return nil, errors.New("store down")
}

func (failingRestrictions) ApplyCooldown(context.Context, string, string, time.Duration, string, string) (*resmodels.Restriction, error) {
	return nil, errors.New("store down")
}

func (failingRestrictions) ApplyShadow(context.Context, string, string, time.Duration, string, string) (*resmodels.Restriction, error) {
	return nil, errors.New("store down")
}

func (failingRestrictions) RequireCaptcha(context.Context, string, string, time.Duration, string, string) (*resmodels.Restriction, error) {
	return nil, errors.New("store down")
}

type brokenVelocity struct{}

func (brokenVelocity) Observe(context.Context, string, string, repmodels.Band) (*velmodels.Trip, error) {
	return nil, errors.New("counter store down")
}
