package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	repmodels "vigil/internal/reputation/models"
	"vigil/internal/velocity/config"
	"vigil/internal/velocity/models"
	"vigil/internal/velocity/store"
)

type VelocityServiceSuite struct {
	suite.Suite
	now     time.Time
	store   *store.MemoryCounterStore
	service *Service
}

func TestVelocityServiceSuite(t *testing.T) {
	suite.Run(t, new(VelocityServiceSuite))
}

func testConfig() *config.Config {
	return &config.Config{
		Windows: map[string][]models.Window{
			"post": {
				{Name: "window_1m", Seconds: 60, Limit: 3, CooldownMinutes: 5},
				{Name: "window_1h", Seconds: 3600, Limit: 10, CooldownMinutes: 30},
			},
			"invite": {
				{Name: "window_1h", Seconds: 3600, Limit: 10, CooldownMinutes: 60},
			},
		},
	}
}

func (s *VelocityServiceSuite) SetupTest() {
	s.now = time.Now()
	s.store = store.NewMemory(store.WithClock(func() time.Time { return s.now }))

	var err error
	s.service, err = New(s.store, WithConfig(testConfig()))
	s.Require().NoError(err)
}

func (s *VelocityServiceSuite) TestNew() {
	s.Run("nil counter store returns error", func() {
		_, err := New(nil)
		s.Error(err)
	})

	s.Run("misordered windows rejected", func() {
		bad := &config.Config{Windows: map[string][]models.Window{
			"post": {
				{Name: "window_1h", Seconds: 3600, Limit: 10, CooldownMinutes: 30},
				{Name: "window_1m", Seconds: 60, Limit: 3, CooldownMinutes: 5},
			},
		}}
		_, err := New(s.store, WithConfig(bad))
		s.Error(err)
	})
}

func (s *VelocityServiceSuite) TestObserveMonotonicity() {
	ctx := context.Background()

	// Limit 3 on the 1m window: calls 1..3 pass, call 4 trips.
	for i := 1; i <= 3; i++ {
		trip, err := s.service.Observe(ctx, "u1", "post", repmodels.BandNeutral)
		s.Require().NoError(err)
		s.Nil(trip, "call %d must not trip", i)
	}

	trip, err := s.service.Observe(ctx, "u1", "post", repmodels.BandNeutral)
	s.Require().NoError(err)
	s.Require().NotNil(trip)
	s.Equal("window_1m", trip.Window)
	s.Equal(3, trip.Limit)
	s.Equal(int64(4), trip.Count)
	s.Equal(5*time.Minute, trip.Cooldown)
}

func (s *VelocityServiceSuite) TestShortestWindowTripsFirst() {
	ctx := context.Background()

	// Blow past both windows; the trip must name the 1m window.
	var trip *models.Trip
	var err error
	for i := 0; i < 12; i++ {
		trip, err = s.service.Observe(ctx, "u1", "post", repmodels.BandNeutral)
		s.Require().NoError(err)
		if trip != nil {
			break
		}
	}
	s.Require().NotNil(trip)
	s.Equal("window_1m", trip.Window)
}

func (s *VelocityServiceSuite) TestBandAdjustedLimits() {
	ctx := context.Background()

	s.Run("risk band halves the invite limit", func() {
		// invite window_1h limit 10; risk multiplier 0.5 -> effective 5.
		for i := 1; i <= 5; i++ {
			trip, err := s.service.Observe(ctx, "risky", "invite", repmodels.BandRisk)
			s.Require().NoError(err)
			s.Nil(trip, "call %d must not trip", i)
		}
		trip, err := s.service.Observe(ctx, "risky", "invite", repmodels.BandRisk)
		s.Require().NoError(err)
		s.Require().NotNil(trip)
		s.Equal("window_1h", trip.Window)
		s.Equal(5, trip.Limit)
	})

	s.Run("good band keeps the full limit", func() {
		for i := 1; i <= 10; i++ {
			trip, err := s.service.Observe(ctx, "saint", "invite", repmodels.BandGood)
			s.Require().NoError(err)
			s.Nil(trip, "call %d must not trip", i)
		}
		trip, err := s.service.Observe(ctx, "saint", "invite", repmodels.BandGood)
		s.Require().NoError(err)
		s.NotNil(trip)
	})

	s.Run("effective limit never drops below one", func() {
		s.Equal(1, models.EffectiveLimit(1, 0.25))
		s.Equal(1, models.EffectiveLimit(2, 0.25))
	})
}

func (s *VelocityServiceSuite) TestInviteScenarioAtLimit() {
	ctx := context.Background()

	// A risk-band user already at 10 invites in the hour window trips
	// immediately on the next observe.
	for i := 0; i < 10; i++ {
		_, err := s.store.IncrementWithExpiry(ctx, models.CounterKey("invite", "u9", 3600), time.Hour)
		s.Require().NoError(err)
	}

	trip, err := s.service.Observe(ctx, "u9", "invite", repmodels.BandRisk)
	s.Require().NoError(err)
	s.Require().NotNil(trip)
	s.Equal("window_1h", trip.Window)
}

func (s *VelocityServiceSuite) TestWindowExpiry() {
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		s.service.Observe(ctx, "u1", "post", repmodels.BandNeutral)
	}

	// After the 1m window lapses the short counter resets; the 1h window
	// still carries the earlier counts.
	s.now = s.now.Add(61 * time.Second)
	trip, err := s.service.Observe(ctx, "u1", "post", repmodels.BandNeutral)
	s.Require().NoError(err)
	s.Nil(trip)
}

func (s *VelocityServiceSuite) TestReset() {
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		s.service.Observe(ctx, "u1", "post", repmodels.BandNeutral)
	}

	s.Require().NoError(s.service.Reset(ctx, "u1", "post"))

	trip, err := s.service.Observe(ctx, "u1", "post", repmodels.BandNeutral)
	s.Require().NoError(err)
	s.Nil(trip)
}

func (s *VelocityServiceSuite) TestUnknownSurfaceNeverTrips() {
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		trip, err := s.service.Observe(ctx, "u1", "profile_edit", repmodels.BandBad)
		s.Require().NoError(err)
		s.Nil(trip)
	}
}

func (s *VelocityServiceSuite) TestKeySanitization() {
	s.Equal("vel:post:u_1:60", models.CounterKey("post", "u:1", 60))
}
