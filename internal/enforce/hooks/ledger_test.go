package hooks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"vigil/internal/enforce/models"
	resmodels "vigil/internal/restriction/models"
	resservice "vigil/internal/restriction/service"
	resstore "vigil/internal/restriction/store"
)

type LedgerHooksSuite struct {
	suite.Suite
	restrictions *resservice.Service
	hooks        *LedgerHooks
}

func TestLedgerHooksSuite(t *testing.T) {
	suite.Run(t, new(LedgerHooksSuite))
}

func (s *LedgerHooksSuite) SetupTest() {
	var err error
	s.restrictions, err = resservice.New(resstore.NewMemory())
	s.Require().NoError(err)
	s.hooks = NewLedgerHooks(s.restrictions, nil)
}

func userCase(subjectID string) *models.Case {
	c, _ := models.NewCase("user", subjectID, "test case", 3, "", "system")
	return c
}

func (s *LedgerHooksSuite) TestMuteShadowsMessages() {
	ctx := context.Background()

	s.Require().NoError(s.hooks.Mute(ctx, userCase("u1"), nil))

	flags, err := s.restrictions.CheckFlags(ctx, "u1", "message")
	s.Require().NoError(err)
	s.True(flags.ShadowActive)
}

func (s *LedgerHooksSuite) TestBanNeverExpires() {
	ctx := context.Background()

	s.Require().NoError(s.hooks.Ban(ctx, userCase("u1"), nil))

	active, err := s.restrictions.ListActive(ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(resmodels.ModeCooldown, active[0].Mode)
	s.Nil(active[0].ExpiresAt)
}

func (s *LedgerHooksSuite) TestRestrictCreateHonorsExpiry() {
	ctx := context.Background()

	s.Require().NoError(s.hooks.RestrictCreate(ctx, userCase("u1"), map[string]any{"scope": "post"}, time.Now().Add(30*time.Minute)))

	flags, err := s.restrictions.CheckFlags(ctx, "u1", "post")
	s.Require().NoError(err)
	s.InDelta(float64(30*time.Minute), float64(flags.CooldownTTL), float64(2*time.Second))
}

func (s *LedgerHooksSuite) TestPayloadUserWinsOverSubject() {
	ctx := context.Background()

	c, _ := models.NewCase("post", "p1", "test case", 3, "", "system")
	s.Require().NoError(s.hooks.ShadowHide(ctx, c, map[string]any{"user_id": "author-1", "scope": "post"}))

	flags, err := s.restrictions.CheckFlags(ctx, "author-1", "post")
	s.Require().NoError(err)
	s.True(flags.ShadowActive)
}

func (s *LedgerHooksSuite) TestContentSubjectWithoutUserIsNoop() {
	ctx := context.Background()

	c, _ := models.NewCase("post", "p1", "test case", 3, "", "system")
	s.Require().NoError(s.hooks.ShadowHide(ctx, c, nil))

	active, err := s.restrictions.ListActive(ctx, "p1")
	s.Require().NoError(err)
	s.Empty(active)
}

func (s *LedgerHooksSuite) TestContentActionsAreNoops() {
	ctx := context.Background()
	c := userCase("u1")

	s.Require().NoError(s.hooks.Tombstone(ctx, c, nil))
	s.Require().NoError(s.hooks.Remove(ctx, c, nil))
	s.Require().NoError(s.hooks.Warn(ctx, c, nil))

	active, err := s.restrictions.ListActive(ctx, "u1")
	s.Require().NoError(err)
	s.Empty(active)
}
