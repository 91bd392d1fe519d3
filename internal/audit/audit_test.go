package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type PublisherSuite struct {
	suite.Suite
	store     *MemoryStore
	publisher *Publisher
}

func TestPublisherSuite(t *testing.T) {
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.publisher = NewPublisher(s.store)
}

func (s *PublisherSuite) TestRecordAndByTarget() {
	ctx := context.Background()

	s.Require().NoError(s.publisher.Record(ctx, "system", "case_actioned", "case", "c1", map[string]any{"action": "remove"}))
	s.Require().NoError(s.publisher.Record(ctx, "mod-1", "case_dismissed", "case", "c1", nil))
	s.Require().NoError(s.publisher.Record(ctx, "mod-1", "restriction_revoked", "restriction", "r1", nil))

	entries, err := s.publisher.ByTarget(ctx, "case", "c1", 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)

	// Newest first.
	s.Equal("case_dismissed", entries[0].Action)
	s.Equal("case_actioned", entries[1].Action)
	s.Equal("remove", entries[1].Meta["action"])
}

func (s *PublisherSuite) TestByTargetLimit() {
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Require().NoError(s.publisher.Record(ctx, "system", "case_updated", "case", "c1", nil))
	}

	entries, err := s.publisher.ByTarget(ctx, "case", "c1", 3)
	s.Require().NoError(err)
	s.Len(entries, 3)
}

func (s *PublisherSuite) TestEntriesHaveIdentity() {
	ctx := context.Background()

	s.Require().NoError(s.publisher.Record(ctx, "system", "case_actioned", "case", "c1", nil))

	all := s.store.All()
	s.Require().Len(all, 1)
	s.NotEmpty(all[0].ID)
	s.False(all[0].CreatedAt.IsZero())
}

type WorkerSuite struct {
	suite.Suite
	store *MemoryStore
	inbox chan Entry
}

func TestWorkerSuite(t *testing.T) {
	suite.Run(t, new(WorkerSuite))
}

func (s *WorkerSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.inbox = make(chan Entry, 16)
}

func (s *WorkerSuite) TestPersistsQueuedEntries() {
	ctx, cancel := context.WithCancel(context.Background())
	worker := NewWorker(s.store, s.inbox, nil)

	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	publisher := NewAsyncPublisher(s.store, s.inbox)
	s.Require().NoError(publisher.Record(ctx, "mod-1", "case_dismissed", "case", "c1", nil))
	s.Require().NoError(publisher.Record(ctx, "system", "case_actioned", "case", "c2", nil))

	s.Eventually(func() bool {
		return len(s.store.All()) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	s.Require().NoError(<-done)
}

func (s *WorkerSuite) TestDrainsInboxOnShutdown() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	publisher := NewAsyncPublisher(s.store, s.inbox)
	s.Require().NoError(publisher.Record(context.Background(), "mod-1", "quarantine_resolved", "attachment", "a1", nil))

	worker := NewWorker(s.store, s.inbox, nil)
	s.Require().NoError(worker.Run(ctx))
	s.Len(s.store.All(), 1)
}

func (s *WorkerSuite) TestFullInboxDropsInsteadOfBlocking() {
	tiny := make(chan Entry, 1)
	publisher := NewAsyncPublisher(s.store, tiny)

	ctx := context.Background()
	s.Require().NoError(publisher.Record(ctx, "system", "case_actioned", "case", "c1", nil))
	// Nothing is consuming; this must return without blocking.
	s.Require().NoError(publisher.Record(ctx, "system", "case_actioned", "case", "c2", nil))
	s.Len(tiny, 1)
}
