package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// clock is a settable time source shared by a store under test.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Now().UTC().Truncate(time.Millisecond)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// storeSuite runs the Store contract against one backend. Backends that
// cannot take an injected clock leave clock nil and skip expiry tests.
type storeSuite struct {
	suite.Suite
	open  func(now func() time.Time) Store
	store Store
	clock *clock
	ctx   context.Context
}

func (s *storeSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = newClock()
	s.store = s.open(s.clock.Now)
	s.Require().NoError(s.store.DeleteKey(s.ctx, "k"))
}

func (s *storeSuite) TestUpdateThenGet() {
	err := s.store.UpdateFields(s.ctx, "k", map[string]string{"a": "1", "b": "2"}, time.Minute)
	s.Require().NoError(err)

	v, ok, err := s.store.GetField(s.ctx, "k", "a", time.Minute)
	s.Require().NoError(err)
	s.Assert().True(ok)
	s.Assert().Equal("1", v)

	_, ok, err = s.store.GetField(s.ctx, "k", "missing", time.Minute)
	s.Require().NoError(err)
	s.Assert().False(ok)
}

func (s *storeSuite) TestUpdateOverwritesAndMerges() {
	s.Require().NoError(s.store.UpdateFields(s.ctx, "k", map[string]string{"a": "1", "b": "2"}, time.Minute))
	s.Require().NoError(s.store.UpdateFields(s.ctx, "k", map[string]string{"a": "3"}, time.Minute))

	snap, err := s.store.Snapshot(s.ctx, "k", time.Minute)
	s.Require().NoError(err)
	s.Assert().Equal(map[string]string{"a": "3", "b": "2"}, snap)
}

func (s *storeSuite) TestDeleteFields() {
	s.Require().NoError(s.store.UpdateFields(s.ctx, "k", map[string]string{"a": "1", "b": "2", "c": "3"}, time.Minute))
	s.Require().NoError(s.store.DeleteFields(s.ctx, "k", time.Minute, "a", "c"))

	snap, err := s.store.Snapshot(s.ctx, "k", time.Minute)
	s.Require().NoError(err)
	s.Assert().Equal(map[string]string{"b": "2"}, snap)
}

func (s *storeSuite) TestDeleteKey() {
	s.Require().NoError(s.store.UpdateFields(s.ctx, "k", map[string]string{"a": "1"}, time.Minute))
	s.Require().NoError(s.store.DeleteKey(s.ctx, "k"))

	snap, err := s.store.Snapshot(s.ctx, "k", time.Minute)
	s.Require().NoError(err)
	s.Assert().Empty(snap)
}

func (s *storeSuite) TestSnapshotOfAbsentKeyIsEmpty() {
	snap, err := s.store.Snapshot(s.ctx, "k", time.Minute)
	s.Require().NoError(err)
	s.Assert().NotNil(snap)
	s.Assert().Empty(snap)
}

func (s *storeSuite) TestInvalidArguments() {
	s.Assert().ErrorIs(s.store.UpdateFields(s.ctx, "", map[string]string{"a": "1"}, time.Minute), ErrEmptyKey)
	s.Assert().ErrorIs(s.store.UpdateFields(s.ctx, "k", map[string]string{"a": "1"}, 0), ErrInvalidTTL)
	s.Assert().ErrorIs(s.store.DeleteKey(s.ctx, ""), ErrEmptyKey)

	_, _, err := s.store.GetField(s.ctx, "k", "a", -time.Second)
	s.Assert().ErrorIs(err, ErrInvalidTTL)
}

func (s *storeSuite) TestExpiry() {
	s.Require().NoError(s.store.UpdateFields(s.ctx, "k", map[string]string{"a": "1"}, time.Minute))

	s.clock.Advance(time.Minute)

	_, ok, err := s.store.GetField(s.ctx, "k", "a", time.Minute)
	s.Require().NoError(err)
	s.Assert().False(ok)
}

func (s *storeSuite) TestAccessRefreshesExpiry() {
	s.Require().NoError(s.store.UpdateFields(s.ctx, "k", map[string]string{"a": "1"}, time.Minute))

	s.clock.Advance(40 * time.Second)
	_, ok, err := s.store.GetField(s.ctx, "k", "a", time.Minute)
	s.Require().NoError(err)
	s.Require().True(ok)

	s.clock.Advance(40 * time.Second)
	v, ok, err := s.store.GetField(s.ctx, "k", "a", time.Minute)
	s.Require().NoError(err)
	s.Assert().True(ok)
	s.Assert().Equal("1", v)
}

func (s *storeSuite) TestUpdateAfterExpiryStartsFresh() {
	s.Require().NoError(s.store.UpdateFields(s.ctx, "k", map[string]string{"a": "1"}, time.Minute))
	s.clock.Advance(2 * time.Minute)
	s.Require().NoError(s.store.UpdateFields(s.ctx, "k", map[string]string{"b": "2"}, time.Minute))

	snap, err := s.store.Snapshot(s.ctx, "k", time.Minute)
	s.Require().NoError(err)
	s.Assert().Equal(map[string]string{"b": "2"}, snap)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &storeSuite{
		open: func(now func() time.Time) Store {
			return NewMemory(WithClock(now))
		},
	})
}
