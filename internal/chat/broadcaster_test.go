package chat

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

type BroadcasterSuite struct {
	suite.Suite

	registry *Registry
	caster   *Broadcaster
}

func (s *BroadcasterSuite) SetupTest() {
	s.registry = NewRegistry()
	s.caster = NewBroadcaster(s.registry)
}

func (s *BroadcasterSuite) TestBroadcastAllReachesEveryone() {
	a := newFakeSession(1)
	b := newFakeSession(2)
	s.registry.Register(a)
	s.registry.Register(b)

	results := s.caster.BroadcastAll("hello")
	s.Len(results, 2)
	for _, res := range results {
		s.NoError(res.Err)
	}
	s.Equal([]string{"hello"}, a.received())
	s.Equal([]string{"hello"}, b.received())
}

func (s *BroadcasterSuite) TestBroadcastAllReportsFailures() {
	a := newFakeSession(1)
	b := newFakeSession(2)
	b.failSend = true
	s.registry.Register(a)
	s.registry.Register(b)

	results := s.caster.BroadcastAll("hello")
	s.Len(results, 2)

	// 单个接收者失败不影响其他接收者，结果中按会话标记错误。
	byID := make(map[uint64]error, len(results))
	for _, res := range results {
		byID[res.SessionID] = res.Err
	}
	s.NoError(byID[a.ID()])
	s.ErrorIs(byID[b.ID()], merr.ErrSendQueueFull)

	s.Equal([]string{"hello"}, a.received())
	s.Empty(b.received())
}

func (s *BroadcasterSuite) TestBroadcastAllEmptyRegistry() {
	results := s.caster.BroadcastAll("hello")
	s.Empty(results)
}

func (s *BroadcasterSuite) TestSendToNilSession() {
	s.NotPanics(func() {
		s.caster.SendTo(nil, "hello")
	})
}

func (s *BroadcasterSuite) TestSendToFailureIsSwallowed() {
	a := newFakeSession(1)
	a.failSend = true
	s.registry.Register(a)

	s.NotPanics(func() {
		s.caster.SendTo(a, "hello")
	})
	s.Empty(a.received())
}

func TestBroadcaster(t *testing.T) {
	suite.Run(t, new(BroadcasterSuite))
}
