package chat

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type RouterSuite struct {
	suite.Suite

	store  *memStore
	router *Router
}

func (s *RouterSuite) SetupTest() {
	s.store = newMemStore()
	s.router = NewRouter(s.store)
}

// TestFullScenario 演练一条完整的会话时间线：
// A 申请 Writer 成功，B 的 Writer/Reader 申请均被拒绝，
// A 发言后 B 能看到并可回放历史，A 离线后 B 收到离场通告与计数。
func (s *RouterSuite) TestFullScenario() {
	a := newFakeSession(1)
	s.router.OnConnected(a)

	s.router.OnMessage(a, "role:writer")
	s.Equal([]string{
		"",
		"ROLE_CONFIRMED:writer",
		"System: Anonymous joined as Writer",
		"SYSTEM_COUNTS:0:1",
	}, a.received())

	b := newFakeSession(2)
	s.router.OnConnected(b)

	s.router.OnMessage(b, "role:writer")
	s.Equal([]string{
		"ROLE_DENIED:A writer or readers are already inside.",
		"SYSTEM_COUNTS:0:1",
	}, b.received())

	s.router.OnMessage(b, "role:reader")
	s.Equal([]string{
		"ROLE_DENIED:A writer or readers are already inside.",
		"SYSTEM_COUNTS:0:1",
		"ROLE_DENIED:A writer is already inside.",
		"SYSTEM_COUNTS:0:1",
	}, b.received())

	s.router.OnMessage(a, "hi")
	s.Contains(a.received(), "Anonymous: hi")
	s.Contains(b.received(), "Anonymous: hi")

	s.router.OnMessage(b, "get_history")
	msgs := b.received()
	s.Equal("Anonymous: hi", msgs[len(msgs)-1])

	s.router.OnClosed(a, nil)
	msgs = b.received()
	s.Equal("System: Anonymous disconnected.", msgs[len(msgs)-2])
	s.Equal("SYSTEM_COUNTS:0:0", msgs[len(msgs)-1])
}

func (s *RouterSuite) TestChatRequiresWriter() {
	a := newFakeSession(1)
	s.router.OnConnected(a)

	// 未申请角色时发言被拒绝，且不落库、不广播计数。
	s.router.OnMessage(a, "hello")
	s.Equal([]string{MsgReaderCannotSend}, a.received())

	records, err := s.store.Recent(a.Context(), HistoryLimit)
	s.NoError(err)
	s.Empty(records)
}

func (s *RouterSuite) TestReaderChatRejectedUnicastOnly() {
	a := newFakeSession(1)
	b := newFakeSession(2)
	s.router.OnConnected(a)
	s.router.OnConnected(b)

	s.router.OnMessage(a, "role:reader")
	s.router.OnMessage(b, "role:reader")

	before := len(b.received())
	s.router.OnMessage(a, "sneaky message")

	// 发送者收到且仅收到一条拒绝，其他会话什么都收不到。
	msgs := a.received()
	s.Equal(MsgReaderCannotSend, msgs[len(msgs)-1])
	s.Len(b.received(), before)
}

func (s *RouterSuite) TestUsernameCommand() {
	a := newFakeSession(1)
	s.router.OnConnected(a)

	s.router.OnMessage(a, "username: \talice")
	s.router.OnMessage(a, "role:writer")
	s.router.OnMessage(a, "hello")

	s.Contains(a.received(), "System: alice joined as Writer")
	s.Contains(a.received(), "alice: hello")

	records, err := s.store.Recent(a.Context(), HistoryLimit)
	s.NoError(err)
	s.Require().Len(records, 1)
	s.Equal("alice", records[0].Username)
	s.Equal("hello", records[0].Message)
}

func (s *RouterSuite) TestEmptyUsernameFallsBack() {
	a := newFakeSession(1)
	s.router.OnConnected(a)

	s.router.OnMessage(a, "username:")
	s.router.OnMessage(a, "role:writer")
	s.router.OnMessage(a, "hey")

	s.Contains(a.received(), "Anon: hey")
}

func (s *RouterSuite) TestAppendFailureStillBroadcasts() {
	a := newFakeSession(1)
	s.router.OnConnected(a)
	s.router.OnMessage(a, "role:writer")

	s.store.failAppend = true
	s.router.OnMessage(a, "still here")

	s.Contains(a.received(), "Anonymous: still here")
}

func (s *RouterSuite) TestReplayOnGrant() {
	a := newFakeSession(1)
	s.router.OnConnected(a)
	s.router.OnMessage(a, "role:writer")
	s.router.OnMessage(a, "first")
	s.router.OnMessage(a, "second")
	s.router.OnClosed(a, nil)

	b := newFakeSession(2)
	s.router.OnConnected(b)
	s.router.OnMessage(b, "role:writer")

	// 历史回放先于角色确认，内容按时间序排列。
	msgs := b.received()
	s.Require().GreaterOrEqual(len(msgs), 2)
	s.Equal("Anonymous: first\nAnonymous: second", msgs[0])
	s.Equal("ROLE_CONFIRMED:writer", msgs[1])
}

func (s *RouterSuite) TestGetHistoryMatchesByPrefix() {
	a := newFakeSession(1)
	s.router.OnConnected(a)
	s.router.OnMessage(a, "role:writer")
	s.router.OnMessage(a, "hello")
	s.router.OnClosed(a, nil)

	b := newFakeSession(2)
	s.router.OnConnected(b)
	s.router.OnMessage(b, "role:reader")

	before := len(b.received())
	s.router.OnMessage(b, "get_history ")

	// 命令带尾随内容时仍按历史请求处理，不落入聊天分支。
	msgs := b.received()
	s.Require().Len(msgs, before+1)
	s.Equal("Anonymous: hello", msgs[len(msgs)-1])
	s.NotContains(msgs, MsgReaderCannotSend)
}

func (s *RouterSuite) TestWriterFreesRoleOnClose() {
	a := newFakeSession(1)
	s.router.OnConnected(a)
	s.router.OnMessage(a, "role:writer")
	s.router.OnClosed(a, nil)

	b := newFakeSession(2)
	s.router.OnConnected(b)
	s.router.OnMessage(b, "role:writer")

	s.Contains(b.received(), "ROLE_CONFIRMED:writer")
}

func (s *RouterSuite) TestNonWriterCloseBroadcastsCountsOnly() {
	a := newFakeSession(1)
	b := newFakeSession(2)
	s.router.OnConnected(a)
	s.router.OnConnected(b)

	s.router.OnMessage(a, "role:reader")
	s.router.OnMessage(b, "role:reader")

	before := len(b.received())
	s.router.OnClosed(a, nil)

	msgs := b.received()
	s.Len(msgs, before+1)
	s.Equal("SYSTEM_COUNTS:1:0", msgs[len(msgs)-1])
}

func TestRouter(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}
