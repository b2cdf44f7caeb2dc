package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

// newQueueOnlySession 构造一个只含投递队列的会话，不启动发送协程、
// 不绑定底层连接，用于确定性地验证 Send 的投递语义。
func newQueueOnlySession(id uint64, queueSize int) *WSSession {
	ctx, cancel := context.WithCancel(context.Background())
	return &WSSession{
		id:        id,
		ctx:       ctx,
		cancel:    cancel,
		sendQueue: make(chan string, queueSize),
	}
}

type WSSessionSuite struct {
	suite.Suite
}

func (s *WSSessionSuite) TestSendQueueFullDropsMessage() {
	sess := newQueueOnlySession(NextID(), 1)
	defer sess.Close()

	s.NoError(sess.Send("first"))

	// 队列已满时立即报错丢弃，调用方不会被阻塞。
	err := sess.Send("second")
	s.ErrorIs(err, merr.ErrSendQueueFull)

	// 已入队的消息不受丢弃影响。
	s.Equal("first", <-sess.sendQueue)
}

func (s *WSSessionSuite) TestSendAfterClose() {
	sess := newQueueOnlySession(NextID(), 4)
	s.NoError(sess.Close())

	err := sess.Send("late")
	s.ErrorIs(err, merr.ErrSessionClosed)
	s.Empty(sess.sendQueue)
}

func (s *WSSessionSuite) TestCloseIdempotent() {
	sess := newQueueOnlySession(NextID(), 1)
	s.NoError(sess.Close())
	s.NoError(sess.Close())
}

func TestWSSession(t *testing.T) {
	suite.Run(t, new(WSSessionSuite))
}
