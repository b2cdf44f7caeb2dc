package session

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lk2023060901/relay-garden-go/pkg/log"
	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

// WSSession 是基于 gorilla/websocket 的 Session 实现。
//
// 设计目标：
//   - 封装最小但完整的会话能力：ID、Context、地址信息、发送与关闭；
//   - 所有网络写出集中在单个发送协程中，避免多 goroutine 并发写同一连接。
type WSSession struct {
	id uint64

	ctx    context.Context
	cancel context.CancelFunc

	conn *websocket.Conn

	remoteAddr net.Addr

	// sendQueue 为待发送文本的会话级队列。
	//   - Send 仅负责将文本投递到该队列，投递失败（队列满）即丢弃；
	//   - 独立的发送协程从队列中取出文本并写入底层连接。
	sendQueue chan string

	writeTimeout time.Duration

	closeOnce sync.Once
}

// 确保 WSSession 实现了 Session 接口。
var _ Session = (*WSSession)(nil)

// defaultSendQueueSize 为每个会话的发送队列容量。
const defaultSendQueueSize = 256

// NewWSSession 创建一个基于 WebSocket 连接的会话实例。
//
// 参数：
//   - parent      ：会话所属的上层上下文（例如 Acceptor 的 Serve ctx）；若为 nil，则使用 context.Background()；
//   - id          ：会话 ID，由调用侧保证全局唯一；
//   - conn        ：已完成升级的 WebSocket 连接；
//   - queueSize   ：发送队列容量，<= 0 时使用默认值；
//   - writeTimeout：单次写出的超时时间，为 0 表示不设置 deadline。
func NewWSSession(parent context.Context, id uint64, conn *websocket.Conn, queueSize int, writeTimeout time.Duration) *WSSession {
	if parent == nil {
		parent = context.Background()
	}
	if queueSize <= 0 {
		queueSize = defaultSendQueueSize
	}
	ctx, cancel := context.WithCancel(parent)

	s := &WSSession{
		id:           id,
		ctx:          ctx,
		cancel:       cancel,
		conn:         conn,
		remoteAddr:   conn.RemoteAddr(),
		sendQueue:    make(chan string, queueSize),
		writeTimeout: writeTimeout,
	}

	go s.sendLoop()

	return s
}

// ID 实现 Session.ID。
func (s *WSSession) ID() uint64 {
	return s.id
}

// Context 实现 Session.Context。
func (s *WSSession) Context() context.Context {
	return s.ctx
}

// RemoteAddr 实现 Session.RemoteAddr。
func (s *WSSession) RemoteAddr() net.Addr {
	return s.remoteAddr
}

// Send 实现 Session.Send。
//
// 内部仅将文本投递到会话级发送队列，由独立的发送协程按顺序写入底层连接。
// 队列已满或会话已关闭时立即返回错误，本条消息被丢弃，调用方不会被阻塞。
func (s *WSSession) Send(text string) error {
	select {
	case <-s.ctx.Done():
		return merr.WrapErrSessionClosed(s.id)
	default:
	}

	select {
	case s.sendQueue <- text:
		return nil
	default:
		return merr.WrapErrSendQueueFull(s.id)
	}
}

// Close 实现 Session.Close。
func (s *WSSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		// 先取消上下文，再关闭连接，保证发送协程尽快退出。
		if s.cancel != nil {
			s.cancel()
		}
		if s.conn != nil {
			err = s.conn.Close()
		}
	})
	return err
}

// sendLoop 为每个会话启动的专职发送协程。
//
// 行为：
//   - 从 sendQueue 中按顺序取出待发送文本并写入连接；
//   - 写出失败视为会话异常，取消上下文以触发上层清理。
func (s *WSSession) sendLoop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case text := <-s.sendQueue:
			if s.writeTimeout > 0 {
				_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
				log.RatedWarn(1, "session write failed",
					zap.Uint64("sessionID", s.id),
					zap.Error(err))
				if s.cancel != nil {
					s.cancel()
				}
				return
			}
		}
	}
}
