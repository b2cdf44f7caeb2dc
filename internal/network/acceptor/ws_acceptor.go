package acceptor

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	network "github.com/lk2023060901/relay-garden-go/internal/network"
	"github.com/lk2023060901/relay-garden-go/internal/network/session"
	"github.com/lk2023060901/relay-garden-go/pkg/log"
	"github.com/lk2023060901/relay-garden-go/pkg/util/conc"
)

// WSAcceptor 是 Acceptor 接口的 WebSocket 实现。
//
// 设计目标：
//   - 对外只暴露 Acceptor 接口和 Handler 回调，不绑定具体业务逻辑；
//   - 内部负责：HTTP 升级、创建 Session、驱动读循环并回调 Handler；
//   - 每个连接的读循环在协程池中串行执行，保证同一 Session 上 Handler 串行调用。
type WSAcceptor struct {
	cfg      Config
	sessions session.Manager

	// readers 为承载各连接读循环的协程池。
	// 池容量同时充当最大并发连接数的上限。
	readers *conc.Pool

	mu  sync.Mutex
	srv *http.Server

	closeOnce sync.Once
}

// 确保 WSAcceptor 实现了 Acceptor 接口。
var _ Acceptor = (*WSAcceptor)(nil)

// defaultMaxConnections 为默认的最大并发连接数。
const defaultMaxConnections = 4096

var defaultUpgrader = &websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// 服务端不校验 Origin，交由部署层（反向代理等）控制。
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewWSAcceptor 创建一个 WebSocket 接入器。
//
// 参数：
//   - cfg：会话层配置；零值字段会被填充为默认值；
//   - sm ：Manager，可为 nil；非 nil 时会在连接建立/关闭时自动注册和移除 Session。
func NewWSAcceptor(cfg Config, sm session.Manager) (*WSAcceptor, error) {
	def := defaultConfig()
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = def.SendQueueSize
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.Upgrader == nil {
		cfg.Upgrader = defaultUpgrader
	}

	pool, err := conc.NewPool(defaultMaxConnections, conc.WithNonBlocking(true), conc.WithConcealPanic(true))
	if err != nil {
		return nil, err
	}

	return &WSAcceptor{
		cfg:      cfg,
		sessions: sm,
		readers:  pool,
	}, nil
}

// Serve 实现 Acceptor.Serve。
func (a *WSAcceptor) Serve(ctx context.Context, ln net.Listener, h Handler) error {
	if h == nil {
		return errors.New("acceptor: handler is nil")
	}
	if ln == nil {
		return errors.New("acceptor: listener is nil")
	}

	mux := http.NewServeMux()
	mux.HandleFunc(a.cfg.Path, func(w http.ResponseWriter, r *http.Request) {
		a.handleUpgrade(ctx, w, r, h)
	})

	srv := &http.Server{
		Handler: mux,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	a.mu.Lock()
	a.srv = srv
	a.mu.Unlock()

	// 上层取消时优雅停止 HTTP 服务。
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close 实现 Acceptor.Close。
func (a *WSAcceptor) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		srv := a.srv
		a.mu.Unlock()

		if srv != nil {
			err = srv.Close()
		}

		// 关闭当前所有活跃会话。
		if a.sessions != nil {
			a.sessions.Range(func(sess session.Session) bool {
				_ = sess.Close()
				return true
			})
		}

		a.readers.Release()
	})
	return err
}

// Sessions 实现 Acceptor.Sessions。
func (a *WSAcceptor) Sessions() []session.Session {
	if a.sessions == nil {
		return nil
	}
	result := make([]session.Session, 0, a.sessions.Count())
	a.sessions.Range(func(sess session.Session) bool {
		result = append(result, sess)
		return true
	})
	return result
}

// handleUpgrade 处理单个连接的升级与生命周期。
//
// 流程：
//  1. 完成 WebSocket 升级并创建 Session；
//  2. 可选地将 Session 注册到 Manager；
//  3. 调用 Handler.OnConnected；
//  4. 将读循环提交到协程池，由其串行读取消息并回调 Handler.OnMessage；
//  5. 读循环结束后，调用 Handler.OnClosed 并关闭会话。
//
// 升级成功后连接已被劫持，当前 HTTP handler 返回不会关闭连接。
func (a *WSAcceptor) handleUpgrade(ctx context.Context, w http.ResponseWriter, r *http.Request, h Handler) {
	conn, err := a.cfg.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.OnError(nil, network.StageHandshake, err)
		return
	}

	conn.SetReadLimit(a.cfg.ReadLimit)

	sess := session.NewWSSession(ctx, session.NextID(), conn, a.cfg.SendQueueSize, a.cfg.WriteTimeout)

	if a.sessions != nil {
		if err := a.sessions.Register(sess); err != nil {
			h.OnError(sess, network.StageHandshake, err)
			_ = sess.Close()
			return
		}
	}

	if err := a.readers.Submit(func() {
		a.runSession(sess, conn, h)
	}); err != nil {
		// 协程池已满或已关闭，拒绝本次连接。
		log.RatedWarn(1, "acceptor rejected connection",
			zap.Uint64("sessionID", sess.ID()),
			zap.Error(err))
		if a.sessions != nil {
			_ = a.sessions.Unregister(sess.ID())
		}
		_ = sess.Close()
	}
}

// runSession 驱动单个会话的完整生命周期：回调建立、读循环、回调关闭与清理。
func (a *WSAcceptor) runSession(sess session.Session, conn *websocket.Conn, h Handler) {
	h.OnConnected(sess)

	cause := a.readLoop(sess, conn, h)

	if a.sessions != nil {
		_ = a.sessions.Unregister(sess.ID())
	}
	h.OnClosed(sess, cause)
	_ = sess.Close()
}

// readLoop 持续从连接中读取文本消息，并逐条回调 Handler.OnMessage。
//
// 返回值：
//   - 非 nil error 表示读取过程中发生的异常；
//   - nil 表示正常结束（对端关闭连接或会话被取消）。
func (a *WSAcceptor) readLoop(sess session.Session, conn *websocket.Conn, h Handler) error {
	for {
		select {
		case <-sess.Context().Done():
			return nil
		default:
		}

		if a.cfg.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(a.cfg.ReadTimeout))
		}

		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			// 对端正常关闭或会话已关闭，视为正常断开。
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			if sess.Context().Err() != nil {
				return nil
			}

			h.OnError(sess, network.StageRecv, err)
			return err
		}

		// 只处理文本帧，其余帧类型直接忽略。
		if msgType != websocket.TextMessage {
			continue
		}

		h.OnMessage(sess, string(payload))
	}
}
