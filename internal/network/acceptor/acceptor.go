package acceptor

import (
	"context"
	"net"
	"time"

	"github.com/gorilla/websocket"

	network "github.com/lk2023060901/relay-garden-go/internal/network"
	"github.com/lk2023060901/relay-garden-go/internal/network/session"
)

// Config 描述 Acceptor 在会话层面的配置。
//
// 说明：
//   - SendQueueSize 控制每个连接的发送队列容量；
//   - ReadLimit 为单条入站消息的字节上限，超限的连接会被断开；
//   - ReadTimeout/WriteTimeout 控制单次读写的超时时间（为 0 表示不设置 deadline）；
//   - Path 控制 WebSocket 的升级路径（如 "/ws"）。
type Config struct {
	SendQueueSize int

	ReadLimit int64

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Path string

	// Upgrader 允许调用方自定义 gorilla/websocket 的升级行为。
	// 若为 nil，则使用内部默认的 Upgrader。
	Upgrader *websocket.Upgrader
}

// 默认配置。
func defaultConfig() Config {
	return Config{
		SendQueueSize: 256,
		ReadLimit:     4096,
		Path:          "/ws",
	}
}

// Handler 由框架使用者实现，用于在服务器侧的各个阶段插入自定义逻辑。
//
// 说明：
//   - 同一会话的 OnConnected/OnMessage/OnClosed 在该会话的读协程中串行调用，
//     应避免耗时操作阻塞网络收发；
//   - 不同会话之间的回调可能并发执行。
type Handler interface {
	// OnConnected 在握手成功并创建好会话后被调用。
	OnConnected(sess session.Session)

	// OnMessage 在收到一条完整的文本消息后被调用。
	OnMessage(sess session.Session, text string)

	// OnClosed 在会话生命周期结束时被调用。
	//
	// 参数 err 为关闭原因，正常关闭时可为 nil。
	OnClosed(sess session.Session, err error)

	// OnError 在会话处理的各个阶段发生错误时被调用。
	//
	// stage 用于标识错误发生的位置，便于监控与排查。
	OnError(sess session.Session, stage network.Stage, err error)
}

// Acceptor 抽象了服务器侧的 WebSocket 接入层。
//
// 职责：
//   - 在指定 listener 上监听 HTTP，并处理 WebSocket 升级；
//   - 为每个连接创建 Session，并调用 Handler 的各阶段回调；
//   - 维护当前活跃会话列表，便于运维与监控。
type Acceptor interface {
	// Serve 在给定 listener 上启动服务，阻塞直至 ctx 取消或出现致命错误。
	Serve(ctx context.Context, ln net.Listener, h Handler) error

	// Close 主动关闭所有会话以及内部资源。
	Close() error

	// Sessions 返回当前活跃会话的快照。
	Sessions() []session.Session
}
