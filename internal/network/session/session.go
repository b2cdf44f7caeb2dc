package session

import (
	"context"
	"net"
)

// Session 抽象了一条网络会话/连接。
//
// 约定：
//   - 每个 Session 对应一条底层连接（当前实现为一个 WebSocket 会话）。
//   - Session ID 使用 64 位无符号整型，在框架内应保持全局唯一。
//   - 框架层只关心会话本身，不关心“读者/写者”等具体业务概念。
type Session interface {
	// ID 返回该会话在框架内的全局唯一标识。
	//
	// 说明：
	//   - 由接入层在连接建立时分配（自增 uint64）。
	//   - 业务层可以通过该 ID 建立 “Session <-> 参与者” 的映射关系。
	ID() uint64

	// Context 返回与该会话关联的上下文。
	//
	// 说明：
	//   - 可用于级联取消：当会话关闭时，应触发 Context.Done()。
	Context() context.Context

	// RemoteAddr 返回远端地址（客户端地址）。
	//
	// 说明：
	//   - 主要用于日志记录、审计或限流策略。
	RemoteAddr() net.Addr

	// Send 向该会话投递一条文本消息。
	//
	// 行为：
	//   - 投递是非阻塞的：消息进入会话级发送队列后立即返回；
	//   - 队列已满时返回错误并丢弃本条消息，不阻塞调用方；
	//   - 真正的网络写出由会话内部的发送协程串行完成。
	Send(text string) error

	// Close 主动关闭该会话。
	//
	// 说明：
	//   - 应关闭底层连接，并触发 Context 的取消。
	//   - 多次调用应是幂等的：对已关闭的会话再次调用 Close 不应引发 panic。
	Close() error
}
