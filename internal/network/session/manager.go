package session

import (
	"sync"

	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

// Manager 维护当前所有在线会话的索引。
//
// 职责说明：
//   - 只负责会话的注册、查询和移除，不直接创建或关闭底层连接；
//   - Session 的具体生命周期（何时创建/关闭）由上层的接入层决定；
//   - 业务层可以基于 Manager 实现广播、按 ID 定向发送等能力。
type Manager interface {
	// Register 将一个已创建好的 Session 注册到管理器中。
	//
	// 要求：
	//   - sess.ID() 必须是全局唯一的 64 位无符号整型；
	//   - 当存在相同 ID 的会话时，应返回错误，避免覆盖旧会话。
	Register(sess Session) error

	// Get 根据 session id 查找会话。
	Get(id uint64) (sess Session, ok bool)

	// Unregister 从管理器中移除指定 id 的会话。
	//
	// 说明：
	//   - 仅删除索引，不负责调用 sess.Close()；
	//   - 一般在会话关闭后，由上层组件调用 Unregister 做清理。
	Unregister(id uint64) error

	// Range 遍历当前所有在线会话。
	//
	// 参数：
	//   - fn：回调函数，入参为每一个 Session；
	//         当 fn 返回 false 时，中断遍历。
	Range(fn func(sess Session) bool)

	// Count 返回当前已注册的会话数量。
	Count() int
}

// MapManager 提供了基于内存 map 的 Manager 实现。
//
// 特性：
//   - 使用读写锁保证并发安全；
//   - Register 在遇到重复 ID 时返回错误，避免覆盖旧会话；
//   - Range 在遍历前复制一份会话切片，避免在持锁情况下执行用户回调。
type MapManager struct {
	mu       sync.RWMutex
	sessions map[uint64]Session
}

// 确保 MapManager 实现了 Manager 接口。
var _ Manager = (*MapManager)(nil)

// NewMapManager 创建一个空的 MapManager。
func NewMapManager() *MapManager {
	return &MapManager{
		sessions: make(map[uint64]Session),
	}
}

// Register 实现 Manager.Register。
func (m *MapManager) Register(sess Session) error {
	if sess == nil {
		return nil
	}
	id := sess.ID()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return merr.WrapErrSessionDuplicate(id)
	}
	m.sessions[id] = sess
	return nil
}

// Get 实现 Manager.Get。
func (m *MapManager) Get(id uint64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[id]
	return sess, ok
}

// Unregister 实现 Manager.Unregister。
func (m *MapManager) Unregister(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return merr.WrapErrSessionNotFound(id)
	}
	delete(m.sessions, id)
	return nil
}

// Range 实现 Manager.Range。
func (m *MapManager) Range(fn func(sess Session) bool) {
	if fn == nil {
		return
	}

	m.mu.RLock()
	snapshot := make([]Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		snapshot = append(snapshot, sess)
	}
	m.mu.RUnlock()

	for _, sess := range snapshot {
		if !fn(sess) {
			return
		}
	}
}

// Count 实现 Manager.Count。
func (m *MapManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
