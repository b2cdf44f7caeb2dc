package chat

import (
	"sync"

	"github.com/lk2023060901/relay-garden-go/internal/network/session"
	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

// client 为注册表内部维护的单个会话状态。
type client struct {
	sess     session.Session
	username string
	role     Role
}

// Registry 维护所有在线会话的显示名与角色。
//
// 同步策略：
//   - 所有读写都串行通过同一把排他锁；
//   - 角色计数检查与角色写入在同一临界区内完成（见 TryAdmit），
//     并发的 writer 申请至多一个成功；
//   - 广播迭代使用 Snapshot 返回的副本，绝不在持锁状态下执行网络写出。
type Registry struct {
	mu      sync.Mutex
	clients map[uint64]*client
}

// NewRegistry 创建一个空的 Registry。
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[uint64]*client),
	}
}

// Register 将一个新会话加入注册表，显示名与角色使用默认值。
// 已存在的会话重复注册是安全的 no-op。
func (r *Registry) Register(sess session.Session) {
	if sess == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[sess.ID()]; exists {
		return
	}
	r.clients[sess.ID()] = &client{
		sess:     sess,
		username: DefaultUsername,
		role:     RoleNone,
	}
}

// Unregister 将会话移出注册表，并返回移除前的显示名与角色。
// 会话不存在时返回 ok=false 且不做任何修改。
func (r *Registry) Unregister(id uint64) (username string, role Role, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.clients[id]
	if !exists {
		return "", RoleNone, false
	}
	delete(r.clients, id)
	return c.username, c.role, true
}

// Lookup 返回指定会话当前的显示名与角色。
func (r *Registry) Lookup(id uint64) (username string, role Role, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.clients[id]
	if !exists {
		return "", RoleNone, false
	}
	return c.username, c.role, true
}

// SetUsername 更新会话的显示名，超出 MaxUsernameLen 的部分被截断。
// 会话不存在时为 no-op。
func (r *Registry) SetUsername(id uint64, name string) {
	if len(name) > MaxUsernameLen {
		name = name[:MaxUsernameLen]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, exists := r.clients[id]; exists {
		c.username = name
	}
}

// SetRole 无条件更新会话的角色。
// 调用方必须已经通过 TryAdmit 完成准入校验。
func (r *Registry) SetRole(id uint64, role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, exists := r.clients[id]; exists {
		c.role = role
	}
}

// CountRoles 在单个临界区内统计当前的 reader/writer 数量。
func (r *Registry) CountRoles() (readers, writers int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.countRolesLocked()
}

func (r *Registry) countRolesLocked() (readers, writers int) {
	for _, c := range r.clients {
		switch c.role {
		case RoleReader:
			readers++
		case RoleWriter:
			writers++
		}
	}
	return readers, writers
}

// Len 返回当前在线会话数。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Snapshot 返回所有在线会话的一份时点副本，供持锁范围之外的迭代使用。
func (r *Registry) Snapshot() []session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]session.Session, 0, len(r.clients))
	for _, c := range r.clients {
		result = append(result, c.sess)
	}
	return result
}

// TryAdmit 对角色申请执行准入判定，并在通过时立即写入角色。
//
// 行为：
//   - 计数检查与角色写入在同一临界区内完成，不存在 check-then-act 竞态；
//   - Writer 准入要求当前既无 writer 也无 reader；
//   - Reader 准入要求当前无 writer；
//   - 拒绝时不修改任何状态，返回携带冲突计数的错误。
func (r *Registry) TryAdmit(id uint64, requested Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.clients[id]
	if !exists {
		return merr.WrapErrSessionNotFound(id)
	}

	readers, writers := r.countRolesLocked()

	switch requested {
	case RoleWriter:
		if writers > 0 || readers > 0 {
			return merr.WrapErrAdmissionWriterBlocked(readers, writers)
		}
	default:
		if writers > 0 {
			return merr.WrapErrAdmissionReaderBlocked(writers)
		}
	}

	c.role = requested
	return nil
}
