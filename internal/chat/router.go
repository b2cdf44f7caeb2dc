package chat

import (
	"strings"

	"go.uber.org/zap"

	"github.com/lk2023060901/relay-garden-go/internal/history"
	network "github.com/lk2023060901/relay-garden-go/internal/network"
	"github.com/lk2023060901/relay-garden-go/internal/network/session"
	"github.com/lk2023060901/relay-garden-go/pkg/log"
	"github.com/lk2023060901/relay-garden-go/pkg/metrics"
	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

// Router 将入站文本分类为角色/改名/历史/聊天命令并分发到对应组件。
//
// 说明：
//   - 实现接入层的 Handler 回调；
//   - 同一会话的回调由接入层保证串行，不同会话之间可能并发；
//   - 任何回调都不会在持有注册表锁的情况下执行网络写出。
type Router struct {
	log.Binder

	registry  *Registry
	admission *Admission
	caster    *Broadcaster
	store     history.Store
}

// NewRouter 创建一个 Router 及其依赖的注册表、广播器与准入控制器。
func NewRouter(store history.Store) *Router {
	registry := NewRegistry()
	caster := NewBroadcaster(registry)
	r := &Router{
		registry:  registry,
		admission: NewAdmission(registry, store, caster),
		caster:    caster,
		store:     store,
	}
	r.SetLogger(log.With(log.FieldComponent("chat.Router")).
		WithRateGroup("chat.Router", 1, 60))
	return r
}

// Registry 返回内部注册表，主要供测试与运维查询使用。
func (r *Router) Registry() *Registry {
	return r.registry
}

// OnConnected 在会话建立后将其加入注册表。
func (r *Router) OnConnected(sess session.Session) {
	r.registry.Register(sess)
	r.updateRoleGauges()

	r.Logger().Info("session connected",
		log.FieldSession(sess.ID()),
		zap.Stringer("remoteAddr", sess.RemoteAddr()))
}

// OnMessage 按前缀分类入站文本并分发。
func (r *Router) OnMessage(sess session.Session, text string) {
	switch {
	case strings.HasPrefix(text, CmdUsernamePrefix):
		name := trimLeadingBlanks(text[len(CmdUsernamePrefix):])
		r.registry.SetUsername(sess.ID(), name)

	case strings.HasPrefix(text, CmdRolePrefix):
		value := trimLeadingBlanks(text[len(CmdRolePrefix):])
		// 无论授予还是拒绝，都随后广播最新的角色计数。
		_ = r.admission.Request(sess.Context(), sess, value)
		r.broadcastCounts()
		r.updateRoleGauges()

	case strings.HasPrefix(text, CmdGetHistory):
		r.caster.SendTo(sess, r.admission.Snapshot(sess.Context()))

	default:
		r.handleChat(sess, text)
	}
}

// OnClosed 处理会话关闭：Writer 离场先广播离场通告，随后移除会话并广播计数。
func (r *Router) OnClosed(sess session.Session, err error) {
	username, role, ok := r.registry.Lookup(sess.ID())
	if ok && role == RoleWriter {
		// 离场通告使用移除前的显示名。
		r.caster.BroadcastAll(FormatDeparted(username))
	}

	r.registry.Unregister(sess.ID())
	r.broadcastCounts()
	r.updateRoleGauges()

	if err != nil {
		r.Logger().Warn("session closed abnormally",
			log.FieldSession(sess.ID()),
			zap.Error(err))
		return
	}
	r.Logger().Info("session closed", log.FieldSession(sess.ID()))
}

// OnError 记录会话链路上各阶段的错误。
func (r *Router) OnError(sess session.Session, stage network.Stage, err error) {
	fields := []zap.Field{
		zap.String("stage", string(stage)),
		zap.Error(err),
	}
	if sess != nil {
		fields = append(fields, log.FieldSession(sess.ID()))
	}
	r.Logger().RatedWarn(1, "session error", fields...)
}

// handleChat 处理一条聊天负载。
//
// 行为：
//   - 仅 Writer 可以发送，其余角色收到一条单播拒绝，不广播、不落库；
//   - 落库失败只记录日志，聊天行仍然照常广播（持久化为尽力而为）。
func (r *Router) handleChat(sess session.Session, text string) {
	username, role, ok := r.registry.Lookup(sess.ID())
	if !ok {
		return
	}
	if role != RoleWriter {
		r.caster.SendTo(sess, MsgReaderCannotSend)
		r.Logger().RatedDebug(1, "chat rejected",
			log.FieldSession(sess.ID()),
			zap.Error(merr.WrapErrChatNotWriter(role.String())))
		return
	}

	if username == "" {
		username = FallbackUsername
	}

	if err := r.store.Append(sess.Context(), username, text); err != nil {
		log.Warn("history append failed, broadcasting anyway",
			zap.Uint64("sessionID", sess.ID()),
			zap.Error(err))
	}

	r.caster.BroadcastAll(history.FormatLine(username, text))
}

// broadcastCounts 广播最新的角色计数。
func (r *Router) broadcastCounts() {
	readers, writers := r.registry.CountRoles()
	r.caster.BroadcastAll(FormatCounts(readers, writers))
}

// updateRoleGauges 将在线会话数按角色同步到指标。
func (r *Router) updateRoleGauges() {
	readers, writers := r.registry.CountRoles()
	total := r.registry.Len()

	metrics.ConnectedSessions.WithLabelValues(RoleReader.String()).Set(float64(readers))
	metrics.ConnectedSessions.WithLabelValues(RoleWriter.String()).Set(float64(writers))
	metrics.ConnectedSessions.WithLabelValues(RoleNone.String()).Set(float64(total - readers - writers))
}

// trimLeadingBlanks 去掉命令值前导的空格与制表符。
func trimLeadingBlanks(s string) string {
	return strings.TrimLeft(s, " \t")
}
