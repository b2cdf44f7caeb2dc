package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/relay-garden-go/internal/history"
	"github.com/lk2023060901/relay-garden-go/internal/network/session"
	"github.com/lk2023060901/relay-garden-go/pkg/log"
	"github.com/lk2023060901/relay-garden-go/pkg/metrics"
)

// Admission 执行角色申请的准入裁决与授予流程。
//
// 流程（授予成功时）：
//  1. 在注册表的单个临界区内完成计数检查与角色写入；
//  2. 读取授予时刻的历史快照并私发给申请者（先于任何公开确认）；
//  3. 单播角色确认；
//  4. 广播入场通告（含新会话自身）。
//
// 拒绝时仅单播一条拒绝消息，不修改任何状态、不广播。
type Admission struct {
	registry *Registry
	store    history.Store
	caster   *Broadcaster
}

// NewAdmission 创建一个 Admission。
func NewAdmission(registry *Registry, store history.Store, caster *Broadcaster) *Admission {
	return &Admission{
		registry: registry,
		store:    store,
		caster:   caster,
	}
}

// Request 处理一次角色申请。
//
// 返回值仅表示裁决结果，调用方无论成败都应随后广播最新的角色计数。
func (a *Admission) Request(ctx context.Context, sess session.Session, roleValue string) error {
	requested := ParseRole(roleValue)

	if err := a.registry.TryAdmit(sess.ID(), requested); err != nil {
		metrics.AdmissionDenied.WithLabelValues(requested.String()).Inc()
		if requested == RoleWriter {
			a.caster.SendTo(sess, MsgRoleDeniedWriter)
		} else {
			a.caster.SendTo(sess, MsgRoleDeniedReader)
		}
		log.Info("role request denied",
			zap.Uint64("sessionID", sess.ID()),
			zap.String("requested", requested.String()),
			zap.Error(err))
		return err
	}

	// 历史回放必须先于角色确认，且快照取自授予时刻。
	a.caster.SendTo(sess, a.Snapshot(ctx))

	if requested == RoleWriter {
		a.caster.SendTo(sess, MsgRoleConfirmedWriter)
	} else {
		a.caster.SendTo(sess, MsgRoleConfirmedReader)
	}

	username, _, _ := a.registry.Lookup(sess.ID())
	a.caster.BroadcastAll(FormatJoined(username, requested))

	log.Info("role granted",
		zap.Uint64("sessionID", sess.ID()),
		zap.String("role", requested.String()),
		zap.String("username", username))
	return nil
}

// Snapshot 读取最近的历史快照并渲染为按时间序的文本块。
// 读取失败时降级为空字符串，历史为空时返回空字符串。
func (a *Admission) Snapshot(ctx context.Context) string {
	start := time.Now()
	records, err := a.store.Recent(ctx, HistoryLimit)
	if err != nil {
		log.Warn("history replay degraded to empty", zap.Error(err))
		return ""
	}
	metrics.HistoryReplayLatency.Observe(float64(time.Since(start).Milliseconds()))
	return history.Render(records)
}
