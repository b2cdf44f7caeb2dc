package chat

import (
	"go.uber.org/zap"

	"github.com/lk2023060901/relay-garden-go/internal/network/session"
	"github.com/lk2023060901/relay-garden-go/pkg/log"
	"github.com/lk2023060901/relay-garden-go/pkg/metrics"
	"github.com/lk2023060901/relay-garden-go/pkg/util/merr"
)

// DeliveryResult 记录一次广播中单个接收者的投递结果。
type DeliveryResult struct {
	SessionID uint64
	Err       error
}

// Broadcaster 负责面向会话的单播与全量扇出。
//
// 约定：
//   - 投递是 fire-and-forget 的：单个接收者失败不重试、不中断其余投递；
//   - 扇出迭代使用注册表快照，绝不在持有注册表锁的情况下执行网络写出；
//   - BroadcastAll 返回每个接收者的投递结果，仅用于观测，调用方无需处理。
type Broadcaster struct {
	registry *Registry
}

// NewBroadcaster 创建一个基于指定注册表的 Broadcaster。
func NewBroadcaster(registry *Registry) *Broadcaster {
	return &Broadcaster{registry: registry}
}

// SendTo 向单个会话投递一条文本，失败时仅记录日志。
func (b *Broadcaster) SendTo(sess session.Session, payload string) {
	if sess == nil {
		return
	}
	if err := sess.Send(payload); err != nil {
		metrics.DeliveryFailures.WithLabelValues(deliveryFailureReason(err)).Inc()
		log.RatedWarn(1, "unicast dropped",
			zap.Uint64("sessionID", sess.ID()),
			zap.Error(err))
	}
}

// BroadcastAll 将一条文本扇出给当前所有在线会话。
//
// 行为：
//   - 基于注册表的时点快照迭代，快照之后新加入的会话不会收到本条消息；
//   - 单个接收者的失败被吞掉（记录日志与指标），不影响其余接收者；
//   - 返回值为每个接收者的投递结果。
func (b *Broadcaster) BroadcastAll(payload string) []DeliveryResult {
	metrics.BroadcastMessages.Inc()

	sessions := b.registry.Snapshot()
	results := make([]DeliveryResult, 0, len(sessions))

	for _, sess := range sessions {
		err := sess.Send(payload)
		if err != nil {
			metrics.DeliveryFailures.WithLabelValues(deliveryFailureReason(err)).Inc()
			log.RatedWarn(1, "broadcast delivery dropped",
				zap.Uint64("sessionID", sess.ID()),
				zap.Error(err))
		}
		results = append(results, DeliveryResult{SessionID: sess.ID(), Err: err})
	}
	return results
}

// deliveryFailureReason 将投递错误映射为指标标签。
func deliveryFailureReason(err error) string {
	switch merr.Code(err) {
	case merr.Code(merr.ErrSendQueueFull):
		return "queue_full"
	case merr.Code(merr.ErrSessionClosed):
		return "closed"
	default:
		return "other"
	}
}
