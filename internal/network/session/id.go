package session

import "go.uber.org/atomic"

// idCounter 为进程内会话 ID 的自增计数器。
var idCounter = atomic.NewUint64(0)

// NextID 返回下一个全局唯一的会话 ID。
//
// 说明：
//   - ID 从 1 开始单调递增，0 保留为“无效会话”。
func NextID() uint64 {
	return idCounter.Inc()
}
