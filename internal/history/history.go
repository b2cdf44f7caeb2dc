package history

import (
	"context"
	"strings"

	"github.com/samber/lo"
)

// Record 表示一条不可变的聊天历史记录。
//
// 说明：
//   - ID 为存储层分配的单调递增序号，写入顺序即历史顺序；
//   - Username/Message 在写入后不再变化。
type Record struct {
	ID       int64
	Username string
	Message  string
}

// Store 抽象了聊天历史的持久化层。
//
// 约定：
//   - 在单次进程运行期间只追加，进程启动时清空（历史仅在本次运行内有效）；
//   - Append 与 Recent 可并发调用，实现需自行保证快照不会观察到半写入的记录。
type Store interface {
	// Append 追加一条历史记录。
	Append(ctx context.Context, username, message string) error

	// Recent 返回最近的 limit 条记录，按新到旧排列（调用方负责反转为时间序）。
	Recent(ctx context.Context, limit int) ([]Record, error)

	// Close 释放存储层资源。
	Close() error
}

// FormatLine 将一条记录渲染为对外展示的聊天行。
func FormatLine(username, message string) string {
	return username + ": " + message
}

// Render 将一批新到旧的记录渲染为按时间序（旧到新）换行拼接的文本块。
// 记录为空时返回空字符串。
func Render(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	lines := lo.Map(lo.Reverse(records), func(r Record, _ int) string {
		return FormatLine(r.Username, r.Message)
	})
	return strings.Join(lines, "\n")
}
