package chat

import "fmt"

// 入站命令前缀与常量。
const (
	// CmdUsernamePrefix 设置显示名。
	CmdUsernamePrefix = "username:"
	// CmdRolePrefix 申请角色。
	CmdRolePrefix = "role:"
	// CmdGetHistory 请求重发历史快照。
	CmdGetHistory = "get_history"
)

// 协议级限制。
const (
	// MaxUsernameLen 为显示名的最大字节数，超出部分被截断。
	MaxUsernameLen = 63
	// MaxMessageLen 为单条入站消息的最大字节数。
	MaxMessageLen = 4096
	// HistoryLimit 为历史回放的最大条数。
	HistoryLimit = 500
)

// 显示名缺省值。
const (
	// DefaultUsername 为新会话的默认显示名。
	DefaultUsername = "Anonymous"
	// FallbackUsername 为广播聊天行时空显示名的回退值。
	FallbackUsername = "Anon"
)

// 出站固定文本。
const (
	MsgRoleConfirmedWriter = "ROLE_CONFIRMED:writer"
	MsgRoleConfirmedReader = "ROLE_CONFIRMED:reader"

	MsgRoleDeniedWriter = "ROLE_DENIED:A writer or readers are already inside."
	MsgRoleDeniedReader = "ROLE_DENIED:A writer is already inside."

	MsgReaderCannotSend = "System: You are a READER — you cannot send messages."
)

// FormatCounts 渲染角色计数通告。
func FormatCounts(readers, writers int) string {
	return fmt.Sprintf("SYSTEM_COUNTS:%d:%d", readers, writers)
}

// FormatJoined 渲染入场通告。
func FormatJoined(username string, role Role) string {
	if role == RoleWriter {
		return fmt.Sprintf("System: %s joined as Writer", username)
	}
	return fmt.Sprintf("System: %s joined as Reader", username)
}

// FormatDeparted 渲染 Writer 离场通告。
func FormatDeparted(username string) string {
	return fmt.Sprintf("System: %s disconnected.", username)
}
