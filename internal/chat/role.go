package chat

import "strings"

// Role 表示一个会话在聊天室内的角色。
//
// 约束：
//   - 任一时刻最多只有一个 Writer；
//   - Writer 与 Reader 不会同时存在；多个 Reader 可以共存。
type Role int8

const (
	// RoleNone 表示尚未申请任何角色。
	RoleNone Role = iota
	// RoleReader 表示只读参与者，不能发送聊天消息。
	RoleReader
	// RoleWriter 表示独占的消息发送者。
	RoleWriter
)

// String 返回角色的小写名称。
func (r Role) String() string {
	switch r {
	case RoleReader:
		return "reader"
	case RoleWriter:
		return "writer"
	default:
		return "none"
	}
}

// ParseRole 解析角色申请值。
//
// 规则：
//   - 忽略大小写等于 "writer" 时申请 Writer；
//   - 其余任意值（包括带尾部空白的 "writer "）一律视为申请 Reader，
//     调用方只负责去掉前导空白。
func ParseRole(value string) Role {
	if strings.EqualFold(value, "writer") {
		return RoleWriter
	}
	return RoleReader
}
