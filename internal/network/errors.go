package network

// Stage 表示网络收发链路中的处理阶段。
//
// 主要用于在回调中标记错误发生的位置，便于监控与排查。
type Stage string

const (
	StageHandshake Stage = "handshake" // HTTP -> WebSocket 升级
	StageRecv      Stage = "recv"      // 从底层连接读取文本帧
	StageDispatch  Stage = "dispatch"  // 文本行 -> 业务处理
	StageSend      Stage = "send"      // 向对端写出文本帧
	StageClose     Stage = "close"     // 会话关闭与清理
)
