// Package timeout defines centralized timeout constants for AI operations.
// Package timeout 定义 AI 操作的集中式超时常量。
package timeout

import "time"

// AI operation timeout constants.
// AI 操作超时常量。
const (
	// CompletionTimeout bounds a single call to the completion endpoint.
	// CompletionTimeout 是单次补全调用的超时时间。
	CompletionTimeout = 60 * time.Second

	// TurnTimeout bounds a whole turn: two completions plus the reply delay.
	// TurnTimeout 是一个完整回合（两次补全加回复间隔）的超时时间。
	TurnTimeout = 2*CompletionTimeout + 10*time.Second

	// ShutdownTimeout is the grace period for in-flight requests on shutdown.
	// ShutdownTimeout 是关闭服务时等待进行中请求的时间。
	ShutdownTimeout = 10 * time.Second

	// MaxTruncateLength is the maximum length for truncating strings in logs and error excerpts.
	// MaxTruncateLength 是日志和错误摘要中字符串截断的最大长度。
	MaxTruncateLength = 200
)
