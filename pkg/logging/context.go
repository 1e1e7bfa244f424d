package logging

import (
	"context"

	"github.com/google/uuid"
)

// LogContextKey 日志上下文键
type LogContextKey string

// 预定义日志上下文键
const (
	LogContextKeySessionID LogContextKey = "session_id"
)

// NewSessionID 生成启动会话ID
func NewSessionID() string {
	return uuid.New().String()
}

// ContextWithSessionID 创建带会话ID的上下文
func ContextWithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	return context.WithValue(ctx, LogContextKeySessionID, sessionID)
}

// GetSessionIDFromContext 从上下文中获取会话ID
func GetSessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if sessionID, ok := ctx.Value(LogContextKeySessionID).(string); ok {
		return sessionID
	}
	return ""
}

// fieldsFromContext 从上下文中提取日志字段
func fieldsFromContext(ctx context.Context) []interface{} {
	if sessionID := GetSessionIDFromContext(ctx); sessionID != "" {
		return []interface{}{string(LogContextKeySessionID), sessionID}
	}
	return nil
}
