package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// ErrorType 表示错误类型
type ErrorType int

// 预定义错误类型
const (
	ErrorTypeTemporary  ErrorType = iota // 临时错误，可以重试
	ErrorTypePermanent                   // 永久错误，不应重试
	ErrorTypeCritical                    // 严重错误，需要立即处理
	ErrorTypeValidation                  // 验证错误，输入数据无效
	ErrorTypeNotFound                    // 未找到错误，请求的资源不存在
	ErrorTypeInternal                    // 内部错误，系统内部错误
	ErrorTypeExternal                    // 外部错误，用户脚本等外部代码引发
)

// String 返回错误类型的字符串表示
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeTemporary:
		return "Temporary"
	case ErrorTypePermanent:
		return "Permanent"
	case ErrorTypeCritical:
		return "Critical"
	case ErrorTypeValidation:
		return "Validation"
	case ErrorTypeNotFound:
		return "NotFound"
	case ErrorTypeInternal:
		return "Internal"
	case ErrorTypeExternal:
		return "External"
	default:
		return "Unknown"
	}
}

// 错误代码
const (
	CodeInvalidConfig         = "INVALID_CONFIG"
	CodeExtensionNotFound     = "EXTENSION_NOT_FOUND"
	CodeExtensionIncompatible = "EXTENSION_INCOMPATIBLE"
	CodeExtensionLoad         = "EXTENSION_LOAD"
	CodeHomePathMissing       = "HOME_PATH_MISSING"
	CodeScriptError           = "SCRIPT_ERROR"
	CodePanic                 = "PANIC"
)

// AppError 表示应用程序错误
type AppError struct {
	Type    ErrorType              // 错误类型
	Code    string                 // 错误代码
	Message string                 // 错误消息
	Cause   error                  // 原始错误
	Context map[string]interface{} // 错误上下文
	Stack   string                 // 堆栈跟踪
	Time    time.Time              // 错误发生时间
	Handled bool                   // 是否已处理
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 实现errors.Unwrap接口
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext 添加上下文信息
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithStack 替换堆栈跟踪
func (e *AppError) WithStack(stack string) *AppError {
	e.Stack = stack
	return e
}

// New 创建一个新的应用程序错误
func New(errorType ErrorType, code string, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Time:    time.Now(),
		Stack:   getStackTrace(3),
	}
}

// Newf 使用格式化消息创建应用程序错误
func Newf(errorType ErrorType, code string, format string, args ...interface{}) *AppError {
	err := New(errorType, code, fmt.Sprintf(format, args...))
	err.Stack = getStackTrace(3)
	return err
}

// Wrap 包装一个错误
func Wrap(err error, errorType ErrorType, code string, message string) *AppError {
	if err == nil {
		return nil
	}

	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Cause:   err,
		Stack:   getStackTrace(3),
		Time:    time.Now(),
	}
}

// Is 检查错误是否为指定类型
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As 将错误转换为指定类型
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// IsType 检查错误是否为指定类型
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// Code 返回错误链中第一个AppError的代码
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetStack 获取错误堆栈
func GetStack(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Stack
	}
	return ""
}

// IsHandled 检查错误是否已处理
func IsHandled(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Handled
	}
	return false
}

// MarkHandled 标记错误为已处理
func MarkHandled(err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		appErr.Handled = true
	}
	return err
}

// getStackTrace 获取堆栈跟踪
func getStackTrace(skip int) string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(skip, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()

		// 跳过标准库和测试框架
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "testing/") {
			builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return builder.String()
}
