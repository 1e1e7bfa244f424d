package errors

import (
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/lomehong/silk/pkg/logging"
)

// RecoveryHandler 恢复处理器接口
type RecoveryHandler interface {
	// HandlePanic 处理panic
	HandlePanic(p interface{}) error
	// Name 返回处理器名称
	Name() string
}

// LogRecoveryHandler 日志恢复处理器
type LogRecoveryHandler struct {
	logger logging.Logger
	name   string
}

// NewLogRecoveryHandler 创建一个新的日志恢复处理器
func NewLogRecoveryHandler(logger logging.Logger) *LogRecoveryHandler {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &LogRecoveryHandler{
		logger: logger,
		name:   "log_recovery",
	}
}

// HandlePanic 处理panic
func (h *LogRecoveryHandler) HandlePanic(p interface{}) error {
	stack := string(debug.Stack())
	h.logger.Debug("恢复panic", "panic", p)

	// 将panic转换为错误
	err := New(ErrorTypeCritical, CodePanic, fmt.Sprintf("panic: %v", p)).WithStack(stack)
	if cause, ok := p.(error); ok {
		err.Cause = cause
	}
	return err
}

// Name 返回处理器名称
func (h *LogRecoveryHandler) Name() string {
	return h.name
}

// RecoveryManager 恢复管理器
type RecoveryManager struct {
	handler RecoveryHandler
	logger  logging.Logger
	panics  int64
}

// NewRecoveryManager 创建一个新的恢复管理器
func NewRecoveryManager(logger logging.Logger, handler RecoveryHandler) *RecoveryManager {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if handler == nil {
		handler = NewLogRecoveryHandler(logger)
	}

	return &RecoveryManager{
		handler: handler,
		logger:  logger,
	}
}

// HandlePanic 处理panic
func (m *RecoveryManager) HandlePanic(p interface{}) error {
	atomic.AddInt64(&m.panics, 1)
	return m.handler.HandlePanic(p)
}

// Panics 返回已恢复的panic次数
func (m *RecoveryManager) Panics() int {
	return int(atomic.LoadInt64(&m.panics))
}

// SafeExec 安全地执行函数，panic被转换为错误返回
func (m *RecoveryManager) SafeExec(f func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = m.HandlePanic(p)
		}
	}()
	return f()
}

// DefaultRecoveryManager 默认恢复管理器
func DefaultRecoveryManager(logger logging.Logger) *RecoveryManager {
	return NewRecoveryManager(logger, NewLogRecoveryHandler(logger))
}
