package errors

import (
	"fmt"
	"io"
	"sync"

	"github.com/lomehong/silk/pkg/logging"
)

// ErrorHandler 错误处理器接口
type ErrorHandler interface {
	// Handle 处理错误，返回nil表示错误已被吞掉
	Handle(err error) error
	// Name 返回处理器名称
	Name() string
}

// ErrorHandlerFunc 函数形式的错误处理器
type ErrorHandlerFunc func(err error) error

// Handle 处理错误
func (f ErrorHandlerFunc) Handle(err error) error { return f(err) }

// Name 返回处理器名称
func (f ErrorHandlerFunc) Name() string { return "func" }

// Formatter 将错误渲染为可读的跟踪信息
type Formatter func(err error) string

// DefaultFormatter 默认格式化：AppError附带堆栈
func DefaultFormatter(err error) string {
	if stack := GetStack(err); stack != "" {
		return fmt.Sprintf("%s\n%s", err.Error(), stack)
	}
	return err.Error()
}

// TraceErrorHandler 把错误跟踪写到输出流并吞掉错误
type TraceErrorHandler struct {
	out    io.Writer
	format Formatter
	mu     sync.Mutex
	name   string
}

// NewTraceErrorHandler 创建一个新的跟踪错误处理器
func NewTraceErrorHandler(out io.Writer, format Formatter) *TraceErrorHandler {
	if format == nil {
		format = DefaultFormatter
	}
	return &TraceErrorHandler{
		out:    out,
		format: format,
		name:   "trace",
	}
}

// Handle 处理错误
func (h *TraceErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	trace := h.format(err)
	if n := len(trace); n == 0 || trace[n-1] != '\n' {
		trace += "\n"
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = io.WriteString(h.out, trace)
	return nil
}

// Name 返回处理器名称
func (h *TraceErrorHandler) Name() string {
	return h.name
}

// LogErrorHandler 日志错误处理器
type LogErrorHandler struct {
	logger logging.Logger
	name   string
}

// NewLogErrorHandler 创建一个新的日志错误处理器
func NewLogErrorHandler(logger logging.Logger) *LogErrorHandler {
	return &LogErrorHandler{
		logger: logger,
		name:   "log",
	}
}

// Handle 处理错误
func (h *LogErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		h.logger.Debug("应用程序错误",
			"type", appErr.Type.String(),
			"code", appErr.Code,
			"message", appErr.Message,
		)
	} else {
		h.logger.Debug("错误", "error", err)
	}

	return MarkHandled(err)
}

// Name 返回处理器名称
func (h *LogErrorHandler) Name() string {
	return h.name
}

// ErrorHandlerChain 错误处理器链
// 依次调用所有处理器，任一处理器返回nil则认为错误已被吞掉
type ErrorHandlerChain struct {
	handlers []ErrorHandler
}

// NewErrorHandlerChain 创建一个新的错误处理器链
func NewErrorHandlerChain(handlers ...ErrorHandler) *ErrorHandlerChain {
	return &ErrorHandlerChain{handlers: handlers}
}

// Handle 处理错误
func (c *ErrorHandlerChain) Handle(err error) error {
	if err == nil {
		return nil
	}

	result := err
	for _, handler := range c.handlers {
		if handler.Handle(err) == nil {
			result = nil
		}
	}
	return result
}

// Name 返回处理器名称
func (c *ErrorHandlerChain) Name() string {
	return "chain"
}

// AddHandler 添加处理器
func (c *ErrorHandlerChain) AddHandler(handler ErrorHandler) {
	c.handlers = append(c.handlers, handler)
}
