package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/rs/zerolog"
)

// LogLevel 日志级别
type LogLevel string

// 预定义日志级别
const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelOff   LogLevel = "off"
)

// LogFormat 日志格式
type LogFormat string

// 预定义日志格式
const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// LogOutput 日志输出
type LogOutput string

// 预定义日志输出
const (
	LogOutputStdout LogOutput = "stdout"
	LogOutputStderr LogOutput = "stderr"
	LogOutputFile   LogOutput = "file"
)

// LogConfig 日志配置
type LogConfig struct {
	Level           LogLevel  // 日志级别
	Format          LogFormat // 日志格式
	Output          LogOutput // 日志输出
	FilePath        string    // 日志文件路径
	MaxSize         int64     // 日志文件轮转大小（字节），0表示不轮转
	MaxBackups      int       // 保留的轮转备份数量
	IncludeLocation bool      // 是否包含代码位置
	TimeFormat      string    // 时间格式

	// Writer 不为空时覆盖Output
	Writer io.Writer
}

// DefaultLogConfig 默认日志配置
// 启动成功时不应产生任何输出，因此默认级别为warn
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		Level:      LogLevelWarn,
		Format:     LogFormatText,
		Output:     LogOutputStderr,
		FilePath:   "silk.log",
		MaxSize:    10 << 20,
		MaxBackups: 3,
		TimeFormat: time.RFC3339,
	}
}

// Logger 日志记录器接口
type Logger interface {
	Trace(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// With 返回附带键值对的子日志记录器
	With(args ...interface{}) Logger

	// Named 返回命名的子日志记录器
	Named(name string) Logger

	// WithContext 附加上下文中的会话信息
	WithContext(ctx context.Context) Logger
}

// NewLogger 根据配置创建日志记录器
// text格式使用hclog，json格式使用zerolog
func NewLogger(config *LogConfig) (Logger, io.Closer, error) {
	if config == nil {
		config = DefaultLogConfig()
	}

	level, err := ParseLevel(string(config.Level))
	if err != nil {
		return nil, nil, err
	}

	writer, closer, err := createLogWriter(config)
	if err != nil {
		return nil, nil, fmt.Errorf("创建日志输出失败: %w", err)
	}

	switch config.Format {
	case LogFormatJSON:
		zl := zerolog.New(writer).With().Timestamp().Logger().Level(getZeroLogLevel(level))
		return NewZeroLogger(zl), closer, nil
	case LogFormatText, "":
		hc := hclog.New(&hclog.LoggerOptions{
			Name:            "silk",
			Level:           getHCLogLevel(level),
			Output:          writer,
			IncludeLocation: config.IncludeLocation,
			TimeFormat:      config.TimeFormat,
		})
		return NewHCLogger(hc), closer, nil
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("不支持的日志格式: %s", config.Format)
	}
}

// ParseLevel 解析日志级别
func ParseLevel(s string) (LogLevel, error) {
	switch level := LogLevel(strings.ToLower(strings.TrimSpace(s))); level {
	case LogLevelTrace, LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, LogLevelOff:
		return level, nil
	case "":
		return LogLevelWarn, nil
	default:
		return "", fmt.Errorf("不支持的日志级别: %s", s)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// createLogWriter 创建日志输出
func createLogWriter(config *LogConfig) (io.Writer, io.Closer, error) {
	if config.Writer != nil {
		return config.Writer, nopCloser{}, nil
	}

	switch config.Output {
	case LogOutputStdout:
		return os.Stdout, nopCloser{}, nil
	case LogOutputStderr, "":
		return os.Stderr, nopCloser{}, nil
	case LogOutputFile:
		rf := NewRotatingFile(config.FilePath, config.MaxSize, config.MaxBackups)
		return rf, rf, nil
	default:
		return nil, nil, fmt.Errorf("不支持的日志输出: %s", config.Output)
	}
}

// getZeroLogLevel 获取zerolog日志级别
func getZeroLogLevel(level LogLevel) zerolog.Level {
	switch level {
	case LogLevelTrace:
		return zerolog.TraceLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelInfo:
		return zerolog.InfoLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	case LogLevelOff:
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}

// getHCLogLevel 获取hclog日志级别
func getHCLogLevel(level LogLevel) hclog.Level {
	switch level {
	case LogLevelTrace:
		return hclog.Trace
	case LogLevelDebug:
		return hclog.Debug
	case LogLevelInfo:
		return hclog.Info
	case LogLevelWarn:
		return hclog.Warn
	case LogLevelError:
		return hclog.Error
	case LogLevelOff:
		return hclog.Off
	default:
		return hclog.Warn
	}
}
