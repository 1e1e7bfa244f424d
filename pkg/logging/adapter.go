package logging

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/rs/zerolog"
)

// hcLogger 基于hclog的日志记录器
type hcLogger struct {
	logger hclog.Logger
}

// NewHCLogger 包装hclog日志记录器
func NewHCLogger(logger hclog.Logger) Logger {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &hcLogger{logger: logger}
}

// NewNullLogger 创建丢弃所有输出的日志记录器
func NewNullLogger() Logger {
	return NewHCLogger(hclog.NewNullLogger())
}

func (l *hcLogger) Trace(msg string, args ...interface{}) { l.logger.Trace(msg, args...) }
func (l *hcLogger) Debug(msg string, args ...interface{}) { l.logger.Debug(msg, args...) }
func (l *hcLogger) Info(msg string, args ...interface{})  { l.logger.Info(msg, args...) }
func (l *hcLogger) Warn(msg string, args ...interface{})  { l.logger.Warn(msg, args...) }
func (l *hcLogger) Error(msg string, args ...interface{}) { l.logger.Error(msg, args...) }

func (l *hcLogger) With(args ...interface{}) Logger {
	return &hcLogger{logger: l.logger.With(args...)}
}

func (l *hcLogger) Named(name string) Logger {
	return &hcLogger{logger: l.logger.Named(name)}
}

func (l *hcLogger) WithContext(ctx context.Context) Logger {
	fields := fieldsFromContext(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// zeroLogger 基于zerolog的日志记录器
type zeroLogger struct {
	logger zerolog.Logger
	name   string
}

// NewZeroLogger 包装zerolog日志记录器
func NewZeroLogger(logger zerolog.Logger) Logger {
	return &zeroLogger{logger: logger}
}

func (l *zeroLogger) Trace(msg string, args ...interface{}) { l.log(l.logger.Trace(), msg, args) }
func (l *zeroLogger) Debug(msg string, args ...interface{}) { l.log(l.logger.Debug(), msg, args) }
func (l *zeroLogger) Info(msg string, args ...interface{})  { l.log(l.logger.Info(), msg, args) }
func (l *zeroLogger) Warn(msg string, args ...interface{})  { l.log(l.logger.Warn(), msg, args) }
func (l *zeroLogger) Error(msg string, args ...interface{}) { l.log(l.logger.Error(), msg, args) }

// log 按hclog的键值对约定写入zerolog事件
func (l *zeroLogger) log(event *zerolog.Event, msg string, args []interface{}) {
	if event == nil {
		return
	}
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			event = event.Interface("EXTRA_VALUE_AT_END", args[i])
			break
		}
		key := argKey(args[i])
		if err, ok := args[i+1].(error); ok {
			event = event.AnErr(key, err)
			continue
		}
		event = event.Interface(key, args[i+1])
	}
	event.Msg(msg)
}

func (l *zeroLogger) With(args ...interface{}) Logger {
	ctx := l.logger.With()
	for i := 0; i+1 < len(args); i += 2 {
		ctx = ctx.Interface(argKey(args[i]), args[i+1])
	}
	return &zeroLogger{logger: ctx.Logger(), name: l.name}
}

func (l *zeroLogger) Named(name string) Logger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return &zeroLogger{logger: l.logger.With().Str("@module", name).Logger(), name: name}
}

func (l *zeroLogger) WithContext(ctx context.Context) Logger {
	fields := fieldsFromContext(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

func argKey(k interface{}) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}
