// Package boot 实现编辑器的启动加载流程
//
// 一次启动依次执行：
//  1. 把本地模块目录放到模块搜索路径最前面，并据此重新派生脚本运行时的搜索路径
//  2. 校验参数个数，不足时输出 "missing argument." 并结束
//  3. 加载扩展模块（进程级单例），失败直接返回给调用方
//  4. 在扩展模块给出的数据目录下定位 init.js，打开、关闭后在隔离执行域中运行
//
// init.js 不存在或无法打开时静默跳过；init.js 抛出的错误只输出跟踪信息到stderr。
package boot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lomehong/silk/pkg/config"
	"github.com/lomehong/silk/pkg/errors"
	"github.com/lomehong/silk/pkg/extension"
	"github.com/lomehong/silk/pkg/logging"
	"github.com/lomehong/silk/pkg/script"
	"github.com/lomehong/silk/pkg/searchpath"
)

// MissingArgumentMessage 参数不足时输出到stdout的提示
const MissingArgumentMessage = "missing argument."

// Status 启动结果状态
type Status int

// 启动结果状态
const (
	StatusInvalidInvocation Status = iota + 1 // 参数不足
	StatusInitSkipped                         // init文件不存在或无法打开
	StatusInitCompleted                       // init文件执行完毕且没有错误
	StatusInitFailed                          // init文件执行过程中有错误被捕获
	StatusInitInterrupted                     // init文件执行期间ctx结束
)

// String 返回状态的字符串表示
func (s Status) String() string {
	switch s {
	case StatusInvalidInvocation:
		return "invalid_invocation"
	case StatusInitSkipped:
		return "init_skipped"
	case StatusInitCompleted:
		return "init_completed"
	case StatusInitFailed:
		return "init_failed"
	case StatusInitInterrupted:
		return "init_interrupted"
	default:
		return "unknown"
	}
}

// Result 一次启动的结果
type Result struct {
	SessionID  string
	Status     Status
	SearchPath string
	Extension  extension.Module
	InitPath   string

	// Errors init文件执行过程中被捕获的错误数
	Errors int
}

// InitResult init文件执行结果
type InitResult struct {
	Path    string
	Skipped bool
	Errors  int
}

// Loader 启动加载器
type Loader struct {
	cfg      *config.BootConfig
	env      searchpath.Env
	args     []string
	stdout   io.Writer
	stderr   io.Writer
	logger   logging.Logger
	registry *extension.Registry
	recovery *errors.RecoveryManager

	searchPath []string
}

// Option 加载器选项
type Option func(*Loader)

// WithEnv 设置环境变量来源
func WithEnv(env searchpath.Env) Option {
	return func(l *Loader) {
		l.env = env
	}
}

// WithArgs 设置进程参数
func WithArgs(args []string) Option {
	return func(l *Loader) {
		l.args = args
	}
}

// WithStdout 设置标准输出
func WithStdout(w io.Writer) Option {
	return func(l *Loader) {
		l.stdout = w
	}
}

// WithStderr 设置标准错误输出
func WithStderr(w io.Writer) Option {
	return func(l *Loader) {
		l.stderr = w
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger logging.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithRegistry 设置扩展模块注册表
func WithRegistry(registry *extension.Registry) Option {
	return func(l *Loader) {
		l.registry = registry
	}
}

// NewLoader 创建启动加载器，cfg为nil时使用默认配置
func NewLoader(cfg *config.BootConfig, opts ...Option) *Loader {
	if cfg == nil {
		cfg = config.Default()
	}

	l := &Loader{
		cfg:      cfg,
		env:      searchpath.OSEnv{},
		args:     os.Args,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		logger:   logging.NewNullLogger(),
		registry: extension.Default,
	}
	for _, opt := range opts {
		opt(l)
	}

	l.logger = l.logger.Named("boot")
	l.recovery = errors.DefaultRecoveryManager(l.logger)
	return l
}

// ConfigurePath 把本地模块目录放到搜索路径最前面，并重新派生脚本运行时使用的搜索路径
func (l *Loader) ConfigurePath() (string, error) {
	sep := l.cfg.Separator()
	value, err := searchpath.Configure(l.env, l.cfg.PathEnv, l.cfg.ModuleDir, sep)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeInvalidConfig, "配置模块搜索路径失败")
	}

	l.searchPath = searchpath.Split(value, sep)
	l.logger.Debug("模块搜索路径已更新", "env", l.cfg.PathEnv, "value", value)
	return value, nil
}

// SearchPath 返回最近一次派生的搜索路径
func (l *Loader) SearchPath() []string {
	return append([]string(nil), l.searchPath...)
}

// ValidateArgs 校验参数个数，不足时向stdout输出提示
func (l *Loader) ValidateArgs() bool {
	if len(l.args) < l.cfg.MinArgs {
		fmt.Fprintln(l.stdout, MissingArgumentMessage)
		l.logger.Debug("参数不足", "args", len(l.args), "min", l.cfg.MinArgs)
		return false
	}
	return true
}

// LoadExtension 加载扩展模块，重复加载返回同一个实例
func (l *Loader) LoadExtension() (extension.Module, error) {
	mod, err := l.registry.LoadCompatible(l.cfg.Extension, l.cfg.ExtensionConstraint, extension.Options{
		HomeDir: l.cfg.HomeDir,
		Env:     l.env,
	})
	if err != nil {
		return nil, err
	}
	l.logger.Debug("扩展模块已加载", "name", mod.Name(), "version", mod.Version())
	return mod, nil
}

// InitPath 计算init文件路径：扩展模块常量中的数据目录 + init文件名
func (l *Loader) InitPath(mod extension.Module) (string, error) {
	home := mod.Constants()[l.cfg.HomeField]
	if home == "" {
		return "", errors.Newf(errors.ErrorTypeNotFound, errors.CodeHomePathMissing,
			"扩展模块 %s 没有提供常量 %s", mod.Name(), l.cfg.HomeField)
	}
	return filepath.Join(home, l.cfg.InitFile), nil
}

// RunInit 依次执行 open → close → execute
// 打开失败时跳过，不产生任何输出；执行中的错误由隔离执行域处理
func (l *Loader) RunInit(ctx context.Context, mod extension.Module, path string) (*InitResult, error) {
	result := &InitResult{Path: path}

	f, err := l.open(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		l.logger.Debug("跳过init文件", "path", path, "reason", err)
		result.Skipped = true
		return result, nil
	}

	if err := l.close(ctx, f); err != nil {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		l.logger.Debug("关闭init文件失败", "path", path, "error", err)
	}

	caught, err := l.execute(ctx, mod, path)
	result.Errors = caught
	return result, err
}

// open 打开init文件，只用于确认文件存在且可读
func (l *Loader) open(ctx context.Context, path string) (*os.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(path)
}

// close 关闭探测用的文件句柄
func (l *Loader) close(ctx context.Context, f *os.File) error {
	err := f.Close()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// execute 在新的运行时和隔离执行域中运行init文件，返回捕获的错误数
func (l *Loader) execute(ctx context.Context, mod extension.Module, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	rt := script.NewRuntime(script.RuntimeOptions{
		SearchPath: l.searchPath,
		Modules:    []extension.Module{mod},
		Stdout:     l.stdout,
		Stderr:     l.stderr,
		Argv:       l.args,
		Env:        l.env.Environ(),
		Logger:     l.logger,
	})

	handler := errors.NewErrorHandlerChain(
		errors.NewTraceErrorHandler(l.stderr, script.Trace),
		errors.NewLogErrorHandler(l.logger),
	)
	domain := script.NewDomain(rt, handler, l.recovery)

	l.logger.Debug("执行init文件", "path", abs)
	err = domain.Run(ctx, func() error {
		_, err := rt.Require(abs)
		return err
	})
	return domain.Errors(), err
}

// Run 执行完整的启动流程
// 扩展模块加载失败、扩展模块缺少数据目录常量、搜索路径配置失败和ctx结束会以error返回，
// 调用方应视为致命错误
func (l *Loader) Run(ctx context.Context) (*Result, error) {
	if logging.GetSessionIDFromContext(ctx) == "" {
		ctx = logging.ContextWithSessionID(ctx, "")
	}
	result := &Result{SessionID: logging.GetSessionIDFromContext(ctx)}
	logger := l.logger.WithContext(ctx)

	value, err := l.ConfigurePath()
	if err != nil {
		return result, err
	}
	result.SearchPath = value

	if !l.ValidateArgs() {
		result.Status = StatusInvalidInvocation
		return result, nil
	}

	mod, err := l.LoadExtension()
	if err != nil {
		logger.Error("加载扩展模块失败", "name", l.cfg.Extension, "error", err)
		return result, err
	}
	result.Extension = mod

	path, err := l.InitPath(mod)
	if err != nil {
		logger.Error("无法确定init文件路径", "error", err)
		return result, err
	}
	result.InitPath = path

	ir, err := l.RunInit(ctx, mod, path)
	result.Errors = ir.Errors
	switch {
	case err != nil:
		result.Status = StatusInitInterrupted
	case ir.Skipped:
		result.Status = StatusInitSkipped
	case ir.Errors > 0:
		result.Status = StatusInitFailed
	default:
		result.Status = StatusInitCompleted
	}

	logger.Debug("启动完成", "status", result.Status.String(), "init", path,
		"errors", result.Errors, "panics", l.recovery.Panics())
	return result, err
}
