// Package extension 提供进程级的扩展模块注册表
//
// 扩展模块按名称注册为工厂函数，首次加载时创建实例并缓存，
// 之后的加载都返回同一个实例。
package extension

import (
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/lomehong/silk/pkg/errors"
	"github.com/lomehong/silk/pkg/logging"
	"github.com/lomehong/silk/pkg/searchpath"
)

// Module 扩展模块
type Module interface {
	// Name 模块名称
	Name() string

	// Version 模块版本，语义化版本格式
	Version() string

	// Constants 模块暴露的常量
	Constants() map[string]string

	// Exports 暴露给脚本运行时的导出对象
	Exports() map[string]interface{}
}

// Options 创建扩展模块实例时的参数
type Options struct {
	// HomeDir 数据目录，为空时由模块自行决定
	HomeDir string

	// Env 模块读取的环境变量，为nil时读取进程环境
	Env searchpath.Env
}

// LookupEnv 从Options.Env读取环境变量
func (o Options) LookupEnv(key string) (string, bool) {
	if o.Env == nil {
		return searchpath.OSEnv{}.LookupEnv(key)
	}
	return o.Env.LookupEnv(key)
}

// Factory 扩展模块工厂
type Factory func(opts Options) (Module, error)

// entry 注册表条目
type entry struct {
	factory Factory
	once    sync.Once
	module  Module
	err     error
	loaded  bool
}

// Registry 扩展模块注册表
type Registry struct {
	entries map[string]*entry
	mu      sync.RWMutex
	logger  logging.Logger
}

// NewRegistry 创建一个新的扩展模块注册表
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger.Named("extension-registry"),
	}
}

// Default 进程级默认注册表
var Default = NewRegistry(nil)

// Register 在默认注册表中注册扩展模块
func Register(name string, factory Factory) error {
	return Default.Register(name, factory)
}

// MustRegister 注册扩展模块，失败时panic，用于包的init函数
func MustRegister(name string, factory Factory) {
	if err := Default.Register(name, factory); err != nil {
		panic(err)
	}
}

// Register 注册扩展模块
func (r *Registry) Register(name string, factory Factory) error {
	if name == "" {
		return errors.New(errors.ErrorTypeValidation, errors.CodeInvalidConfig, "扩展模块名称不能为空")
	}
	if factory == nil {
		return errors.Newf(errors.ErrorTypeValidation, errors.CodeInvalidConfig, "扩展模块 %s 的工厂函数为空", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return errors.Newf(errors.ErrorTypePermanent, errors.CodeInvalidConfig, "扩展模块 %s 已注册", name)
	}

	r.entries[name] = &entry{factory: factory}
	r.logger.Debug("扩展模块已注册", "name", name)
	return nil
}

// Load 加载扩展模块
// 工厂只会执行一次，实例和错误都会被缓存，之后调用传入的opts被忽略
func (r *Registry) Load(name string, opts Options) (Module, error) {
	r.mu.RLock()
	e, exists := r.entries[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeNotFound, errors.CodeExtensionNotFound, "找不到扩展模块 %s", name)
	}

	e.once.Do(func() {
		r.logger.Debug("创建扩展模块实例", "name", name)
		module, err := e.factory(opts)
		if err != nil {
			e.err = errors.Wrap(err, errors.ErrorTypeInternal, errors.CodeExtensionLoad, "加载扩展模块 "+name+" 失败")
			return
		}

		r.mu.Lock()
		e.module = module
		e.loaded = true
		r.mu.Unlock()
	})

	if e.err != nil {
		return nil, e.err
	}
	return e.module, nil
}

// LoadCompatible 加载扩展模块并检查版本约束，constraint为空时不检查
func (r *Registry) LoadCompatible(name, constraint string, opts Options) (Module, error) {
	module, err := r.Load(name, opts)
	if err != nil || constraint == "" {
		return module, err
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, errors.CodeInvalidConfig, "解析版本约束失败")
	}

	v, err := semver.NewVersion(module.Version())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypePermanent, errors.CodeExtensionIncompatible,
			"扩展模块 "+name+" 的版本无法解析")
	}

	if !c.Check(v) {
		return nil, errors.Newf(errors.ErrorTypePermanent, errors.CodeExtensionIncompatible,
			"扩展模块 %s 的版本 %s 不满足约束 %s", name, v, constraint)
	}
	return module, nil
}

// Loaded 检查扩展模块是否已成功加载
func (r *Registry) Loaded(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, exists := r.entries[name]
	return exists && e.loaded
}

// Names 列出所有已注册的扩展模块名称
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
