// Package script 提供运行用户脚本的JavaScript运行时
//
// 运行时基于goja，模块解析沿用node的约定：相对路径按当前模块目录解析，
// 裸模块名先查原生模块，再查 node_modules，最后查构造时给出的全局搜索路径。
// 搜索路径在构造时确定，修改环境变量后需要重新创建运行时才能生效。
package script

import (
	"io"
	"os"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
	"github.com/lomehong/silk/pkg/extension"
	"github.com/lomehong/silk/pkg/logging"
)

// RuntimeOptions 运行时选项
type RuntimeOptions struct {
	// SearchPath 全局模块搜索路径，按顺序查找
	SearchPath []string

	// Modules 以原生模块形式暴露给脚本的扩展模块
	Modules []extension.Module

	// Stdout console.log/info/debug 的输出
	Stdout io.Writer

	// Stderr console.warn/error 的输出
	Stderr io.Writer

	// Argv 暴露为 process.argv
	Argv []string

	// Env 暴露为 process.env
	Env map[string]string

	// Logger 日志记录器
	Logger logging.Logger
}

// Runtime JavaScript运行时
// 非并发安全，所有调用必须在同一个goroutine中进行
type Runtime struct {
	vm         *goja.Runtime
	require    *require.RequireModule
	process    *goja.Object
	searchPath []string
	logger     logging.Logger
}

// NewRuntime 创建运行时
func NewRuntime(opts RuntimeOptions) *Runtime {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNullLogger()
	}

	vm := goja.New()
	registry := require.NewRegistry(require.WithGlobalFolders(opts.SearchPath...))
	registry.RegisterNativeModule(console.ModuleName, consoleLoader(opts.Stdout, opts.Stderr))
	for _, m := range opts.Modules {
		registry.RegisterNativeModule(m.Name(), nativeModuleLoader(m))
	}

	rt := &Runtime{
		vm:         vm,
		require:    registry.Enable(vm),
		searchPath: append([]string(nil), opts.SearchPath...),
		logger:     opts.Logger.Named("script"),
	}

	console.Enable(vm)
	rt.process = newProcess(vm, opts.Argv, opts.Env)
	_ = vm.Set("process", rt.process)

	rt.logger.Debug("运行时已创建", "search_path", rt.searchPath, "modules", len(opts.Modules))
	return rt
}

// nativeModuleLoader 把扩展模块的导出对象挂到 module.exports
func nativeModuleLoader(m extension.Module) require.ModuleLoader {
	return func(vm *goja.Runtime, module *goja.Object) {
		exports := module.Get("exports").(*goja.Object)
		for k, v := range m.Exports() {
			_ = exports.Set(k, v)
		}
	}
}

// newProcess 创建 process 对象
func newProcess(vm *goja.Runtime, argv []string, env map[string]string) *goja.Object {
	process := vm.NewObject()

	args := make([]interface{}, len(argv))
	for i, a := range argv {
		args[i] = a
	}
	_ = process.Set("argv", vm.NewArray(args...))

	envObj := vm.NewObject()
	for k, v := range env {
		_ = envObj.Set(k, v)
	}
	_ = process.Set("env", envObj)
	return process
}

// VM 返回底层goja运行时
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Require 按node约定加载模块并返回其exports，同一路径只执行一次
func (r *Runtime) Require(path string) (goja.Value, error) {
	r.logger.Debug("加载模块", "path", path)
	return r.require.Require(path)
}

// RunString 执行一段脚本
func (r *Runtime) RunString(name, src string) (goja.Value, error) {
	return r.vm.RunScript(name, src)
}

// Global 读取全局变量，不存在时返回nil
func (r *Runtime) Global(name string) goja.Value {
	return r.vm.Get(name)
}

// SearchPaths 返回运行时使用的全局搜索路径
func (r *Runtime) SearchPaths() []string {
	return append([]string(nil), r.searchPath...)
}
