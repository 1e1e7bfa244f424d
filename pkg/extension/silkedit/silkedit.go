// Package silkedit 是编辑器内置的扩展模块
//
// 导入该包即在默认注册表中注册名为 silkedit 的扩展模块。
package silkedit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lomehong/silk/pkg/extension"
)

// 模块信息
const (
	Name    = "silkedit"
	Version = "0.8.0"

	// HomeDirName 用户目录下的数据目录名
	HomeDirName = ".silk"

	// HomeEnv 覆盖数据目录的环境变量
	HomeEnv = "SILK_HOME"
)

// 常量键，与脚本中 silkedit.Constants 的字段名一致
const (
	KeyHomePath                    = "silkHomePath"
	KeyUserConfigPath              = "userConfigPath"
	KeyUserKeymapPath              = "userKeymapPath"
	KeyUserPackagesRootDirPath     = "userPackagesRootDirPath"
	KeyUserPackagesNodeModulesPath = "userPackagesNodeModulesPath"
	KeyUserRootPackageJSONPath     = "userRootPackageJsonPath"
)

func init() {
	extension.MustRegister(Name, Factory)
}

// Factory 按opts创建模块，数据目录见ResolveHome
func Factory(opts extension.Options) (extension.Module, error) {
	home, err := ResolveHome(opts)
	if err != nil {
		return nil, err
	}
	return New(home), nil
}

// Module silkedit扩展模块
type Module struct {
	home      string
	constants map[string]string
}

// New 以指定的数据目录创建模块
func New(home string) *Module {
	packages := filepath.Join(home, "packages")
	return &Module{
		home: home,
		constants: map[string]string{
			KeyHomePath:                    home,
			KeyUserConfigPath:              filepath.Join(home, "config.yml"),
			KeyUserKeymapPath:              filepath.Join(home, "keymap.yml"),
			KeyUserPackagesRootDirPath:     packages,
			KeyUserPackagesNodeModulesPath: filepath.Join(packages, "node_modules"),
			KeyUserRootPackageJSONPath:     filepath.Join(packages, "package.json"),
		},
	}
}

// ResolveHome 解析数据目录
// 优先级：opts.HomeDir > opts.Env中的SILK_HOME > $HOME/.silk
func ResolveHome(opts extension.Options) (string, error) {
	if opts.HomeDir != "" {
		return opts.HomeDir, nil
	}
	if env, _ := opts.LookupEnv(HomeEnv); env != "" {
		return env, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("无法获取用户主目录: %w", err)
	}
	return filepath.Join(userHome, HomeDirName), nil
}

// Name 模块名称
func (m *Module) Name() string { return Name }

// Version 模块版本
func (m *Module) Version() string { return Version }

// HomePath 数据目录
func (m *Module) HomePath() string { return m.home }

// Constants 模块常量
func (m *Module) Constants() map[string]string {
	out := make(map[string]string, len(m.constants))
	for k, v := range m.constants {
		out[k] = v
	}
	return out
}

// Exports 暴露给脚本的对象
func (m *Module) Exports() map[string]interface{} {
	constants := make(map[string]interface{}, len(m.constants))
	for k, v := range m.constants {
		constants[k] = v
	}
	return map[string]interface{}{
		"Constants": constants,
		"version":   Version,
	}
}
