// Package config 管理启动配置
//
// 配置来源按优先级从高到低：命令行设置、SILK_ 前缀的环境变量、
// 配置文件 boot.yaml、内置默认值。
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/lomehong/silk/pkg/logging"
	"github.com/lomehong/silk/pkg/searchpath"
	"gopkg.in/yaml.v3"
)

// 默认值
const (
	DefaultExtension     = "silkedit"
	DefaultHomeField     = "silkHomePath"
	DefaultInitFile      = "init.js"
	DefaultMinArgs       = 2
	DefaultWatchInterval = time.Second
)

// LogSection 日志配置
type LogSection struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
	File   string `mapstructure:"file" yaml:"file"`

	// MaxSizeMB 日志文件轮转大小，单位MB
	MaxSizeMB  int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
}

// BootConfig 启动配置
type BootConfig struct {
	// ModuleDir 追加到搜索路径最前面的本地模块目录
	ModuleDir string `mapstructure:"module_dir" yaml:"module_dir"`

	// PathEnv 搜索路径环境变量名
	PathEnv string `mapstructure:"path_env" yaml:"path_env"`

	// PathSeparator 路径列表分隔符，为空时使用平台约定
	PathSeparator string `mapstructure:"path_separator" yaml:"path_separator"`

	// MinArgs argv的最小长度
	MinArgs int `mapstructure:"min_args" yaml:"min_args"`

	Extension           string `mapstructure:"extension" yaml:"extension"`
	ExtensionConstraint string `mapstructure:"extension_constraint" yaml:"extension_constraint"`

	// HomeField 扩展模块常量中数据目录的字段名
	HomeField string `mapstructure:"home_field" yaml:"home_field"`
	InitFile  string `mapstructure:"init_file" yaml:"init_file"`

	// HomeDir 覆盖扩展模块的数据目录
	HomeDir string `mapstructure:"home_dir" yaml:"home_dir"`

	Watch         bool          `mapstructure:"watch" yaml:"watch"`
	WatchInterval time.Duration `mapstructure:"watch_interval" yaml:"-"`

	Log LogSection `mapstructure:"log" yaml:"log"`
}

// DefaultModuleDir 返回可执行文件所在目录下的 node_modules
func DefaultModuleDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "node_modules"
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), "node_modules")
}

// Defaults 返回默认配置项，键与配置文件一致
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"module_dir":           DefaultModuleDir(),
		"path_env":             searchpath.DefaultEnvKey,
		"path_separator":       "",
		"min_args":             DefaultMinArgs,
		"extension":            DefaultExtension,
		"extension_constraint": "",
		"home_field":           DefaultHomeField,
		"init_file":            DefaultInitFile,
		"home_dir":             "",
		"watch":                false,
		"watch_interval":       DefaultWatchInterval.String(),
		"log": map[string]interface{}{
			"level":       string(logging.LogLevelWarn),
			"format":      string(logging.LogFormatText),
			"output":      string(logging.LogOutputStderr),
			"file":        "",
			"max_size_mb": 10,
			"max_backups": 3,
		},
	}
}

// Default 返回默认配置
func Default() *BootConfig {
	return &BootConfig{
		ModuleDir:     DefaultModuleDir(),
		PathEnv:       searchpath.DefaultEnvKey,
		MinArgs:       DefaultMinArgs,
		Extension:     DefaultExtension,
		HomeField:     DefaultHomeField,
		InitFile:      DefaultInitFile,
		WatchInterval: DefaultWatchInterval,
		Log: LogSection{
			Level:      string(logging.LogLevelWarn),
			Format:     string(logging.LogFormatText),
			Output:     string(logging.LogOutputStderr),
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Validate 校验配置
func (c *BootConfig) Validate() error {
	var problems []string

	if c.ModuleDir == "" {
		problems = append(problems, "module_dir 不能为空")
	}
	if c.PathEnv == "" {
		problems = append(problems, "path_env 不能为空")
	}
	if c.MinArgs < 0 {
		problems = append(problems, fmt.Sprintf("min_args 不能为负数: %d", c.MinArgs))
	}
	if c.Extension == "" {
		problems = append(problems, "extension 不能为空")
	}
	if c.ExtensionConstraint != "" {
		if _, err := semver.NewConstraint(c.ExtensionConstraint); err != nil {
			problems = append(problems, fmt.Sprintf("extension_constraint 无效: %v", err))
		}
	}
	if c.HomeField == "" {
		problems = append(problems, "home_field 不能为空")
	}
	if c.InitFile == "" {
		problems = append(problems, "init_file 不能为空")
	}
	if c.Watch && c.WatchInterval <= 0 {
		problems = append(problems, "watch_interval 必须大于0")
	}

	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		problems = append(problems, "log.max_size_mb 和 log.max_backups 不能为负数")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	switch logging.LogFormat(c.Log.Format) {
	case "", logging.LogFormatText, logging.LogFormatJSON:
	default:
		problems = append(problems, fmt.Sprintf("不支持的日志格式: %s", c.Log.Format))
	}
	switch logging.LogOutput(c.Log.Output) {
	case "", logging.LogOutputStdout, logging.LogOutputStderr:
	case logging.LogOutputFile:
		if c.Log.File == "" {
			problems = append(problems, "log.output 为 file 时 log.file 不能为空")
		}
	default:
		problems = append(problems, fmt.Sprintf("不支持的日志输出: %s", c.Log.Output))
	}

	if len(problems) > 0 {
		return fmt.Errorf("配置无效: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Separator 返回实际使用的路径列表分隔符
func (c *BootConfig) Separator() string {
	return searchpath.Separator(c.PathSeparator)
}

// LogConfig 转换为日志配置
func (c *BootConfig) LogConfig() *logging.LogConfig {
	cfg := logging.DefaultLogConfig()
	if level, err := logging.ParseLevel(c.Log.Level); err == nil {
		cfg.Level = level
	}
	if c.Log.Format != "" {
		cfg.Format = logging.LogFormat(c.Log.Format)
	}
	if c.Log.Output != "" {
		cfg.Output = logging.LogOutput(c.Log.Output)
	}
	if c.Log.File != "" {
		cfg.FilePath = c.Log.File
	}
	cfg.MaxSize = int64(c.Log.MaxSizeMB) << 20
	cfg.MaxBackups = c.Log.MaxBackups
	return cfg
}

// Dump 把配置渲染为YAML
func Dump(c *BootConfig) ([]byte, error) {
	out := struct {
		BootConfig    `yaml:",inline"`
		WatchInterval string `yaml:"watch_interval"`
	}{
		BootConfig:    *c,
		WatchInterval: c.WatchInterval.String(),
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("序列化配置失败: %w", err)
	}
	return data, nil
}
