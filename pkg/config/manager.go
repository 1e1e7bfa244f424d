package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lomehong/silk/pkg/logging"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// 配置文件和环境变量约定
const (
	ConfigName = "boot"
	ConfigType = "yaml"
	EnvPrefix  = "SILK"
	HomeDir    = ".silk"
)

// Manager 启动配置管理器
type Manager struct {
	v          *viper.Viper
	configFile string
	logger     logging.Logger
}

// NewManager 创建配置管理器，configFile为空时在当前目录和 $HOME/.silk 中查找 boot.yaml
func NewManager(configFile string, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	v := viper.New()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, HomeDir))
		}
		v.SetConfigName(ConfigName)
		v.SetConfigType(ConfigType)
	}

	// SILK_MIN_ARGS、SILK_LOG_LEVEL ...
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Manager{
		v:          v,
		configFile: configFile,
		logger:     logger.Named("config"),
	}
}

// Load 读取配置文件并解码为BootConfig
// 未指定配置文件且找不到 boot.yaml 时使用默认值
func (m *Manager) Load() (*BootConfig, error) {
	if err := m.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
		m.logger.Debug("未找到配置文件，使用默认配置")
	} else {
		m.logger.Debug("已读取配置文件", "path", m.v.ConfigFileUsed())
	}

	return m.Decode()
}

// Decode 把当前设置解码为BootConfig并校验
func (m *Manager) Decode() (*BootConfig, error) {
	cfg := &BootConfig{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("创建解码器失败: %w", err)
	}

	if err := decoder.Decode(m.v.AllSettings()); err != nil {
		return nil, fmt.Errorf("解码配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Set 设置配置项，优先级高于配置文件和环境变量
func (m *Manager) Set(key string, value interface{}) {
	m.v.Set(key, value)
}

// ConfigFileUsed 返回实际读取的配置文件
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// DefaultConfigPath 返回默认配置文件路径 $HOME/.silk/boot.yaml
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("无法获取用户主目录: %w", err)
	}
	return filepath.Join(home, HomeDir, ConfigName+"."+ConfigType), nil
}

// WriteDefault 把默认配置写入文件，path为空时写到默认路径
// 文件已存在且force为false时返回错误
func (m *Manager) WriteDefault(path string, force bool) (string, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return "", err
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("无法创建配置目录: %w", err)
	}

	out := viper.New()
	for k, val := range Defaults() {
		out.Set(k, val)
	}

	var err error
	if force {
		err = out.WriteConfigAs(path)
	} else {
		err = out.SafeWriteConfigAs(path)
	}
	if err != nil {
		return "", fmt.Errorf("无法写入配置文件: %w", err)
	}

	m.logger.Info("已创建默认配置文件", "path", path)
	return path, nil
}
