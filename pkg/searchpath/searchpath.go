// Package searchpath 管理模块搜索路径环境变量
package searchpath

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// DefaultEnvKey 默认的模块搜索路径环境变量
const DefaultEnvKey = "NODE_PATH"

// Env 环境变量读写接口
// 启动流程通过它显式传递进程环境，测试时可替换为MapEnv
type Env interface {
	LookupEnv(key string) (string, bool)
	Setenv(key, value string) error

	// Environ 返回全部环境变量的副本
	Environ() map[string]string
}

// OSEnv 读写当前进程的环境变量
type OSEnv struct{}

// LookupEnv 读取环境变量
func (OSEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// Setenv 写入环境变量
func (OSEnv) Setenv(key, value string) error { return os.Setenv(key, value) }

// Environ 返回进程环境变量
func (OSEnv) Environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// MapEnv 内存中的环境变量
type MapEnv struct {
	mu   sync.RWMutex
	vars map[string]string
}

// NewMapEnv 创建内存环境变量
func NewMapEnv(vars map[string]string) *MapEnv {
	m := &MapEnv{vars: make(map[string]string, len(vars))}
	for k, v := range vars {
		m.vars[k] = v
	}
	return m
}

// LookupEnv 读取环境变量
func (m *MapEnv) LookupEnv(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vars[key]
	return v, ok
}

// Setenv 写入环境变量
func (m *MapEnv) Setenv(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vars[key] = value
	return nil
}

// Environ 返回全部环境变量的副本
func (m *MapEnv) Environ() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	env := make(map[string]string, len(m.vars))
	for k, v := range m.vars {
		env[k] = v
	}
	return env
}

// Separator 返回路径列表分隔符，override为空时使用平台约定
func Separator(override string) string {
	if override != "" {
		return override
	}
	return string(os.PathListSeparator)
}

// Configure 把localDir放到搜索路径最前面
// 变量已设置且非空时写入 localDir+sep+原值，否则只写入localDir。不去重。
func Configure(env Env, key, localDir, sep string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("搜索路径环境变量名不能为空")
	}

	value := localDir
	if current, ok := env.LookupEnv(key); ok && current != "" {
		value = localDir + sep + current
	}

	if err := env.Setenv(key, value); err != nil {
		return "", fmt.Errorf("写入环境变量 %s 失败: %w", key, err)
	}
	return value, nil
}

// Split 把路径列表拆分为条目，忽略空条目
func Split(value, sep string) []string {
	if value == "" {
		return nil
	}
	if sep == "" {
		return []string{value}
	}

	parts := strings.Split(value, sep)
	entries := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}

// Lookup 读取并拆分搜索路径
func Lookup(env Env, key, sep string) []string {
	value, _ := env.LookupEnv(key)
	return Split(value, sep)
}
