package silkedit

import (
	"path/filepath"
	"testing"

	"github.com/lomehong/silk/pkg/extension"
	"github.com/lomehong/silk/pkg/searchpath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	home := filepath.Join(t.TempDir(), ".silk")
	m := New(home)

	assert.Equal(t, Name, m.Name())
	assert.Equal(t, home, m.HomePath())

	c := m.Constants()
	assert.Equal(t, home, c[KeyHomePath])
	assert.Equal(t, filepath.Join(home, "config.yml"), c[KeyUserConfigPath])
	assert.Equal(t, filepath.Join(home, "keymap.yml"), c[KeyUserKeymapPath])
	assert.Equal(t, filepath.Join(home, "packages", "node_modules"), c[KeyUserPackagesNodeModulesPath])
	assert.Equal(t, filepath.Join(home, "packages", "package.json"), c[KeyUserRootPackageJSONPath])

	// 返回副本
	c[KeyHomePath] = "/elsewhere"
	assert.Equal(t, home, m.Constants()[KeyHomePath])

	exports := m.Exports()
	assert.Equal(t, Version, exports["version"])
	assert.Equal(t, home, exports["Constants"].(map[string]interface{})[KeyHomePath])
}

func TestResolveHome(t *testing.T) {
	home, err := ResolveHome(extension.Options{HomeDir: "/custom"})
	require.NoError(t, err)
	assert.Equal(t, "/custom", home)

	env := searchpath.NewMapEnv(map[string]string{HomeEnv: "/from-env"})
	home, err = ResolveHome(extension.Options{Env: env})
	require.NoError(t, err)
	assert.Equal(t, "/from-env", home)

	// 只读取传入的环境
	t.Setenv(HomeEnv, "/from-process")
	t.Setenv("HOME", "/home/user")
	home, err = ResolveHome(extension.Options{Env: searchpath.NewMapEnv(nil)})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/user", HomeDirName), home)

	home, err = ResolveHome(extension.Options{})
	require.NoError(t, err)
	assert.Equal(t, "/from-process", home)
}

func TestFactory(t *testing.T) {
	home := t.TempDir()
	m, err := Factory(extension.Options{HomeDir: home})
	require.NoError(t, err)
	assert.Equal(t, home, m.Constants()[KeyHomePath])
}

func TestRegisteredInDefault(t *testing.T) {
	assert.Contains(t, extension.Default.Names(), Name)

	opts := extension.Options{HomeDir: t.TempDir()}
	first, err := extension.Default.LoadCompatible(Name, ">= 0.1.0", opts)
	require.NoError(t, err)
	second, err := extension.Default.Load(Name, extension.Options{})
	require.NoError(t, err)
	assert.Same(t, first, second)
}
