package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	err := New(ErrorTypeNotFound, CodeExtensionNotFound, "扩展模块未注册")
	assert.Equal(t, "[EXTENSION_NOT_FOUND] 扩展模块未注册", err.Error())
	assert.Equal(t, "NotFound", err.Type.String())
	assert.Contains(t, err.Stack, "TestAppError")

	err.WithContext("name", "silkedit")
	assert.Equal(t, "silkedit", err.Context["name"])
}

func TestWrap(t *testing.T) {
	cause := errors.New("factory failed")
	err := Wrap(cause, ErrorTypeInternal, CodeExtensionLoad, "加载扩展模块失败")

	assert.Equal(t, "[EXTENSION_LOAD] 加载扩展模块失败: factory failed", err.Error())
	assert.True(t, Is(err, cause))
	assert.True(t, IsType(err, ErrorTypeInternal))
	assert.False(t, IsType(cause, ErrorTypeInternal))
	assert.Equal(t, CodeExtensionLoad, Code(err))
	assert.Empty(t, Code(cause))

	assert.Nil(t, Wrap(nil, ErrorTypeInternal, CodeExtensionLoad, "x"))
}

func TestNewf(t *testing.T) {
	err := Newf(ErrorTypeValidation, CodeInvalidConfig, "min_args不能为负数: %d", -1)
	assert.Equal(t, "[INVALID_CONFIG] min_args不能为负数: -1", err.Error())
	assert.Contains(t, GetStack(err), "TestNewf")
}

func TestMarkHandled(t *testing.T) {
	err := New(ErrorTypeExternal, CodeScriptError, "脚本错误")
	assert.False(t, IsHandled(err))
	MarkHandled(err)
	assert.True(t, IsHandled(err))

	plain := errors.New("plain")
	assert.Equal(t, plain, MarkHandled(plain))
	assert.False(t, IsHandled(plain))
}
