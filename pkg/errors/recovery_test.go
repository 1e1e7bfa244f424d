package errors

import (
	"errors"
	"testing"

	"github.com/lomehong/silk/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogRecoveryHandler(t *testing.T) {
	handler := NewLogRecoveryHandler(logging.NewNullLogger())

	// 测试处理panic
	err := handler.HandlePanic("test panic")
	require.Error(t, err)
	appErr := err.(*AppError)
	assert.Equal(t, ErrorTypeCritical, appErr.Type)
	assert.Equal(t, CodePanic, appErr.Code)
	assert.Contains(t, appErr.Message, "test panic")
	assert.NotEmpty(t, appErr.Stack)
}

func TestLogRecoveryHandler_ErrorCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewLogRecoveryHandler(nil).HandlePanic(cause)
	assert.True(t, Is(err, cause))
}

func TestRecoveryManager(t *testing.T) {
	manager := NewRecoveryManager(logging.NewNullLogger(), nil)

	// 测试处理panic
	err := manager.HandlePanic("test panic")
	assert.Equal(t, CodePanic, Code(err))

	// 测试计数
	assert.Equal(t, 1, manager.Panics())
}

func TestRecoveryManager_SafeExec(t *testing.T) {
	manager := DefaultRecoveryManager(logging.NewNullLogger())

	// 测试正常执行
	err := manager.SafeExec(func() error {
		return nil
	})
	assert.NoError(t, err)

	// 测试返回错误
	expected := errors.New("test error")
	err = manager.SafeExec(func() error {
		return expected
	})
	assert.Equal(t, expected, err)

	// 测试panic恢复
	err = manager.SafeExec(func() error {
		panic("test panic")
	})
	assert.Equal(t, CodePanic, Code(err))
	assert.Equal(t, 1, manager.Panics())
}
