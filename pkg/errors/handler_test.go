package errors

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/lomehong/silk/pkg/logging"
	"github.com/stretchr/testify/assert"
)

func TestTraceErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewTraceErrorHandler(&buf, func(err error) string {
		return "trace: " + err.Error()
	})

	assert.Nil(t, handler.Handle(errors.New("boom")))
	assert.Equal(t, "trace: boom\n", buf.String())

	assert.Nil(t, handler.Handle(nil))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Equal(t, "trace", handler.Name())
}

func TestTraceErrorHandler_DefaultFormatter(t *testing.T) {
	var buf bytes.Buffer
	handler := NewTraceErrorHandler(&buf, nil)

	handler.Handle(New(ErrorTypeExternal, CodeScriptError, "脚本错误"))
	assert.True(t, strings.HasPrefix(buf.String(), "[SCRIPT_ERROR] 脚本错误\n"))
	assert.Contains(t, buf.String(), "TestTraceErrorHandler_DefaultFormatter")
}

func TestLogErrorHandler(t *testing.T) {
	handler := NewLogErrorHandler(logging.NewNullLogger())

	err := New(ErrorTypeExternal, CodeScriptError, "脚本错误")
	assert.Equal(t, err, handler.Handle(err))
	assert.True(t, IsHandled(err))

	plain := errors.New("plain")
	assert.Equal(t, plain, handler.Handle(plain))
}

func TestErrorHandlerChain(t *testing.T) {
	var buf bytes.Buffer
	var seen []error
	chain := NewErrorHandlerChain(NewLogErrorHandler(logging.NewNullLogger()))

	err := errors.New("boom")
	assert.Equal(t, err, chain.Handle(err))

	chain.AddHandler(ErrorHandlerFunc(func(err error) error {
		seen = append(seen, err)
		return err
	}))
	chain.AddHandler(NewTraceErrorHandler(&buf, nil))

	assert.Nil(t, chain.Handle(err))
	assert.Equal(t, []error{err}, seen)
	assert.Equal(t, "boom\n", buf.String())
	assert.Nil(t, chain.Handle(nil))
}
