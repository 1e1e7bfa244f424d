package script

import (
	stderrors "errors"
	"strings"

	"github.com/dop251/goja"
	"github.com/lomehong/silk/pkg/errors"
)

// Trace 渲染错误的跟踪信息
// JS异常输出异常值和JS调用栈，其他错误交给errors.DefaultFormatter
func Trace(err error) string {
	if err == nil {
		return ""
	}

	var ex *goja.Exception
	if stderrors.As(err, &ex) {
		return strings.TrimRight(ex.String(), "\n")
	}
	return errors.DefaultFormatter(err)
}
