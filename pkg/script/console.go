package script

import (
	"io"
	"sync"

	"github.com/dop251/goja_nodejs/console"
	"github.com/dop251/goja_nodejs/require"
)

// consoleLoader console模块，log/info/debug写到stdout，warn/error写到stderr
// 参数按 util.format 的规则格式化
func consoleLoader(stdout, stderr io.Writer) require.ModuleLoader {
	var mu sync.Mutex
	line := func(w io.Writer) func(string) {
		return func(s string) {
			mu.Lock()
			defer mu.Unlock()
			_, _ = io.WriteString(w, s+"\n")
		}
	}

	return console.RequireWithPrinter(console.StdPrinter{
		StdoutPrint: line(stdout),
		StderrPrint: line(stderr),
	})
}
