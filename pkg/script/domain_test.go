package script

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lomehong/silk/pkg/errors"
	"github.com/lomehong/silk/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDomain(t *testing.T) (*Runtime, *Domain, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rt := NewRuntime(RuntimeOptions{Stdout: &stdout, Stderr: &stderr})
	handler := errors.NewTraceErrorHandler(&stderr, Trace)
	d := NewDomain(rt, handler, errors.DefaultRecoveryManager(logging.NewNullLogger()))
	return rt, d, &stdout, &stderr
}

func runScript(rt *Runtime, src string) func() error {
	return func() error {
		_, err := rt.RunString("init.js", src)
		return err
	}
}

func TestDomain_SyncThrowIsCaught(t *testing.T) {
	rt, d, stdout, stderr := newTestDomain(t)

	err := d.Run(context.Background(), runScript(rt, `throw new Error("init failed");`))
	require.NoError(t, err)

	assert.Equal(t, 1, d.Errors())
	assert.Equal(t, 1, strings.Count(stderr.String(), "init failed"))
	assert.Empty(t, stdout.String())
}

func TestDomain_AsyncContinuationsRunInOrder(t *testing.T) {
	rt, d, stdout, _ := newTestDomain(t)

	err := d.Run(context.Background(), runScript(rt, `
		console.log("sync");
		setTimeout(function(x) { console.log("timeout " + x); }, 20, "a");
		setImmediate(function() { console.log("immediate"); });
		process.nextTick(function() { console.log("tick"); });
	`))
	require.NoError(t, err)

	assert.Equal(t, "sync\ntick\nimmediate\ntimeout a\n", stdout.String())
	assert.Equal(t, 0, d.Errors())
	assert.Equal(t, 0, d.Pending())
}

func TestDomain_AsyncThrowIsCaught(t *testing.T) {
	rt, d, stdout, stderr := newTestDomain(t)

	err := d.Run(context.Background(), runScript(rt, `
		setTimeout(function() { throw new Error("late failure"); }, 5);
		setTimeout(function() { console.log("still running"); }, 30);
	`))
	require.NoError(t, err)

	assert.Equal(t, 1, d.Errors())
	assert.Contains(t, stderr.String(), "late failure")
	assert.Equal(t, "still running\n", stdout.String())
}

func TestDomain_ClearTimeout(t *testing.T) {
	rt, d, stdout, _ := newTestDomain(t)

	err := d.Run(context.Background(), runScript(rt, `
		var id = setTimeout(function() { console.log("never"); }, 10);
		clearTimeout(id);
		var im = setImmediate(function() { console.log("never"); });
		clearImmediate(im);
	`))
	require.NoError(t, err)
	assert.Empty(t, stdout.String())
}

func TestDomain_GoPanicIsCaught(t *testing.T) {
	_, d, _, stderr := newTestDomain(t)

	err := d.Run(context.Background(), func() error {
		panic("native failure")
	})
	require.NoError(t, err)

	assert.Equal(t, 1, d.Errors())
	assert.Contains(t, stderr.String(), "[PANIC] panic: native failure")
}

func TestDomain_ErrorCodes(t *testing.T) {
	rt := NewRuntime(RuntimeOptions{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}})
	recovery := errors.DefaultRecoveryManager(logging.NewNullLogger())

	var codes []string
	handler := errors.ErrorHandlerFunc(func(err error) error {
		codes = append(codes, errors.Code(err))
		return nil
	})
	d := NewDomain(rt, handler, recovery)

	err := d.Run(context.Background(), func() error {
		_, err := rt.RunString("init.js", `setImmediate(function() { throw new Error("later"); });`)
		if err != nil {
			return err
		}
		panic("native failure")
	})
	require.NoError(t, err)

	assert.Equal(t, []string{errors.CodePanic, errors.CodeScriptError}, codes)
	assert.Equal(t, 1, recovery.Panics())
	assert.Equal(t, 2, d.Errors())
}

func TestDomain_GoErrorIsCaught(t *testing.T) {
	_, d, _, stderr := newTestDomain(t)

	err := d.Run(context.Background(), func() error {
		return fmt.Errorf("plain failure")
	})
	require.NoError(t, err)
	assert.Equal(t, "plain failure\n", stderr.String())
}

func TestDomain_TypeErrorForNonFunction(t *testing.T) {
	rt, d, _, stderr := newTestDomain(t)

	require.NoError(t, d.Run(context.Background(), runScript(rt, `setTimeout("not a function", 1);`)))
	assert.Equal(t, 1, d.Errors())
	assert.Contains(t, stderr.String(), "TypeError")
}

func TestDomain_ContextCancelStopsPendingTimers(t *testing.T) {
	rt, d, stdout, _ := newTestDomain(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Run(ctx, runScript(rt, `setTimeout(function() { console.log("too late"); }, 10000);`))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, d.Pending())
	assert.Empty(t, stdout.String())
	assert.Equal(t, 0, d.Errors())
}

func TestDomain_ContextCancelInterruptsScript(t *testing.T) {
	rt, d, _, stderr := newTestDomain(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Run(ctx, runScript(rt, `for (;;) {}`))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, d.Errors())
	assert.Empty(t, stderr.String())

	// 中断状态已清除，运行时仍然可用
	v, err := rt.RunString("after.js", `1 + 1`)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.ToInteger())
}

func TestDomain_RunOnce(t *testing.T) {
	_, d, _, _ := newTestDomain(t)
	require.NoError(t, d.Run(context.Background(), func() error { return nil }))
	assert.Error(t, d.Run(context.Background(), func() error { return nil }))
}

func TestDomain_RequireThrowingModule(t *testing.T) {
	rt, d, stdout, stderr := newTestDomain(t)
	path := filepath.Join(t.TempDir(), "init.js")
	writeFile(t, path, "var x = 1;\nthrow new Error(\"broken init\");\n")

	err := d.Run(context.Background(), func() error {
		_, err := rt.Require(path)
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, 1, d.Errors())
	assert.Equal(t, 1, strings.Count(stderr.String(), "broken init"))
	assert.Empty(t, stdout.String())
}

func TestTrace(t *testing.T) {
	rt := NewRuntime(RuntimeOptions{})
	_, err := rt.RunString("trace.js", `throw new Error("traced")`)
	require.Error(t, err)

	trace := Trace(err)
	assert.True(t, strings.HasPrefix(trace, "Error: traced"))
	assert.Contains(t, trace, "trace.js")

	assert.Equal(t, "plain", Trace(fmt.Errorf("plain")))
	assert.Empty(t, Trace(nil))
}
