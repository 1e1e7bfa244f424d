package script

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"github.com/lomehong/silk/pkg/errors"
	"github.com/lomehong/silk/pkg/logging"
)

// task 域内登记的延续任务
type task struct {
	fn    func() error
	timer *time.Timer
}

// Domain 隔离执行域
//
// 在域内运行的代码以及它通过 setTimeout、setImmediate、process.nextTick
// 登记的延续任务所引发的错误（JS异常、Go错误、Go panic）都会交给handler，
// 不会传播给调用方。一个Domain只能Run一次。
type Domain struct {
	rt       *Runtime
	handler  errors.ErrorHandler
	recovery *errors.RecoveryManager
	logger   logging.Logger

	tasks  map[int64]*task
	ticks  []int64
	queue  []int64
	nextID int64

	fired  chan int64
	done   chan struct{}
	ran    bool
	caught int64
}

// NewDomain 创建隔离执行域并在运行时上安装定时器函数
func NewDomain(rt *Runtime, handler errors.ErrorHandler, recovery *errors.RecoveryManager) *Domain {
	if recovery == nil {
		recovery = errors.DefaultRecoveryManager(rt.logger)
	}
	if handler == nil {
		handler = errors.NewLogErrorHandler(rt.logger)
	}

	d := &Domain{
		rt:       rt,
		handler:  handler,
		recovery: recovery,
		logger:   rt.logger.Named("domain"),
		tasks:    make(map[int64]*task),
		fired:    make(chan int64, 64),
		done:     make(chan struct{}),
	}
	d.install()
	return d
}

// install 安装 setTimeout/clearTimeout/setImmediate/clearImmediate/process.nextTick
func (d *Domain) install() {
	vm := d.rt.vm
	_ = vm.Set("setTimeout", d.setTimeout)
	_ = vm.Set("clearTimeout", d.clear)
	_ = vm.Set("setImmediate", d.setImmediate)
	_ = vm.Set("clearImmediate", d.clear)
	_ = d.rt.process.Set("nextTick", d.nextTick)
}

// Run 在域内执行fn，然后依次执行登记的延续任务，直到没有待执行任务或ctx结束
// 域内的错误交给handler处理，返回值只反映ctx
func (d *Domain) Run(ctx context.Context, fn func() error) error {
	if d.ran {
		return stderrors.New("domain已经运行过")
	}
	d.ran = true
	defer close(d.done)

	if err := ctx.Err(); err != nil {
		return err
	}

	stop := d.interruptOnDone(ctx)
	defer stop()

	d.exec(ctx, fn)
	for {
		for len(d.ticks)+len(d.queue) > 0 {
			if err := ctx.Err(); err != nil {
				d.cancelAll()
				return err
			}
			id := d.next()
			t, ok := d.tasks[id]
			if !ok {
				continue
			}
			delete(d.tasks, id)
			d.exec(ctx, t.fn)
		}

		if len(d.tasks) == 0 {
			return ctx.Err()
		}

		select {
		case id := <-d.fired:
			d.queue = append(d.queue, id)
		case <-ctx.Done():
			d.cancelAll()
			return ctx.Err()
		}
	}
}

// next 取出下一个就绪任务，nextTick任务优先
func (d *Domain) next() int64 {
	if len(d.ticks) > 0 {
		id := d.ticks[0]
		d.ticks = d.ticks[1:]
		return id
	}
	id := d.queue[0]
	d.queue = d.queue[1:]
	return id
}

// Errors 返回域内捕获的错误数量
func (d *Domain) Errors() int {
	return int(atomic.LoadInt64(&d.caught))
}

// Pending 返回尚未执行的延续任务数量
func (d *Domain) Pending() int {
	return len(d.tasks)
}

// exec 执行单个任务并把错误交给handler
func (d *Domain) exec(ctx context.Context, fn func() error) {
	err := d.recovery.SafeExec(fn)
	if err == nil {
		return
	}

	var interrupted *goja.InterruptedError
	if ctx.Err() != nil && stderrors.As(err, &interrupted) {
		return
	}

	var ex *goja.Exception
	if stderrors.As(err, &ex) {
		err = errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeScriptError, "脚本抛出异常")
	}

	atomic.AddInt64(&d.caught, 1)
	d.logger.Debug("域内捕获错误", "error", err)
	if rest := d.handler.Handle(err); rest != nil && !errors.IsHandled(rest) {
		d.logger.Warn("域内错误没有处理器接收", "error", rest)
	}
}

// interruptOnDone ctx结束时中断正在执行的脚本
func (d *Domain) interruptOnDone(ctx context.Context) func() {
	finished := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			d.rt.vm.Interrupt(ctx.Err())
		case <-finished:
		}
	}()
	return func() {
		close(finished)
		<-exited
		d.rt.vm.ClearInterrupt()
	}
}

// cancelAll 取消所有待执行任务
func (d *Domain) cancelAll() {
	for id, t := range d.tasks {
		if t.timer != nil {
			t.timer.Stop()
		}
		delete(d.tasks, id)
	}
	d.ticks = nil
	d.queue = nil
}

// schedule 登记延续任务，delay<0表示立即排队
func (d *Domain) schedule(fn func() error, delay time.Duration) int64 {
	d.nextID++
	id := d.nextID
	t := &task{fn: fn}
	d.tasks[id] = t

	if delay < 0 {
		d.queue = append(d.queue, id)
		return id
	}

	t.timer = time.AfterFunc(delay, func() {
		select {
		case d.fired <- id:
		case <-d.done:
		}
	})
	return id
}

// callback 把JS回调包装为任务
func (d *Domain) callback(call goja.FunctionCall, argStart int) func() error {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(d.rt.vm.NewTypeError("回调必须是函数"))
	}

	var args []goja.Value
	if len(call.Arguments) > argStart {
		args = append(args, call.Arguments[argStart:]...)
	}
	return func() error {
		_, err := fn(goja.Undefined(), args...)
		return err
	}
}

func (d *Domain) setTimeout(call goja.FunctionCall) goja.Value {
	fn := d.callback(call, 2)
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	if delay < 0 {
		delay = 0
	}
	return d.rt.vm.ToValue(d.schedule(fn, delay))
}

func (d *Domain) setImmediate(call goja.FunctionCall) goja.Value {
	return d.rt.vm.ToValue(d.schedule(d.callback(call, 1), -1))
}

func (d *Domain) nextTick(call goja.FunctionCall) goja.Value {
	d.nextID++
	d.tasks[d.nextID] = &task{fn: d.callback(call, 1)}
	d.ticks = append(d.ticks, d.nextID)
	return goja.Undefined()
}

func (d *Domain) clear(call goja.FunctionCall) goja.Value {
	id := call.Argument(0).ToInteger()
	if t, ok := d.tasks[id]; ok {
		if t.timer != nil {
			t.timer.Stop()
		}
		delete(d.tasks, id)
	}
	return goja.Undefined()
}
