package boot

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/lomehong/silk/pkg/config"
	"github.com/lomehong/silk/pkg/extension"
	"github.com/lomehong/silk/pkg/logging"
	"golang.org/x/time/rate"
)

// Watcher 在init文件创建或修改后重新运行它
//
// 每次重新运行都使用新的运行时和隔离执行域。连续多次保存最多每个间隔运行一次，
// 期间的变更合并为一次运行。
type Watcher struct {
	loader   *Loader
	mod      extension.Module
	path     string
	limiter  *rate.Limiter
	logger   logging.Logger
	debounce time.Duration
	trigger  chan struct{}
	runs     int64
}

// NewWatcher 创建init文件监视器，interval为两次运行之间的最小间隔
func NewWatcher(loader *Loader, mod extension.Module, path string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = config.DefaultWatchInterval
	}

	limiter := rate.NewLimiter(rate.Every(interval), 1)
	// 启动时已经运行过一次
	limiter.Allow()

	return &Watcher{
		loader:   loader,
		mod:      mod,
		path:     path,
		limiter:  limiter,
		logger:   loader.logger.Named("watch"),
		debounce: 100 * time.Millisecond,
		trigger:  make(chan struct{}, 1),
	}
}

// Runs 返回重新运行的次数
func (w *Watcher) Runs() int {
	return int(atomic.LoadInt64(&w.runs))
}

// Run 监视init文件直到ctx结束，每次重新运行后调用onRun（可为nil）
func (w *Watcher) Run(ctx context.Context, onRun func(*InitResult)) error {
	fw, err := config.NewFileWatcher(w.logger)
	if err != nil {
		return err
	}
	fw.SetDebounceTime(w.debounce)
	defer fw.Stop()

	if err := fw.Watch(w.path, w.onChange); err != nil {
		return err
	}
	fw.Start()
	w.logger.Info("开始监视init文件", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.trigger:
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return nil
		}
		// 等待期间到达的变更合并到这次运行
		select {
		case <-w.trigger:
		default:
		}

		result, err := w.loader.RunInit(ctx, w.mod, w.path)
		if err != nil {
			if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}

		atomic.AddInt64(&w.runs, 1)
		w.logger.Debug("init文件已重新运行", "path", w.path, "skipped", result.Skipped, "errors", result.Errors)
		if onRun != nil {
			onRun(result)
		}
	}
}

// onChange 文件变更回调，删除和重命名不触发运行
func (w *Watcher) onChange(event config.ChangeEvent) error {
	switch event.Type {
	case config.ChangeTypeCreate, config.ChangeTypeUpdate:
	default:
		return nil
	}

	select {
	case w.trigger <- struct{}{}:
	default:
	}
	return nil
}
