package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lomehong/silk/pkg/logging"
)

// ChangeType 表示文件变更类型
type ChangeType int

// 预定义文件变更类型
const (
	ChangeTypeCreate ChangeType = iota // 创建
	ChangeTypeUpdate                   // 更新
	ChangeTypeDelete                   // 删除
	ChangeTypeRename                   // 重命名
	ChangeTypeChmod                    // 权限变更
)

// String 返回变更类型的字符串表示
func (ct ChangeType) String() string {
	switch ct {
	case ChangeTypeCreate:
		return "Create"
	case ChangeTypeUpdate:
		return "Update"
	case ChangeTypeDelete:
		return "Delete"
	case ChangeTypeRename:
		return "Rename"
	case ChangeTypeChmod:
		return "Chmod"
	default:
		return "Unknown"
	}
}

// ChangeEvent 文件变更事件
type ChangeEvent struct {
	Type ChangeType
	Path string
	Time time.Time
}

// ChangeHandler 文件变更处理器
type ChangeHandler func(event ChangeEvent) error

// FileWatcher 文件监视器
//
// 监视的是文件所在目录，编辑器以"写临时文件再重命名"方式保存时也能收到事件。
// 文件所在目录尚不存在时先监视最近的已存在上级目录，目录创建后再逐级下移。
// 同一文件在去抖时间内的多次事件合并为一次。
type FileWatcher struct {
	watcher      *fsnotify.Watcher
	handlers     map[string][]ChangeHandler
	anchors      map[string]string
	dirs         map[string]int
	logger       logging.Logger
	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	debounceTime time.Duration
	events       chan fsnotify.Event
	started      bool
}

// NewFileWatcher 创建一个新的文件监视器
func NewFileWatcher(logger logging.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = logging.NewNullLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("创建文件监视器失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &FileWatcher{
		watcher:      watcher,
		handlers:     make(map[string][]ChangeHandler),
		anchors:      make(map[string]string),
		dirs:         make(map[string]int),
		logger:       logger.Named("watcher"),
		ctx:          ctx,
		cancel:       cancel,
		debounceTime: 100 * time.Millisecond,
		events:       make(chan fsnotify.Event, 100),
	}, nil
}

// Watch 监视文件并注册处理器
func (w *FileWatcher) Watch(path string, handler ChangeHandler) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("解析路径失败: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.handlers[path]; !exists {
		anchor := nearestDir(filepath.Dir(path))
		if err := w.addDir(anchor); err != nil {
			return err
		}
		w.anchors[path] = anchor
		if anchor != filepath.Dir(path) {
			w.logger.Debug("文件所在目录不存在，监视上级目录", "path", path, "dir", anchor)
		}
	}

	w.handlers[path] = append(w.handlers[path], handler)
	w.logger.Debug("添加监视文件", "path", path)
	return nil
}

// Unwatch 取消监视文件并移除其处理器
func (w *FileWatcher) Unwatch(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("解析路径失败: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.handlers[path]; !exists {
		return nil
	}
	delete(w.handlers, path)

	anchor := w.anchors[path]
	delete(w.anchors, path)
	if err := w.removeDir(anchor); err != nil {
		return err
	}

	w.logger.Debug("移除监视文件", "path", path)
	return nil
}

// addDir 增加目录引用计数，首次引用时开始监视，调用方持有写锁
func (w *FileWatcher) addDir(dir string) error {
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("添加监视路径失败: %w", err)
		}
	}
	w.dirs[dir]++
	return nil
}

// removeDir 减少目录引用计数，没有引用时停止监视，调用方持有写锁
func (w *FileWatcher) removeDir(dir string) error {
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	if err := w.watcher.Remove(dir); err != nil {
		return fmt.Errorf("移除监视路径失败: %w", err)
	}
	return nil
}

// relocate 目录创建后把监视点下移到最近的已存在目录
// 返回下移后已经存在的被监视文件，它们的创建事件可能已经错过
func (w *FileWatcher) relocate() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var existing []string
	for path, anchor := range w.anchors {
		dir := filepath.Dir(path)
		if anchor == dir {
			continue
		}
		next := nearestDir(dir)
		if next == anchor {
			continue
		}
		if err := w.addDir(next); err != nil {
			w.logger.Warn("下移监视目录失败", "dir", next, "error", err)
			continue
		}
		if err := w.removeDir(anchor); err != nil {
			w.logger.Debug("移除上级监视目录失败", "dir", anchor, "error", err)
		}
		w.anchors[path] = next
		w.logger.Debug("监视目录下移", "path", path, "dir", next)

		if next == dir {
			if _, err := os.Stat(path); err == nil {
				existing = append(existing, path)
			}
		}
	}
	return existing
}

// nearestDir 返回dir自身或其最近的已存在上级目录
func nearestDir(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// Start 启动监视
func (w *FileWatcher) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	w.logger.Debug("启动文件监视")

	w.wg.Add(2)
	go w.collectEvents()
	go w.processEvents()
}

// Stop 停止监视
func (w *FileWatcher) Stop() {
	w.logger.Debug("停止文件监视")
	w.cancel()
	w.wg.Wait()
	_ = w.watcher.Close()
}

// SetDebounceTime 设置去抖时间
func (w *FileWatcher) SetDebounceTime(duration time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debounceTime = duration
}

// WatchedFiles 获取监视的文件
func (w *FileWatcher) WatchedFiles() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	paths := make([]string, 0, len(w.handlers))
	for path := range w.handlers {
		paths = append(paths, path)
	}
	return paths
}

// collectEvents 收集事件
func (w *FileWatcher) collectEvents() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			pending := []fsnotify.Event{event}
			if event.Op&fsnotify.Create == fsnotify.Create {
				for _, path := range w.relocate() {
					pending = append(pending, fsnotify.Event{Name: path, Op: fsnotify.Create})
				}
			}
			for _, e := range pending {
				select {
				case w.events <- e:
				case <-w.ctx.Done():
					return
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("监视器错误", "error", err)
		case <-w.ctx.Done():
			return
		}
	}
}

// processEvents 按文件去抖后分发事件
func (w *FileWatcher) processEvents() {
	defer w.wg.Done()

	w.mu.RLock()
	debounce := w.debounceTime
	w.mu.RUnlock()

	pending := make(map[string]fsnotify.Event)
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case event := <-w.events:
			pending[event.Name] = event
			timer.Reset(debounce)
		case <-timer.C:
			for _, event := range pending {
				w.handleEvent(event)
			}
			pending = make(map[string]fsnotify.Event)
		case <-w.ctx.Done():
			timer.Stop()
			return
		}
	}
}

// handleEvent 处理单个事件
func (w *FileWatcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	w.mu.RLock()
	handlers := append([]ChangeHandler(nil), w.handlers[path]...)
	w.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	var changeType ChangeType
	switch {
	case event.Op&fsnotify.Create == fsnotify.Create:
		changeType = ChangeTypeCreate
	case event.Op&fsnotify.Write == fsnotify.Write:
		changeType = ChangeTypeUpdate
	case event.Op&fsnotify.Remove == fsnotify.Remove:
		changeType = ChangeTypeDelete
	case event.Op&fsnotify.Rename == fsnotify.Rename:
		changeType = ChangeTypeRename
	case event.Op&fsnotify.Chmod == fsnotify.Chmod:
		changeType = ChangeTypeChmod
	default:
		w.logger.Warn("未知事件类型", "op", event.Op.String())
		return
	}

	w.logger.Debug("收到文件事件", "path", path, "op", event.Op.String())
	changeEvent := ChangeEvent{
		Type: changeType,
		Path: path,
		Time: time.Now(),
	}
	for _, handler := range handlers {
		if err := handler(changeEvent); err != nil {
			w.logger.Error("处理文件变更失败", "path", path, "error", err)
		}
	}
}
