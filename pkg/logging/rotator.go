package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// RotatingFile 按大小轮转的日志文件
// 超过maxSize后依次重命名为 file.1、file.2 ...，最多保留maxBackups个备份
type RotatingFile struct {
	path       string
	maxSize    int64
	maxBackups int
	size       int64
	file       *os.File
	mu         sync.Mutex
}

// NewRotatingFile 创建轮转日志文件，maxSize<=0时不轮转
func NewRotatingFile(path string, maxSize int64, maxBackups int) *RotatingFile {
	return &RotatingFile{
		path:       path,
		maxSize:    maxSize,
		maxBackups: maxBackups,
	}
}

// Write 实现io.Writer接口
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}

	if r.maxSize > 0 && r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Close 关闭日志文件
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// open 打开日志文件
func (r *RotatingFile) open() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}

	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("打开日志文件失败: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("获取日志文件信息失败: %w", err)
	}

	r.file = file
	r.size = info.Size()
	return nil
}

// rotate 关闭当前文件，移动备份后重新打开
func (r *RotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("关闭日志文件失败: %w", err)
	}
	r.file = nil

	if r.maxBackups <= 0 {
		if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("删除日志文件失败: %w", err)
		}
		return r.open()
	}

	// 最旧的备份被覆盖
	for i := r.maxBackups - 1; i >= 1; i-- {
		from := r.backupName(i)
		if _, err := os.Stat(from); err == nil {
			if err := os.Rename(from, r.backupName(i+1)); err != nil {
				return fmt.Errorf("重命名日志备份失败: %w", err)
			}
		}
	}
	if err := os.Rename(r.path, r.backupName(1)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("重命名日志文件失败: %w", err)
	}

	return r.open()
}

func (r *RotatingFile) backupName(i int) string {
	return fmt.Sprintf("%s.%d", r.path, i)
}
