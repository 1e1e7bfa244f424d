package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lomehong/silk/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWatcher(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "init.js")
	require.NoError(t, os.WriteFile(testFile, []byte("// v1"), 0644))

	watcher, err := NewFileWatcher(logging.NewNullLogger())
	require.NoError(t, err)
	defer watcher.Stop()

	eventCh := make(chan ChangeEvent, 1)
	require.NoError(t, watcher.Watch(testFile, func(event ChangeEvent) error {
		eventCh <- event
		return nil
	}))
	watcher.Start()

	time.Sleep(100 * time.Millisecond) // 等待监视器启动
	require.NoError(t, os.WriteFile(testFile, []byte("// v2"), 0644))

	select {
	case event := <-eventCh:
		assert.Equal(t, ChangeTypeUpdate, event.Type)
		assert.Equal(t, testFile, event.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("超时等待事件")
	}

	require.NoError(t, watcher.Unwatch(testFile))
	assert.Empty(t, watcher.WatchedFiles())
}

func TestFileWatcher_FileCreatedLater(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "init.js")

	watcher, err := NewFileWatcher(nil)
	require.NoError(t, err)
	defer watcher.Stop()

	eventCh := make(chan ChangeEvent, 1)
	require.NoError(t, watcher.Watch(testFile, func(event ChangeEvent) error {
		eventCh <- event
		return nil
	}))
	watcher.Start()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(testFile, []byte("// new"), 0644))

	select {
	case event := <-eventCh:
		assert.Contains(t, []ChangeType{ChangeTypeCreate, ChangeTypeUpdate}, event.Type)
		assert.Equal(t, testFile, event.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("超时等待事件")
	}
}

func TestFileWatcher_IgnoresSiblings(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "init.js")
	sibling := filepath.Join(tempDir, "keymap.yml")

	watcher, err := NewFileWatcher(nil)
	require.NoError(t, err)
	defer watcher.Stop()

	eventCh := make(chan ChangeEvent, 1)
	require.NoError(t, watcher.Watch(testFile, func(event ChangeEvent) error {
		eventCh <- event
		return nil
	}))
	watcher.Start()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(sibling, []byte("a: b"), 0644))

	select {
	case event := <-eventCh:
		t.Fatalf("不应收到事件: %v", event)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestFileWatcher_MultipleHandlers(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "init.js")
	require.NoError(t, os.WriteFile(testFile, []byte("// v1"), 0644))

	watcher, err := NewFileWatcher(nil)
	require.NoError(t, err)
	defer watcher.Stop()

	eventCh1 := make(chan ChangeEvent, 1)
	eventCh2 := make(chan ChangeEvent, 1)
	require.NoError(t, watcher.Watch(testFile, func(event ChangeEvent) error {
		eventCh1 <- event
		return nil
	}))
	require.NoError(t, watcher.Watch(testFile, func(event ChangeEvent) error {
		eventCh2 <- event
		return fmt.Errorf("处理失败不影响其他处理器")
	}))
	assert.Len(t, watcher.WatchedFiles(), 1)
	watcher.Start()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(testFile, []byte("// v2"), 0644))

	for i, ch := range []chan ChangeEvent{eventCh1, eventCh2} {
		select {
		case event := <-ch:
			assert.Equal(t, testFile, event.Path)
		case <-time.After(2 * time.Second):
			t.Fatalf("超时等待事件%d", i+1)
		}
	}
}

func TestFileWatcher_Debounce(t *testing.T) {
	tempDir := t.TempDir()
	testFile := filepath.Join(tempDir, "init.js")
	require.NoError(t, os.WriteFile(testFile, []byte("// v"), 0644))

	watcher, err := NewFileWatcher(nil)
	require.NoError(t, err)
	defer watcher.Stop()

	watcher.SetDebounceTime(200 * time.Millisecond)

	var eventCount int
	var mu sync.Mutex
	require.NoError(t, watcher.Watch(testFile, func(event ChangeEvent) error {
		mu.Lock()
		eventCount++
		mu.Unlock()
		return nil
	}))
	watcher.Start()

	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(testFile, []byte(fmt.Sprintf("// v%d", i)), 0644))
		time.Sleep(50 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	count := eventCount
	mu.Unlock()
	assert.Equal(t, 1, count, "应该只收到一个事件（去抖后）")
}

func TestFileWatcher_MissingDir(t *testing.T) {
	root := t.TempDir()
	testFile := filepath.Join(root, "missing", "nested", "init.js")

	watcher, err := NewFileWatcher(nil)
	require.NoError(t, err)
	defer watcher.Stop()

	eventCh := make(chan ChangeEvent, 4)
	require.NoError(t, watcher.Watch(testFile, func(event ChangeEvent) error {
		eventCh <- event
		return nil
	}))
	assert.Equal(t, []string{testFile}, watcher.WatchedFiles())
	watcher.Start()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.MkdirAll(filepath.Dir(testFile), 0755))
	require.NoError(t, os.WriteFile(testFile, []byte("// new"), 0644))

	select {
	case event := <-eventCh:
		assert.Contains(t, []ChangeType{ChangeTypeCreate, ChangeTypeUpdate}, event.Type)
		assert.Equal(t, testFile, event.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("超时等待事件")
	}

	require.NoError(t, watcher.Unwatch(testFile))
	assert.Empty(t, watcher.WatchedFiles())
}

func TestNearestDir(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, root, nearestDir(root))
	assert.Equal(t, root, nearestDir(filepath.Join(root, "a", "b")))
}

func TestChangeTypeString(t *testing.T) {
	assert.Equal(t, "Create", ChangeTypeCreate.String())
	assert.Equal(t, "Update", ChangeTypeUpdate.String())
	assert.Equal(t, "Delete", ChangeTypeDelete.String())
	assert.Equal(t, "Rename", ChangeTypeRename.String())
	assert.Equal(t, "Chmod", ChangeTypeChmod.String())
	assert.Equal(t, "Unknown", ChangeType(99).String())
}
