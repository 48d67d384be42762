// monitor.go
package file

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监控输入文件所在目录, 被跟踪文件变化时回调
type FileMonitor struct {
	watcher *fsnotify.Watcher
	files   map[string]time.Time // 被跟踪文件 -> 最后处理的修改时间
	mu      sync.Mutex
}

// NewFileMonitor watches the directories holding files.
func NewFileMonitor(files ...string) (*FileMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	m := &FileMonitor{watcher: watcher, files: make(map[string]time.Time)}
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		m.files[abs] = time.Time{}
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}
	return m, nil
}

// Watch 阻塞运行直到 ctx 取消或监控器关闭
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if m.changed(event.Name) {
				handler(event.Name)
			}
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// changed 过滤非跟踪文件以及同一修改时间的重复事件
func (m *FileMonitor) changed(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	last, tracked := m.files[abs]
	if !tracked {
		return false
	}

	info, err := os.Stat(abs)
	if err != nil {
		// 文件被移走或删除
		m.files[abs] = time.Time{}
		return true
	}
	if !info.ModTime().After(last) {
		return false
	}
	m.files[abs] = info.ModTime()
	return true
}

func (m *FileMonitor) Close() error {
	return m.watcher.Close()
}
