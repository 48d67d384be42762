// cache.go
package file

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"FlightsDashboard/src/dataset"
)

// LoadFunc produces a fresh dataset from disk.
type LoadFunc func() (*dataset.Dataset, error)

// DatasetCache 数据集缓存: 以输入文件的(大小, 修改时间)为键, 键变化或手动失效时重新加载
type DatasetCache struct {
	paths []string
	load  LoadFunc

	mu    sync.Mutex // 串行化加载
	ds    *dataset.Dataset
	key   string
	stale bool
	loads int

	failedKey string // 上次加载失败时的键, 键不变不再重试
	failErr   error
}

// NewDatasetCache 创建缓存, paths 为参与指纹计算的输入文件
func NewDatasetCache(load LoadFunc, paths ...string) *DatasetCache {
	return &DatasetCache{paths: paths, load: load}
}

// Get returns the cached dataset, reloading it when an input file changed since the
// last load or the cache was invalidated. When a reload fails and an earlier load
// succeeded, the earlier dataset is returned together with the error; the same
// inputs are not retried until they change again or the cache is invalidated.
func (c *DatasetCache) Get() (*dataset.Dataset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key, err := statKey(c.paths)
	if err != nil {
		return c.ds, err
	}
	if c.ds != nil && !c.stale && key == c.key {
		return c.ds, nil
	}
	if !c.stale && c.failErr != nil && key == c.failedKey {
		return c.ds, c.failErr
	}

	ds, err := c.load()
	if err != nil {
		c.failedKey, c.failErr, c.stale = key, fmt.Errorf("load dataset: %w", err), false
		return c.ds, c.failErr
	}
	c.ds, c.key, c.stale = ds, key, false
	c.failedKey, c.failErr = "", nil
	c.loads++
	return ds, nil
}

// Invalidate 标记缓存失效, 下次 Get 时重新加载
func (c *DatasetCache) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}

// Changed reports whether the input files differ from both the cached fingerprint
// and the last failed load.
func (c *DatasetCache) Changed() bool {
	key, err := statKey(c.paths)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil || c.stale {
		return true
	}
	if c.failErr != nil && key == c.failedKey {
		return false
	}
	return c.ds == nil || key != c.key
}

// Loads 返回实际从磁盘加载的次数
func (c *DatasetCache) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// Paths returns the tracked input files.
func (c *DatasetCache) Paths() []string {
	return append([]string(nil), c.paths...)
}

func statKey(paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("stat input: %w", err)
		}
		fmt.Fprintf(&b, "%s:%d:%d;", p, info.Size(), info.ModTime().UnixNano())
	}
	return b.String(), nil
}
