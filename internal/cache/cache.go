package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Cache 管理单个媒体库的打开句柄。同一 Key 的 Acquire/Put 通过 entryLock 串行化，
// 不同 Key 之间互不阻塞。
type Cache struct {
	name   string
	fs     afero.Fs
	logger *logrus.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[Key]*entry
	locks   map[Key]*entryLock
}

type entry struct {
	handle *Handle
	refs   int
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// New 基于任意 afero.Fs 构建缓存，fsys 的根即媒体库根目录。
func New(name string, fsys afero.Fs, logger *logrus.Logger) *Cache {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Cache{
		name:    name,
		fs:      fsys,
		logger:  logger,
		now:     time.Now,
		entries: make(map[Key]*entry),
		locks:   make(map[Key]*entryLock),
	}
}

// NewDir 以磁盘目录 root 作为媒体库根目录，目录不存在时自动创建。
func NewDir(name, root string, logger *logrus.Logger) (*Cache, error) {
	if root == "" {
		return nil, errors.New("library root required")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve library root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create library root: %w", err)
	}

	return New(name, afero.NewBasePathFs(afero.NewOsFs(), abs), logger), nil
}

// Name 返回所属媒体库名称。
func (c *Cache) Name() string {
	return c.name
}

// Acquire 返回 raw 对应的共享句柄：命中时直接复用并增加引用计数，
// 未命中时打开文件并写入缓存。调用方必须以 Release(handle.Key) 归还。
func (c *Cache) Acquire(ctx context.Context, raw string) (*Handle, error) {
	handle, _, err := c.Borrow(ctx, raw)
	return handle, err
}

// Borrow 与 Acquire 相同，额外返回句柄在调用前是否已经打开。
func (c *Cache) Borrow(ctx context.Context, raw string) (*Handle, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}

	key, err := ResolveKey(raw)
	if err != nil {
		acquireFailures.WithLabelValues(c.name, "invalid_path").Inc()
		return nil, false, err
	}

	unlock := c.lockEntry(key)
	defer unlock()

	if handle := c.borrow(key); handle != nil {
		handleHits.WithLabelValues(c.name).Inc()
		return handle, true, nil
	}
	handleMisses.WithLabelValues(c.name).Inc()

	handle, err := c.open(key)
	if err != nil {
		reason := "io"
		if errors.Is(err, ErrNotFound) {
			reason = "not_found"
		}
		acquireFailures.WithLabelValues(c.name, reason).Inc()
		return nil, false, err
	}

	c.mu.Lock()
	c.entries[key] = &entry{handle: handle, refs: 1}
	c.mu.Unlock()
	openHandles.WithLabelValues(c.name).Inc()

	c.logger.WithFields(logrus.Fields{
		"action":  "handle_open",
		"library": c.name,
		"key":     key.String(),
		"size":    handle.Size,
	}).Debug("resource handle opened")
	return handle, false, nil
}

// Release 归还一次 Acquire。最后一个借用方归还后关闭文件并移除条目；
// Key 未被缓存时返回 ErrNoSuchEntry。
func (c *Cache) Release(key Key) error {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoSuchEntry, key)
	}
	e.refs--
	if e.refs > 0 {
		c.mu.Unlock()
		return nil
	}
	delete(c.entries, key)
	c.mu.Unlock()
	openHandles.WithLabelValues(c.name).Dec()

	err := e.handle.close()
	c.logger.WithFields(logrus.Fields{
		"action":  "handle_close",
		"library": c.name,
		"key":     key.String(),
	}).Debug("resource handle closed")
	return err
}

// Len 返回当前打开的句柄数量。
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot 返回按 Key 排序的句柄列表。
func (c *Cache) Snapshot() []HandleInfo {
	c.mu.Lock()
	result := make([]HandleInfo, 0, len(c.entries))
	for key, e := range c.entries {
		result = append(result, HandleInfo{
			Key:      key,
			Size:     e.handle.Size,
			Refs:     e.refs,
			OpenedAt: e.handle.OpenedAt,
		})
	}
	c.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})
	return result
}

// Put 将 body 写入 raw 对应的文件。通过临时文件 + rename 保证原子性，
// 已打开的句柄继续读取旧内容，直到被释放。
func (c *Cache) Put(ctx context.Context, raw string, body io.Reader) (*Entry, error) {
	key, err := ResolveKey(raw)
	if err != nil {
		return nil, err
	}

	unlock := c.lockEntry(key)
	defer unlock()

	target := key.fsPath()
	dir := path.Dir(target)
	if err := c.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if info, err := c.fs.Stat(target); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInvalidPath, key)
	}

	tempFile, err := afero.TempFile(c.fs, dir, ".upload-*")
	if err != nil {
		return nil, err
	}
	tempName := tempFile.Name()

	written, err := copyWithContext(ctx, tempFile, body)
	closeErr := tempFile.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		c.fs.Remove(tempName)
		return nil, err
	}

	if err := c.fs.Rename(tempName, target); err != nil {
		c.fs.Remove(tempName)
		return nil, err
	}

	modTime := c.now().UTC()
	if info, err := c.fs.Stat(target); err == nil {
		modTime = info.ModTime()
	}

	c.logger.WithFields(logrus.Fields{
		"action":  "resource_put",
		"library": c.name,
		"key":     key.String(),
		"size":    written,
	}).Info("resource stored")

	return &Entry{Key: key, SizeBytes: written, ModTime: modTime}, nil
}

func (c *Cache) borrow(key Key) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.refs++
		return e.handle
	}
	return nil
}

func (c *Cache) open(key Key) (*Handle, error) {
	f, err := c.fs.Open(key.fsPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, key)
	}

	return &Handle{
		Key:      key,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		OpenedAt: c.now(),
		file:     f,
	}, nil
}

func (c *Cache) lockEntry(key Key) func() {
	c.mu.Lock()
	lock := c.locks[key]
	if lock == nil {
		lock = &entryLock{}
		c.locks[key] = lock
	}
	lock.refs++
	c.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		c.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(c.locks, key)
		}
		c.mu.Unlock()
	}
}

func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	var copied int64
	buf := make([]byte, 32*1024)
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		n, err := src.Read(buf)
		if n > 0 {
			w, wErr := dst.Write(buf[:n])
			copied += int64(w)
			if wErr != nil {
				return copied, wErr
			}
			if w < n {
				return copied, io.ErrShortWrite
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return copied, nil
			}
			return copied, err
		}
	}
}
