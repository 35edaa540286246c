package cache

import (
	"errors"
	"io"
	"time"

	"github.com/spf13/afero"
)

var (
	// ErrNotFound 表示资源不存在或者是目录。
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidPath 表示路径不在媒体库根目录之下。
	ErrInvalidPath = errors.New("invalid resource path")
	// ErrNoSuchEntry 表示 Release 的 Key 当前没有打开的句柄。
	ErrNoSuchEntry = errors.New("no such cache entry")
)

// Handle 是一个已打开资源的共享引用。Size 在打开时确定，之后不再变化；
// 文件本身由 Cache 独占，借用方只能通过 Section 读取。
type Handle struct {
	Key      Key
	Size     int64
	ModTime  time.Time
	OpenedAt time.Time

	file afero.File
}

// Section 返回 [start, end) 的独立读取器，使用 ReadAt 因此可以被多个请求并发持有。
func (h *Handle) Section(start, end int64) io.Reader {
	if start < 0 {
		start = 0
	}
	if end > h.Size {
		end = h.Size
	}
	if end < start {
		end = start
	}
	return io.NewSectionReader(h.file, start, end-start)
}

func (h *Handle) close() error {
	if h.file == nil {
		return nil
	}
	return h.file.Close()
}

// Entry 描述一次写入完成的资源。
type Entry struct {
	Key       Key       `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// HandleInfo 是 Snapshot 输出的只读视图，供诊断接口使用。
type HandleInfo struct {
	Key      Key       `json:"key"`
	Size     int64     `json:"size"`
	Refs     int       `json:"refs"`
	OpenedAt time.Time `json:"opened_at"`
}
