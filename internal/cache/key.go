package cache

import (
	"fmt"
	"path"
	"strings"
)

// Key 是相对媒体库根目录、以 '/' 分隔且已清洗的资源路径，例如 "movies/a.mp4"。
type Key string

// ResolveKey 把请求路径转换为 Key，拒绝逃逸出根目录、指向根目录本身或包含 NUL 的路径。
func ResolveKey(raw string) (Key, error) {
	if strings.ContainsRune(raw, 0) {
		return "", fmt.Errorf("%w: contains NUL", ErrInvalidPath)
	}

	cleaned := path.Clean(strings.TrimLeft(raw, "/"))
	switch {
	case cleaned == "." || cleaned == "":
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	case cleaned == ".." || strings.HasPrefix(cleaned, "../"):
		return "", fmt.Errorf("%w: %q escapes root", ErrInvalidPath, raw)
	}
	return Key(cleaned), nil
}

func (k Key) String() string {
	return string(k)
}

// Ext 返回小写扩展名（含前导点），没有扩展名时为空串。
func (k Key) Ext() string {
	return strings.ToLower(path.Ext(string(k)))
}

// Name 返回不含目录的文件名。
func (k Key) Name() string {
	return path.Base(string(k))
}

// fsPath 返回传给 afero.Fs 的绝对形式路径。
func (k Key) fsPath() string {
	return "/" + string(k)
}
