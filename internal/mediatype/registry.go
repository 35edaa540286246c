package mediatype

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind 描述资源在播放页上的呈现方式。
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
	KindOther Kind = "other"
)

// Profile 记录单个扩展名的静态信息。
type Profile struct {
	Extension   string `json:"extension"`
	ContentType string `json:"content_type"`
	Kind        Kind   `json:"kind"`
}

var globalRegistry = newRegistry()

type registry struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func newRegistry() *registry {
	return &registry{profiles: make(map[string]Profile)}
}

// Register 将扩展名 profile 加入全局注册表，重复扩展名会返回错误。
func Register(p Profile) error {
	return globalRegistry.register(p)
}

// MustRegister 在注册失败时 panic，适合 init() 中调用。
func MustRegister(p Profile) {
	if err := Register(p); err != nil {
		panic(err)
	}
}

// Resolve 返回扩展名对应的 profile，ext 可带或不带前导点。
func Resolve(ext string) (Profile, bool) {
	return globalRegistry.resolve(ext)
}

// List 返回按扩展名排序的 profile 列表。
func List() []Profile {
	return globalRegistry.list()
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func (r *registry) register(p Profile) error {
	ext := normalizeExt(p.Extension)
	if ext == "" || ext == "." {
		return fmt.Errorf("extension is required")
	}
	if !strings.Contains(p.ContentType, "/") {
		return fmt.Errorf("extension %s: invalid content type %q", ext, p.ContentType)
	}
	p.Extension = ext
	if p.Kind == "" {
		p.Kind = KindOther
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[ext]; exists {
		return fmt.Errorf("extension %s already registered", ext)
	}
	r.profiles[ext] = p
	return nil
}

func (r *registry) resolve(ext string) (Profile, bool) {
	normalized := normalizeExt(ext)
	if normalized == "" {
		return Profile{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[normalized]
	return p, ok
}

func (r *registry) list() []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.profiles) == 0 {
		return nil
	}

	keys := make([]string, 0, len(r.profiles))
	for key := range r.profiles {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := make([]Profile, 0, len(keys))
	for _, key := range keys {
		result = append(result, r.profiles[key])
	}
	return result
}
