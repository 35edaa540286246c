package cache

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestAcquireTwiceReturnsSameHandle(t *testing.T) {
	fsys := newCountingFs(t, map[string]string{"/movies/a.mp4": "0123456789"})
	c := New("videos", fsys, nil)

	first, err := c.Acquire(context.Background(), "/movies/a.mp4")
	if err != nil {
		t.Fatalf("acquire error: %v", err)
	}
	second, err := c.Acquire(context.Background(), "movies/a.mp4")
	if err != nil {
		t.Fatalf("second acquire error: %v", err)
	}
	if first != second {
		t.Fatalf("expected cache hit to return the same handle")
	}
	if got := fsys.opens.Load(); got != 1 {
		t.Fatalf("expected exactly one open, got %d", got)
	}
	if first.Size != 10 {
		t.Fatalf("size mismatch: %d", first.Size)
	}

	if err := c.Release(first.Key); err != nil {
		t.Fatalf("release error: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("handle should stay open while borrowed, len=%d", c.Len())
	}
	if err := c.Release(second.Key); err != nil {
		t.Fatalf("release error: %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("handle should be removed after last release, len=%d", c.Len())
	}
	if err := c.Release(first.Key); !errors.Is(err, ErrNoSuchEntry) {
		t.Fatalf("expected ErrNoSuchEntry on double release, got %v", err)
	}

	if _, err := c.Acquire(context.Background(), "/movies/a.mp4"); err != nil {
		t.Fatalf("reacquire error: %v", err)
	}
	if got := fsys.opens.Load(); got != 2 {
		t.Fatalf("expected reopen after release, opens=%d", got)
	}
}

func TestAcquireMissingAndDirectory(t *testing.T) {
	fsys := newCountingFs(t, map[string]string{"/dir/file.mp4": "x"})
	c := New("videos", fsys, nil)

	if _, err := c.Acquire(context.Background(), "/missing.mp4"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Acquire(context.Background(), "/dir"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for directory, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("failed acquires must not leave entries, len=%d", c.Len())
	}
}

func TestAcquireRejectsEscapingPath(t *testing.T) {
	fsys := newCountingFs(t, nil)
	c := New("videos", fsys, nil)

	for _, raw := range []string{"../secret", "/a/../../secret", "/", ""} {
		if _, err := c.Acquire(context.Background(), raw); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("%q: expected ErrInvalidPath, got %v", raw, err)
		}
	}
	if got := fsys.opens.Load(); got != 0 {
		t.Fatalf("invalid paths must not reach the filesystem, opens=%d", got)
	}
}

func TestAcquireHonorsCancelledContext(t *testing.T) {
	c := New("videos", newCountingFs(t, map[string]string{"/a.mp4": "x"}), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Acquire(ctx, "/a.mp4"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConcurrentAcquireOpensOnce(t *testing.T) {
	fsys := newCountingFs(t, map[string]string{"/a.mp4": strings.Repeat("v", 64)})
	fsys.delay = 20 * time.Millisecond
	c := New("videos", fsys, nil)

	const workers = 16
	var wg sync.WaitGroup
	handles := make([]*Handle, workers)
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], errs[i] = c.Acquire(context.Background(), "/a.mp4")
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d error: %v", i, errs[i])
		}
		if handles[i] != handles[0] {
			t.Fatalf("worker %d got a different handle", i)
		}
	}
	if got := fsys.opens.Load(); got != 1 {
		t.Fatalf("expected one open for concurrent acquires, got %d", got)
	}
	if snap := c.Snapshot(); len(snap) != 1 || snap[0].Refs != workers {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	for i := 0; i < workers; i++ {
		if err := c.Release(handles[i].Key); err != nil {
			t.Fatalf("release %d: %v", i, err)
		}
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, len=%d", c.Len())
	}
}

func TestHandleSectionReadsInterval(t *testing.T) {
	c := New("videos", newCountingFs(t, map[string]string{"/a.bin": "abcdefghij"}), nil)
	h, err := c.Acquire(context.Background(), "/a.bin")
	if err != nil {
		t.Fatalf("acquire error: %v", err)
	}
	defer c.Release(h.Key)

	cases := []struct {
		start, end int64
		want       string
	}{
		{0, 10, "abcdefghij"},
		{2, 5, "cde"},
		{9, 10, "j"},
		{8, 100, "ij"},
		{5, 5, ""},
	}
	for _, tc := range cases {
		body, err := io.ReadAll(h.Section(tc.start, tc.end))
		if err != nil {
			t.Fatalf("section %d-%d: %v", tc.start, tc.end, err)
		}
		if string(body) != tc.want {
			t.Fatalf("section %d-%d = %q, want %q", tc.start, tc.end, body, tc.want)
		}
	}
}

func TestPutThenAcquire(t *testing.T) {
	c := New("videos", afero.NewMemMapFs(), nil)
	entry, err := c.Put(context.Background(), "/uploads/clip.mp4", bytes.NewReader([]byte("payload")))
	if err != nil {
		t.Fatalf("put error: %v", err)
	}
	if entry.Key != "uploads/clip.mp4" || entry.SizeBytes != 7 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	h, err := c.Acquire(context.Background(), "/uploads/clip.mp4")
	if err != nil {
		t.Fatalf("acquire error: %v", err)
	}
	defer c.Release(h.Key)
	body, _ := io.ReadAll(h.Section(0, h.Size))
	if string(body) != "payload" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestPutRejectsEscapingPath(t *testing.T) {
	c := New("videos", afero.NewMemMapFs(), nil)
	if _, err := c.Put(context.Background(), "../../etc/passwd", strings.NewReader("x")); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestNewDirKeepsOpenHandleAcrossOverwrite(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.mp4"), []byte("old-content"), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}
	c, err := NewDir("videos", root, nil)
	if err != nil {
		t.Fatalf("NewDir error: %v", err)
	}

	h, err := c.Acquire(context.Background(), "/a.mp4")
	if err != nil {
		t.Fatalf("acquire error: %v", err)
	}
	if _, err := c.Put(context.Background(), "/a.mp4", strings.NewReader("new")); err != nil {
		t.Fatalf("put error: %v", err)
	}

	body, _ := io.ReadAll(h.Section(0, h.Size))
	if string(body) != "old-content" {
		t.Fatalf("open handle should keep serving old bytes, got %q", body)
	}
	if err := c.Release(h.Key); err != nil {
		t.Fatalf("release error: %v", err)
	}

	fresh, err := c.Acquire(context.Background(), "/a.mp4")
	if err != nil {
		t.Fatalf("reacquire error: %v", err)
	}
	defer c.Release(fresh.Key)
	if fresh.Size != 3 {
		t.Fatalf("expected new size 3, got %d", fresh.Size)
	}

	matches, _ := filepath.Glob(filepath.Join(root, ".upload-*"))
	if len(matches) != 0 {
		t.Fatalf("temp files should be renamed away: %v", matches)
	}
}

func TestNewDirConfinesToRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "library")
	if err := os.WriteFile(filepath.Join(base, "outside.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write error: %v", err)
	}
	c, err := NewDir("videos", root, nil)
	if err != nil {
		t.Fatalf("NewDir error: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Fatalf("root should be created: %v", err)
	}
	if _, err := c.Acquire(context.Background(), "/../outside.mp4"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
}

func TestResolveKey(t *testing.T) {
	cases := []struct {
		raw     string
		want    Key
		invalid bool
	}{
		{"/a.mp4", "a.mp4", false},
		{"//movies//b.mkv", "movies/b.mkv", false},
		{"/movies/./c.webm", "movies/c.webm", false},
		{"/movies/../d.mp4", "d.mp4", false},
		{"/../d.mp4", "", true},
		{"..", "", true},
		{"/", "", true},
		{"/a\x00b", "", true},
	}
	for _, tc := range cases {
		got, err := ResolveKey(tc.raw)
		if tc.invalid {
			if !errors.Is(err, ErrInvalidPath) {
				t.Fatalf("%q: expected ErrInvalidPath, got %v", tc.raw, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %q, %v", tc.raw, got, err)
		}
	}

	key := Key("movies/Trailer.MP4")
	if key.Ext() != ".mp4" || key.Name() != "Trailer.MP4" {
		t.Fatalf("unexpected ext/name: %s %s", key.Ext(), key.Name())
	}
}

// countingFs wraps a MemMapFs and counts Open calls.
type countingFs struct {
	afero.Fs
	opens atomic.Int32
	delay time.Duration
}

func (f *countingFs) Open(name string) (afero.File, error) {
	f.opens.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.Fs.Open(name)
}

func newCountingFs(t *testing.T, files map[string]string) *countingFs {
	t.Helper()
	mem := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(mem, name, []byte(content), 0o644); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	return &countingFs{Fs: mem}
}

func TestBorrowReportsHit(t *testing.T) {
	c := New("videos", newCountingFs(t, map[string]string{"/a.mp4": "x"}), nil)

	h, hit, err := c.Borrow(context.Background(), "/a.mp4")
	if err != nil || hit {
		t.Fatalf("first borrow should miss: hit=%v err=%v", hit, err)
	}
	_, hit, err = c.Borrow(context.Background(), "/a.mp4")
	if err != nil || !hit {
		t.Fatalf("second borrow should hit: hit=%v err=%v", hit, err)
	}
	c.Release(h.Key)
	c.Release(h.Key)
	if c.Len() != 0 {
		t.Fatalf("expected empty cache")
	}
}

func TestPutCleanupOnInterruptedBody(t *testing.T) {
	root := t.TempDir()
	c, err := NewDir("videos", root, nil)
	if err != nil {
		t.Fatalf("NewDir error: %v", err)
	}

	reader := &flakyReader{payload: []byte("partial_data"), failAfter: 5}
	if _, err := c.Put(context.Background(), "/interrupt/clip.mp4", reader); err == nil {
		t.Fatalf("expected error from interrupted reader")
	}

	if _, err := os.Stat(filepath.Join(root, "interrupt", "clip.mp4")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected no final file, got err=%v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(root, "interrupt", ".upload-*"))
	if len(matches) != 0 {
		t.Fatalf("temporary files should be cleaned up, found %v", matches)
	}
}

type flakyReader struct {
	payload   []byte
	failAfter int
	readBytes int
}

func (f *flakyReader) Read(p []byte) (int, error) {
	if f.readBytes >= f.failAfter {
		return 0, io.ErrUnexpectedEOF
	}
	remaining := f.failAfter - f.readBytes
	if remaining > len(p) {
		remaining = len(p)
	}
	copy(p[:remaining], f.payload[f.readBytes:f.readBytes+remaining])
	f.readBytes += remaining
	return remaining, nil
}
