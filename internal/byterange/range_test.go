package byterange

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseExplicitBoundsYieldsInclusiveInterval(t *testing.T) {
	const size = 1000
	for _, tc := range []struct{ start, end int64 }{
		{0, 0},
		{0, 999},
		{100, 199},
		{500, 500},
		{999, 999},
	} {
		header := fmt.Sprintf("bytes=%d-%d", tc.start, tc.end)
		iv, err := Parse(header, size)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", header, err)
		}
		if iv.Start != tc.start || iv.End != tc.end+1 || iv.Size != size {
			t.Fatalf("%s: got %+v", header, iv)
		}
		if iv.Length() != tc.end-tc.start+1 {
			t.Fatalf("%s: length %d", header, iv.Length())
		}
	}
}

func TestParseEndEqualToSizeIsClipped(t *testing.T) {
	iv, err := Parse("bytes=10-1000", 1000)
	if err != nil {
		t.Fatalf("end == size 应被接受: %v", err)
	}
	if iv.End != 1000 {
		t.Fatalf("End 应裁剪到 size, got %d", iv.End)
	}
}

func TestParseOpenEndedRangeCoversRest(t *testing.T) {
	for _, size := range []int64{0, 1, 1000, 1 << 40} {
		iv, err := Parse("bytes=0-", size)
		if err != nil {
			t.Fatalf("size %d: %v", size, err)
		}
		if iv.Start != 0 || iv.End != size {
			t.Fatalf("size %d: got %+v", size, iv)
		}
		if !iv.IsFull() {
			t.Fatalf("size %d: bytes=0- 应覆盖整个资源", size)
		}
	}

	iv, err := Parse("bytes=250-", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iv.Start != 250 || iv.End != 1000 || iv.IsFull() {
		t.Fatalf("unexpected interval %+v", iv)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []string{
		"chars=0-10",
		"items=0-",
		"bytes",
		"0-10",
		"bytes=10",
		"bytes=-500",
		"bytes=a-10",
		"bytes=0-b",
		"bytes=+1-2",
		"bytes=0--1",
		"bytes=0-1,5-6",
		"BYTES=0-10",
		"",
	}
	for _, header := range cases {
		if _, err := Parse(header, 1000); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", header, err)
		}
	}
}

func TestParseUnsatisfiable(t *testing.T) {
	cases := []string{
		"bytes=10-5",
		"bytes=0-1001",
		"bytes=2000-2100",
		"bytes=1001-",
	}
	for _, header := range cases {
		if _, err := Parse(header, 1000); !errors.Is(err, ErrUnsatisfiable) {
			t.Fatalf("%q: expected ErrUnsatisfiable, got %v", header, err)
		}
	}
}

func TestParseTrimsWhitespaceAroundUnitAndSpec(t *testing.T) {
	iv, err := Parse(" bytes = 1-2 ", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if iv.Start != 1 || iv.End != 3 {
		t.Fatalf("unexpected interval %+v", iv)
	}
}

func TestParseStartAtSizeIsEmpty(t *testing.T) {
	iv, err := Parse("bytes=1000-", 1000)
	if err != nil {
		t.Fatalf("start == size 按边界规则合法: %v", err)
	}
	if !iv.IsEmpty() {
		t.Fatalf("区间应为空: %+v", iv)
	}
}

func TestIntervalHeaders(t *testing.T) {
	iv := Interval{Start: 100, End: 200, Size: 1000}
	if got := iv.ContentRange(); got != "bytes 100-199/1000" {
		t.Fatalf("ContentRange = %q", got)
	}
	if got := UnsatisfiedRange(1000); got != "bytes */1000" {
		t.Fatalf("UnsatisfiedRange = %q", got)
	}
	if full := Full(42); !full.IsFull() || full.Length() != 42 {
		t.Fatalf("Full(42) = %+v", full)
	}
}
