package byterange

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Unit 是唯一支持的 Range 单位。
const Unit = "bytes"

var (
	// ErrMalformed 表示 Range 头语法不合法（单位错误、缺少 '-'、非数字等）。
	ErrMalformed = errors.New("malformed range header")
	// ErrUnsatisfiable 表示 Range 语法正确但超出资源边界或 start > end。
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// Interval 描述 [Start, End) 半开区间，Size 为资源总长度。
type Interval struct {
	Start int64
	End   int64
	Size  int64
}

// Full 返回覆盖整个资源的区间。
func Full(size int64) Interval {
	if size < 0 {
		size = 0
	}
	return Interval{Start: 0, End: size, Size: size}
}

// Length 返回区间内的字节数。
func (iv Interval) Length() int64 {
	return iv.End - iv.Start
}

// IsFull 表示区间是否恰好覆盖整个资源，此时应返回 200 而不是 206。
func (iv Interval) IsFull() bool {
	return iv.Start == 0 && iv.End == iv.Size
}

// IsEmpty 表示区间不含任何字节。
func (iv Interval) IsEmpty() bool {
	return iv.End <= iv.Start
}

// ContentRange 生成 206 响应使用的 Content-Range 头。
func (iv Interval) ContentRange() string {
	return fmt.Sprintf("%s %d-%d/%d", Unit, iv.Start, iv.End-1, iv.Size)
}

// UnsatisfiedRange 生成 416 响应使用的 Content-Range 头。
func UnsatisfiedRange(size int64) string {
	return fmt.Sprintf("%s */%d", Unit, size)
}

// String 便于日志输出，例如 "100-199/1000"。
func (iv Interval) String() string {
	return fmt.Sprintf("%d-%d/%d", iv.Start, iv.End, iv.Size)
}

// Parse 解析 "bytes=start-end" 形式的 Range 头。end 为闭区间写法，
// 缺省时表示直到资源末尾；返回的 Interval.End 为开区间并裁剪到 size。
func Parse(header string, size int64) (Interval, error) {
	if size < 0 {
		size = 0
	}

	unit, spec, ok := strings.Cut(header, "=")
	if !ok {
		return Interval{}, fmt.Errorf("%w: missing '='", ErrMalformed)
	}
	if strings.TrimSpace(unit) != Unit {
		return Interval{}, fmt.Errorf("%w: unsupported unit %q", ErrMalformed, strings.TrimSpace(unit))
	}

	spec = strings.TrimSpace(spec)
	rawStart, rawEnd, ok := strings.Cut(spec, "-")
	if !ok {
		return Interval{}, fmt.Errorf("%w: missing '-'", ErrMalformed)
	}

	start, err := parseOffset(rawStart)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: start %q", ErrMalformed, rawStart)
	}

	if rawEnd == "" {
		if start > size {
			return Interval{}, fmt.Errorf("%w: start %d beyond size %d", ErrUnsatisfiable, start, size)
		}
		return Interval{Start: start, End: size, Size: size}, nil
	}

	end, err := parseOffset(rawEnd)
	if err != nil {
		return Interval{}, fmt.Errorf("%w: end %q", ErrMalformed, rawEnd)
	}

	switch {
	case start > end:
		return Interval{}, fmt.Errorf("%w: start %d after end %d", ErrUnsatisfiable, start, end)
	case start > size:
		return Interval{}, fmt.Errorf("%w: start %d beyond size %d", ErrUnsatisfiable, start, size)
	case end > size:
		return Interval{}, fmt.Errorf("%w: end %d beyond size %d", ErrUnsatisfiable, end, size)
	}

	exclusive := end + 1
	if exclusive > size {
		exclusive = size
	}
	return Interval{Start: start, End: exclusive, Size: size}, nil
}

// parseOffset 仅接受十进制非负整数，拒绝符号、空白与超出 int64 的值。
func parseOffset(raw string) (int64, error) {
	if raw == "" {
		return 0, errors.New("empty offset")
	}
	value, err := strconv.ParseUint(raw, 10, 63)
	if err != nil {
		return 0, err
	}
	return int64(value), nil
}
