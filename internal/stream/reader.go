package stream

import (
	"io"
	"sync"
)

// releasingReader 包装区间读取器。HTTP 服务器在写完、写失败或连接复位时关闭 body stream，
// 此时通过 onClose 归还句柄并上报实际写出的字节数，onClose 只会执行一次。
type releasingReader struct {
	r       io.Reader
	read    int64
	once    sync.Once
	onClose func(read int64, err error)
}

func (r *releasingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.read += int64(n)
	return n, err
}

func (r *releasingReader) Close() error {
	return r.CloseWithError(nil)
}

// CloseWithError 在传输中断时携带写错误关闭。
func (r *releasingReader) CloseWithError(err error) error {
	r.once.Do(func() {
		if r.onClose != nil {
			r.onClose(r.read, err)
		}
	})
	return nil
}
