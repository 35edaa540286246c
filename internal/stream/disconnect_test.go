package stream

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
)

func TestClientDisconnectReleasesHandle(t *testing.T) {
	h := newHarness(t, false)
	h.writeSample(t, "big.mp4", 8<<20)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	go func() {
		_ = h.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	t.Cleanup(func() { _ = h.app.Shutdown() })

	conn, err := net.DialTimeout("tcp", ln.Addr().String(), 2*time.Second)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	fmt.Fprintf(conn, "GET /big.mp4 HTTP/1.1\r\nHost: videos.local\r\nRange: bytes=0-\r\n\r\n")

	reader := bufio.NewReader(conn)
	status, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	if status != "HTTP/1.1 200 OK\r\n" {
		t.Fatalf("unexpected status line %q", status)
	}
	if _, err := io.ReadFull(reader, make([]byte, 1024)); err != nil {
		t.Fatalf("read partial body: %v", err)
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for h.route.Cache.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("handle still open after client disconnect, open=%d", h.route.Cache.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}
