package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/media-hub/internal/byterange"
	"github.com/any-hub/media-hub/internal/cache"
	"github.com/any-hub/media-hub/internal/logging"
	"github.com/any-hub/media-hub/internal/mediatype"
	"github.com/any-hub/media-hub/internal/server"
)

const allowedMethods = "GET, HEAD"

// Handler 负责 "借用句柄 → 解析 Range → 输出区间 → 归还句柄" 的全流程，
// 实现 server.MediaHandler。
type Handler struct {
	logger *logrus.Logger
	now    func() time.Time
}

// NewHandler constructs a range responder. A nil logger discards output.
func NewHandler(logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Handler{logger: logger, now: time.Now}
}

// Handle 服务 GET/HEAD 请求。返回前若未进入 streaming 阶段，句柄已经归还；
// 进入 streaming 后由 body stream 的 Close 归还。
func (h *Handler) Handle(c fiber.Ctx, route *server.LibraryRoute) error {
	s := h.begin(c, route)

	method := c.Method()
	if method != http.MethodGet && method != http.MethodHead {
		c.Set(fiber.HeaderAllow, allowedMethods)
		s.finish(fiber.StatusMethodNotAllowed, 0, nil)
		return c.Status(fiber.StatusMethodNotAllowed).
			JSON(fiber.Map{"error": "method_not_allowed"})
	}

	s.enter(PhaseOpening)
	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	handle, hit, err := route.Cache.Borrow(ctx, s.path)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) || errors.Is(err, cache.ErrInvalidPath) {
			s.finish(fiber.StatusNotFound, 0, nil)
			return c.Status(fiber.StatusNotFound).
				JSON(fiber.Map{"error": "resource_not_found"})
		}
		s.finish(fiber.StatusInternalServerError, 0, err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"error": "resource_open_failed"})
	}
	s.hit = hit

	release := s.releaser(route.Cache, handle.Key)
	streaming := false
	defer func() {
		if !streaming {
			release()
		}
	}()

	iv, err := evaluateRange(s.rangeHeader, handle.Size)
	s.enter(PhaseRangeEvaluated)
	if err != nil {
		release()
		s.rangeErr = err
		c.Set(fiber.HeaderContentRange, byterange.UnsatisfiedRange(handle.Size))
		c.Status(fiber.StatusRequestedRangeNotSatisfiable)
		s.finish(fiber.StatusRequestedRangeNotSatisfiable, 0, nil)
		return nil
	}
	s.interval = iv

	c.Set(fiber.HeaderContentType, mediatype.ContentType(handle.Key.Ext(), route.Config.MIMETypes))
	c.Set(fiber.HeaderAcceptRanges, byterange.Unit)
	if !handle.ModTime.IsZero() {
		c.Set(fiber.HeaderLastModified, handle.ModTime.UTC().Format(http.TimeFormat))
	}
	if s.requestID != "" {
		c.Set("X-Request-ID", s.requestID)
	}

	status := fiber.StatusOK
	if !iv.IsFull() {
		status = fiber.StatusPartialContent
		c.Set(fiber.HeaderContentRange, iv.ContentRange())
	}
	c.Status(status)

	if method == http.MethodHead {
		c.Response().Header.SetContentLength(int(iv.Length()))
		s.finish(status, 0, nil)
		return nil
	}

	s.enter(PhaseStreaming)
	streaming = true
	body := &releasingReader{
		r: handle.Section(iv.Start, iv.End),
		onClose: func(read int64, err error) {
			release()
			s.finish(status, read, err)
		},
	}
	return c.SendStream(body, int(iv.Length()))
}

// evaluateRange 在没有 Range 头时返回整个资源；合法但为空的部分区间（start == size）
// 无法生成 Content-Range，按不可满足处理。
func evaluateRange(header string, size int64) (byterange.Interval, error) {
	if header == "" {
		return byterange.Full(size), nil
	}
	iv, err := byterange.Parse(header, size)
	if err != nil {
		return byterange.Interval{}, err
	}
	if iv.IsEmpty() && !iv.IsFull() {
		return byterange.Interval{}, byterange.ErrUnsatisfiable
	}
	return iv, nil
}

// session 记录单次请求的阶段与日志字段。streaming 阶段结束时 fiber.Ctx 可能已被回收，
// 因此需要的请求信息在 begin 时全部复制出来。
type session struct {
	h           *Handler
	route       *server.LibraryRoute
	method      string
	path        string
	rangeHeader string
	requestID   string
	started     time.Time

	phase    Phase
	hit      bool
	interval byterange.Interval
	rangeErr error
}

func (h *Handler) begin(c fiber.Ctx, route *server.LibraryRoute) *session {
	return &session{
		h:           h,
		route:       route,
		method:      c.Method(),
		path:        requestPath(c),
		rangeHeader: c.Get(fiber.HeaderRange),
		requestID:   server.RequestID(c),
		started:     h.now(),
		phase:       PhaseIdle,
	}
}

func (s *session) enter(phase Phase) {
	s.phase = phase
	if !s.h.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	s.h.logger.WithFields(logrus.Fields{
		"action":     "stream_phase",
		"library":    s.route.Config.Name,
		"path":       s.path,
		"phase":      phase.String(),
		"request_id": s.requestID,
	}).Debug("stream phase changed")
}

// releaser 返回只执行一次的归还函数。
func (s *session) releaser(c *cache.Cache, key cache.Key) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := c.Release(key); err != nil {
				s.h.logger.WithError(err).WithFields(logrus.Fields{
					"action":  "handle_release",
					"library": s.route.Config.Name,
					"key":     key.String(),
				}).Warn("release failed")
			}
		})
	}
}

func (s *session) finish(status int, served int64, err error) {
	if err != nil {
		s.enter(PhaseError)
	} else {
		s.enter(PhaseClosed)
	}

	library := s.route.Config.Name
	responsesTotal.WithLabelValues(library, strconv.Itoa(status)).Inc()
	if served > 0 {
		bytesServed.WithLabelValues(library).Add(float64(served))
	}

	fields := logging.RequestFields(
		library,
		s.route.Config.Domain,
		s.path,
		s.route.Config.UploadMode(),
		s.hit,
	)
	fields["action"] = "stream"
	fields["method"] = s.method
	fields["status"] = status
	fields["range"] = s.rangeHeader
	fields["bytes"] = served
	fields["elapsed_ms"] = s.h.now().Sub(s.started).Milliseconds()
	if s.interval.Size > 0 || s.interval.End > 0 {
		fields["interval"] = s.interval.String()
	}
	if s.rangeErr != nil {
		fields["range_error"] = s.rangeErr.Error()
	}
	if s.requestID != "" {
		fields["request_id"] = s.requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		s.h.logger.WithFields(fields).Error("stream_failed")
		return
	}
	s.h.logger.WithFields(fields).Info("stream_complete")
}

// requestPath 使用 fasthttp 解码并规范化后的路径。
func requestPath(c fiber.Ctx) string {
	if raw := c.Request().URI().Path(); len(raw) > 0 {
		return string(raw)
	}
	return c.Path()
}
