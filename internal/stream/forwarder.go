package stream

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/media-hub/internal/logging"
	"github.com/any-hub/media-hub/internal/pages"
	"github.com/any-hub/media-hub/internal/server"
)

// Forwarder 根据请求路径选择页面或区间响应 handler，并把 handler 内的 panic 转换为 500。
type Forwarder struct {
	media  server.MediaHandler
	pages  *pages.Pages
	logger *logrus.Logger
}

// NewForwarder 创建 Forwarder。media 为空时资源请求返回 media_handler_missing；
// pagesHandler 为空时不提供上传与播放页。
func NewForwarder(media server.MediaHandler, pagesHandler *pages.Pages, logger *logrus.Logger) *Forwarder {
	return &Forwarder{
		media:  media,
		pages:  pagesHandler,
		logger: logger,
	}
}

// Handle 实现 server.MediaHandler。
func (f *Forwarder) Handle(c fiber.Ctx, route *server.LibraryRoute) error {
	requestID := server.RequestID(c)
	handler := f.lookup(requestPath(c))
	if handler == nil {
		return f.respondMissingHandler(c, route, requestID)
	}
	return f.invokeHandler(c, route, handler, requestID)
}

func (f *Forwarder) lookup(p string) server.MediaHandler {
	switch {
	case p == pages.UploadPath:
		if f.pages != nil {
			return server.MediaHandlerFunc(f.pages.Upload)
		}
		return nil
	case strings.HasPrefix(p, pages.PlayerPrefix):
		if f.pages != nil {
			return server.MediaHandlerFunc(f.pages.Player)
		}
		return nil
	default:
		return f.media
	}
}

func (f *Forwarder) respondMissingHandler(c fiber.Ctx, route *server.LibraryRoute, requestID string) error {
	f.logHandlerError(c, route, "media_handler_missing", nil, requestID)
	setRequestIDHeader(c, requestID)
	return c.Status(fiber.StatusNotFound).
		JSON(fiber.Map{"error": "media_handler_missing"})
}

func (f *Forwarder) invokeHandler(c fiber.Ctx, route *server.LibraryRoute, handler server.MediaHandler, requestID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = f.respondHandlerPanic(c, route, r, requestID)
		}
	}()
	return handler.Handle(c, route)
}

func (f *Forwarder) respondHandlerPanic(c fiber.Ctx, route *server.LibraryRoute, recovered interface{}, requestID string) error {
	f.logHandlerError(c, route, "media_handler_panic", fmt.Errorf("panic: %v", recovered), requestID)
	c.Response().ResetBody()
	setRequestIDHeader(c, requestID)
	return c.Status(fiber.StatusInternalServerError).
		JSON(fiber.Map{"error": "media_handler_panic"})
}

func setRequestIDHeader(c fiber.Ctx, requestID string) {
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
}

func (f *Forwarder) logHandlerError(c fiber.Ctx, route *server.LibraryRoute, code string, err error, requestID string) {
	if f.logger == nil {
		return
	}
	fields := routeFields(route, requestPath(c), requestID)
	fields["action"] = "stream"
	fields["error"] = code
	if err != nil {
		f.logger.WithFields(fields).Error(err.Error())
		return
	}
	f.logger.WithFields(fields).Error("media handler unavailable")
}

func routeFields(route *server.LibraryRoute, p, requestID string) logrus.Fields {
	if route == nil {
		return logrus.Fields{
			"library":     "",
			"domain":      "",
			"path":        p,
			"upload_mode": "",
			"cache_hit":   false,
		}
	}
	fields := logging.RequestFields(
		route.Config.Name,
		route.Config.Domain,
		p,
		route.Config.UploadMode(),
		false,
	)
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}
