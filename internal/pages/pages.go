package pages

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/any-hub/media-hub/internal/cache"
	"github.com/any-hub/media-hub/internal/mediatype"
	"github.com/any-hub/media-hub/internal/server"
)

const (
	// UploadPath 是每个媒体库的上传入口。
	UploadPath = "/_upload"
	// PlayerPrefix 之后的部分是资源路径，例如 /_player/movies/a.mp4。
	PlayerPrefix = "/_player/"

	fileField = "file"
	dirField  = "dir"
)

//go:embed templates/*.html
var templateFiles embed.FS

var templates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Pages 渲染上传表单与播放页。
type Pages struct {
	logger *logrus.Logger
}

// New 创建页面处理器，logger 为空时丢弃日志。
func New(logger *logrus.Logger) *Pages {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	return &Pages{logger: logger}
}

type uploadView struct {
	Title     string
	Message   string
	Key       string
	PlayerURL string
}

type playerView struct {
	Title       string
	Name        string
	Kind        string
	ContentType string
	SourceURL   string
}

// Upload 处理 GET（表单）与 POST（multipart 上传）。
func (p *Pages) Upload(c fiber.Ctx, route *server.LibraryRoute) error {
	switch c.Method() {
	case http.MethodGet, http.MethodHead:
		return render(c, fiber.StatusOK, "upload", uploadView{Title: route.Config.DisplayTitle()})
	case http.MethodPost:
		return p.store(c, route)
	default:
		c.Set(fiber.HeaderAllow, "GET, HEAD, POST")
		return c.Status(fiber.StatusMethodNotAllowed).
			JSON(fiber.Map{"error": "method_not_allowed"})
	}
}

func (p *Pages) store(c fiber.Ctx, route *server.LibraryRoute) error {
	if !route.Config.AllowUpload {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "upload_disabled"})
	}

	header, err := c.FormFile(fileField)
	if err != nil || header == nil || uploadName(header.Filename) == "" {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(fiber.StatusBadRequest).SendString("No file received")
	}
	name := uploadName(header.Filename)

	file, err := header.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "upload read failed")
	}
	defer file.Close()

	target := path.Join(strings.Trim(c.FormValue(dirField), "/"), name)
	entry, err := route.Cache.Put(c.Context(), target, file)
	if err != nil {
		if errors.Is(err, cache.ErrInvalidPath) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_upload_path"})
		}
		p.logger.WithError(err).WithFields(logrus.Fields{
			"action":     "upload",
			"library":    route.Config.Name,
			"target":     target,
			"request_id": server.RequestID(c),
		}).Error("upload_failed")
		return fiber.NewError(fiber.StatusInternalServerError, "upload failed")
	}

	p.logger.WithFields(logrus.Fields{
		"action":     "upload",
		"library":    route.Config.Name,
		"key":        entry.Key.String(),
		"size":       entry.SizeBytes,
		"request_id": server.RequestID(c),
	}).Info("upload_complete")

	return render(c, fiber.StatusOK, "upload", uploadView{
		Title:     route.Config.DisplayTitle(),
		Message:   fmt.Sprintf("%s is %d bytes", name, entry.SizeBytes),
		Key:       entry.Key.String(),
		PlayerURL: PlayerPrefix + escapeKey(entry.Key),
	})
}

// Player 渲染 /_player/<path> 对应资源的播放页，资源不存在时返回 404。
func (p *Pages) Player(c fiber.Ctx, route *server.LibraryRoute) error {
	raw := strings.TrimPrefix(string(c.Request().URI().Path()), PlayerPrefix)

	switch c.Method() {
	case http.MethodGet, http.MethodHead:
	default:
		c.Set(fiber.HeaderAllow, "GET, HEAD")
		return c.Status(fiber.StatusMethodNotAllowed).
			JSON(fiber.Map{"error": "method_not_allowed"})
	}

	handle, err := route.Cache.Acquire(c.Context(), raw)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) || errors.Is(err, cache.ErrInvalidPath) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "resource_not_found"})
		}
		return fiber.NewError(fiber.StatusInternalServerError, "resource open failed")
	}
	key := handle.Key
	if err := route.Cache.Release(key); err != nil {
		p.logger.WithError(err).WithField("key", key.String()).Warn("release failed")
	}

	overrides := route.Config.MIMETypes
	return render(c, fiber.StatusOK, "player", playerView{
		Title:       route.Config.DisplayTitle(),
		Name:        key.Name(),
		Kind:        string(mediatype.KindOf(key.Ext(), overrides)),
		ContentType: mediatype.ContentType(key.Ext(), overrides),
		SourceURL:   "/" + escapeKey(key),
	})
}

func render(c fiber.Ctx, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "render failed")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}

// uploadName 只保留客户端文件名的最后一段。
func uploadName(filename string) string {
	filename = strings.ReplaceAll(filename, `\`, "/")
	name := path.Base(strings.TrimSpace(filename))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

func escapeKey(key cache.Key) string {
	return strings.TrimPrefix((&url.URL{Path: "/" + key.String()}).EscapedPath(), "/")
}
