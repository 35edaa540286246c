package routes

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/any-hub/media-hub/internal/cache"
	"github.com/any-hub/media-hub/internal/mediatype"
	"github.com/any-hub/media-hub/internal/server"
	"github.com/any-hub/media-hub/internal/version"
)

// RegisterDiagnosticsRoutes 暴露 /-/ 前缀下的诊断接口，供运维查询媒体库绑定、打开句柄与指标。
func RegisterDiagnosticsRoutes(app *fiber.App, registry *server.LibraryRegistry) {
	if app == nil || registry == nil {
		return
	}
	started := time.Now()

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":         "ok",
			"version":        version.Full(),
			"uptime_seconds": int64(time.Since(started).Seconds()),
		})
	})

	app.Get("/-/libraries", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"libraries": encodeLibraries(registry.List()),
		})
	})

	app.Get("/-/libraries/:name", func(c fiber.Ctx) error {
		name := strings.TrimSpace(c.Params("name"))
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "library_name_required"})
		}
		route, ok := registry.Named(name)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "library_not_found"})
		}
		return c.JSON(libraryDetailPayload{
			libraryPayload: encodeLibrary(route),
			Handles:        route.Cache.Snapshot(),
		})
	})

	app.Get("/-/mediatypes", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"mediatypes": mediatype.List(),
		})
	})

	app.Get("/-/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

type libraryPayload struct {
	Name        string            `json:"name"`
	Domain      string            `json:"domain"`
	Port        int               `json:"port"`
	Root        string            `json:"root"`
	UploadMode  string            `json:"upload_mode"`
	MIMETypes   map[string]string `json:"mime_types,omitempty"`
	OpenHandles int               `json:"open_handles"`
}

type libraryDetailPayload struct {
	libraryPayload
	Handles []cache.HandleInfo `json:"handles"`
}

func encodeLibraries(routes []*server.LibraryRoute) []libraryPayload {
	result := make([]libraryPayload, 0, len(routes))
	for _, route := range routes {
		result = append(result, encodeLibrary(route))
	}
	return result
}

func encodeLibrary(route *server.LibraryRoute) libraryPayload {
	payload := libraryPayload{
		Name:       route.Config.Name,
		Domain:     route.Config.Domain,
		Port:       route.ListenPort,
		Root:       route.Root,
		UploadMode: route.Config.UploadMode(),
		MIMETypes:  route.Config.MIMETypes,
	}
	if route.Cache != nil {
		payload.OpenHandles = route.Cache.Len()
	}
	return payload
}
