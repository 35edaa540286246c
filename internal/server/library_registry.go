package server

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/any-hub/media-hub/internal/cache"
	"github.com/any-hub/media-hub/internal/config"
)

// LibraryRoute 将媒体库配置与派生属性（绝对根目录、句柄缓存）聚合在一起，
// 供路由与响应层直接复用。
type LibraryRoute struct {
	// Config 是用户在 config.toml 中声明的 Library 字段副本。
	Config config.LibraryConfig
	// ListenPort 记录当前 CLI 监听端口，方便日志输出。
	ListenPort int
	// Root 为媒体库的绝对根目录。
	Root string
	// Cache 独占该媒体库所有打开的资源句柄。
	Cache *cache.Cache
}

// LibraryRegistry 提供 Host/Host:port 到 LibraryRoute 的查询能力，所有媒体库共享同一个监听端口。
type LibraryRegistry struct {
	routes  map[string]*LibraryRoute
	ordered []*LibraryRoute
}

// NewLibraryRegistry 根据配置构建 Host 映射并为每个媒体库创建缓存。调用方应在启动阶段创建一次并复用。
func NewLibraryRegistry(cfg *config.Config, logger *logrus.Logger) (*LibraryRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	registry := &LibraryRegistry{
		routes: make(map[string]*LibraryRoute, len(cfg.Libraries)),
	}

	for _, lib := range cfg.Libraries {
		normalizedHost := normalizeDomain(lib.Domain)
		if normalizedHost == "" {
			return nil, fmt.Errorf("invalid domain for library %s", lib.Name)
		}
		if _, exists := registry.routes[normalizedHost]; exists {
			return nil, fmt.Errorf("duplicate domain mapping detected for %s", normalizedHost)
		}

		store, err := cache.NewDir(lib.Name, lib.Root, logger)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", lib.Name, err)
		}

		route := &LibraryRoute{
			Config:     lib,
			ListenPort: cfg.Global.ListenPort,
			Root:       lib.Root,
			Cache:      store,
		}
		registry.routes[normalizedHost] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

// Lookup 根据 Host 或 Host:port 查找 LibraryRoute。
func (r *LibraryRegistry) Lookup(host string) (*LibraryRoute, bool) {
	if r == nil {
		return nil, false
	}

	normalizedHost, _ := normalizeHost(host)
	if normalizedHost == "" {
		return nil, false
	}

	route, ok := r.routes[normalizedHost]
	return route, ok
}

// Named 按媒体库名称查找，供诊断接口使用。
func (r *LibraryRegistry) Named(name string) (*LibraryRoute, bool) {
	if r == nil {
		return nil, false
	}
	for _, route := range r.ordered {
		if route.Config.Name == name {
			return route, true
		}
	}
	return nil, false
}

// List 返回按配置顺序排列的 LibraryRoute 指针；指针共享缓存实例，调用方不得修改 Config。
func (r *LibraryRegistry) List() []*LibraryRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}
	return append([]*LibraryRoute(nil), r.ordered...)
}

func normalizeDomain(domain string) string {
	host, _ := normalizeHost(domain)
	return host
}

func normalizeHost(raw string) (string, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0
	}

	host := raw
	port := 0

	if strings.Contains(raw, ":") {
		if h, p, err := net.SplitHostPort(raw); err == nil {
			host = h
			if parsedPort, err := strconv.Atoi(p); err == nil {
				port = parsedPort
			}
		} else if idx := strings.LastIndex(raw, ":"); idx > -1 && strings.Count(raw[idx+1:], ":") == 0 {
			if parsedPort, err := strconv.Atoi(raw[idx+1:]); err == nil {
				host = raw[:idx]
				port = parsedPort
			}
		}
	}

	host = strings.TrimSuffix(host, ".")
	host = strings.ToLower(host)
	return host, port
}
