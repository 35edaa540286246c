package mediatype

import (
	"strings"

	"github.com/gofiber/utils/v2"
)

// DefaultContentType 在无法识别扩展名时使用。
const DefaultContentType = "application/octet-stream"

// ContentType 依次查找媒体库覆盖、内置注册表与 gofiber/utils 的 MIME 表。
func ContentType(ext string, overrides map[string]string) string {
	ext = normalizeExt(ext)
	if ext == "" {
		return DefaultContentType
	}
	if mime, ok := overrides[ext]; ok && mime != "" {
		return mime
	}
	if p, ok := Resolve(ext); ok {
		return p.ContentType
	}
	if mime := utils.GetMIME(ext); mime != "" {
		return mime
	}
	return DefaultContentType
}

// KindOf 返回扩展名对应的呈现方式；未注册时根据 Content-Type 前缀推断。
func KindOf(ext string, overrides map[string]string) Kind {
	if p, ok := Resolve(ext); ok {
		if _, overridden := overrides[normalizeExt(ext)]; !overridden {
			return p.Kind
		}
	}
	mime := ContentType(ext, overrides)
	switch {
	case strings.HasPrefix(mime, "video/"):
		return KindVideo
	case strings.HasPrefix(mime, "audio/"):
		return KindAudio
	case strings.HasPrefix(mime, "image/"):
		return KindImage
	default:
		return KindOther
	}
}
