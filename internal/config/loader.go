package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	if err := rejectLibraryLevelPorts(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Libraries {
		applyLibraryDefaults(cfg.Global, &cfg.Libraries[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.Global.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析媒体目录: %w", err)
	}
	cfg.Global.StoragePath = absStorage

	for i := range cfg.Libraries {
		absRoot, err := filepath.Abs(cfg.Libraries[i].Root)
		if err != nil {
			return nil, fmt.Errorf("%s: 无法解析目录: %w", libraryField(cfg.Libraries[i].Name, "Root"), err)
		}
		cfg.Libraries[i].Root = absRoot
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("StoragePath", "./media")
	v.SetDefault("MaxUploadSize", 256*1024*1024)
	v.SetDefault("ReadTimeout", "30s")
	v.SetDefault("WriteTimeout", "0s")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.LogLevel == "" {
		g.LogLevel = "info"
	}
	if g.MaxUploadSize == 0 {
		g.MaxUploadSize = 256 * 1024 * 1024
	}
	if g.ReadTimeout.DurationValue() == 0 {
		g.ReadTimeout = Duration(30 * time.Second)
	}
	if g.WriteTimeout.DurationValue() < 0 {
		g.WriteTimeout = Duration(0)
	}
}

func applyLibraryDefaults(g GlobalConfig, l *LibraryConfig) {
	l.Name = strings.TrimSpace(l.Name)
	l.Domain = strings.TrimSpace(l.Domain)
	if strings.TrimSpace(l.Root) == "" && l.Name != "" && g.StoragePath != "" {
		l.Root = filepath.Join(g.StoragePath, l.Name)
	}
	if len(l.MIMETypes) > 0 {
		normalized := make(map[string]string, len(l.MIMETypes))
		for ext, mime := range l.MIMETypes {
			normalized[NormalizeExtension(ext)] = strings.TrimSpace(mime)
		}
		l.MIMETypes = normalized
	}
}

// NormalizeExtension 统一扩展名写法：小写并带前导点，例如 "MP4" → ".mp4"。
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}

// rejectLibraryLevelPorts 拒绝媒体库级别的 Port 字段，所有媒体库共用全局 ListenPort。
func rejectLibraryLevelPorts(v *viper.Viper) error {
	raw := v.Get("Library")
	libs, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	for idx, entry := range libs {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		for key := range m {
			if !strings.EqualFold(key, "Port") {
				continue
			}
			name := fmt.Sprintf("#%d", idx)
			for k, rawName := range m {
				if s, ok := rawName.(string); ok && strings.EqualFold(k, "Name") && s != "" {
					name = s
				}
			}
			return newFieldError(libraryField(name, "Port"), "不支持单独端口，请使用全局 ListenPort")
		}
	}

	return nil
}
