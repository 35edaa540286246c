package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

// GlobalConfig 描述全局运行时行为，所有媒体库共享同一个监听端口与日志配置。
type GlobalConfig struct {
	ListenPort    int      `mapstructure:"ListenPort"`
	LogLevel      string   `mapstructure:"LogLevel"`
	LogFilePath   string   `mapstructure:"LogFilePath"`
	LogMaxSize    int      `mapstructure:"LogMaxSize"`
	LogMaxBackups int      `mapstructure:"LogMaxBackups"`
	LogCompress   bool     `mapstructure:"LogCompress"`
	StoragePath   string   `mapstructure:"StoragePath"`
	MaxUploadSize int64    `mapstructure:"MaxUploadSize"`
	ReadTimeout   Duration `mapstructure:"ReadTimeout"`
	WriteTimeout  Duration `mapstructure:"WriteTimeout"`
}

// LibraryConfig 描述一个通过 Host 命中的媒体库及其磁盘根目录。
type LibraryConfig struct {
	Name        string            `mapstructure:"Name"`
	Domain      string            `mapstructure:"Domain"`
	Root        string            `mapstructure:"Root"`
	AllowUpload bool              `mapstructure:"AllowUpload"`
	Title       string            `mapstructure:"Title"`
	MIMETypes   map[string]string `mapstructure:"MIMETypes"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig    `mapstructure:",squash"`
	Libraries []LibraryConfig `mapstructure:"Library"`
}

// UploadMode 输出 `upload` 或 `readonly`，供日志字段使用。
func (l LibraryConfig) UploadMode() string {
	if l.AllowUpload {
		return "upload"
	}
	return "readonly"
}

// LibraryModes 返回所有媒体库的读写模式摘要，例如 videos:upload。
func LibraryModes(libs []LibraryConfig) []string {
	if len(libs) == 0 {
		return nil
	}
	result := make([]string, len(libs))
	for i, lib := range libs {
		result[i] = fmt.Sprintf("%s:%s", lib.Name, lib.UploadMode())
	}
	return result
}

// DisplayTitle 返回播放页面使用的标题，未配置时退回库名。
func (l LibraryConfig) DisplayTitle() string {
	if t := strings.TrimSpace(l.Title); t != "" {
		return t
	}
	return l.Name
}
