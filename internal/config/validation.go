package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if g.StoragePath == "" {
		return newFieldError("Global.StoragePath", "不能为空")
	}
	if g.MaxUploadSize <= 0 {
		return newFieldError("Global.MaxUploadSize", "必须大于 0")
	}
	if g.ReadTimeout.DurationValue() < 0 {
		return newFieldError("Global.ReadTimeout", "不能为负数")
	}

	if len(c.Libraries) == 0 {
		return errors.New("至少需要配置一个 Library")
	}

	seenNames := map[string]struct{}{}
	seenDomains := map[string]string{}
	for i := range c.Libraries {
		lib := &c.Libraries[i]
		if lib.Name == "" {
			return newFieldError("Library[].Name", "不能为空")
		}
		if err := validateName(lib.Name); err != nil {
			return fmt.Errorf("%s: %w", libraryField(lib.Name, "Name"), err)
		}
		if _, exists := seenNames[lib.Name]; exists {
			return newFieldError(libraryField(lib.Name, "Name"), "重复")
		}
		seenNames[lib.Name] = struct{}{}

		if err := validateDomain(lib.Domain); err != nil {
			return fmt.Errorf("%s: %w", libraryField(lib.Name, "Domain"), err)
		}
		domain := strings.ToLower(lib.Domain)
		if other, exists := seenDomains[domain]; exists {
			return newFieldError(libraryField(lib.Name, "Domain"), fmt.Sprintf("与 %s 重复", other))
		}
		seenDomains[domain] = lib.Name

		if strings.TrimSpace(lib.Root) == "" {
			return newFieldError(libraryField(lib.Name, "Root"), "不能为空")
		}

		for ext, mime := range lib.MIMETypes {
			if ext == "" || ext == "." {
				return newFieldError(libraryField(lib.Name, "MIMETypes"), "扩展名不能为空")
			}
			if !strings.Contains(mime, "/") {
				return newFieldError(libraryField(lib.Name, "MIMETypes"), fmt.Sprintf("%s 的类型无效: %q", ext, mime))
			}
		}
	}

	return nil
}

func validateName(name string) error {
	if strings.ContainsAny(name, `/\`) {
		return errors.New("Name 不允许包含路径分隔符")
	}
	if name == "." || name == ".." {
		return errors.New("Name 不允许为 . 或 ..")
	}
	return nil
}

func validateDomain(domain string) error {
	if domain == "" {
		return errors.New("Domain 不能为空")
	}
	if strings.Contains(domain, "://") {
		return errors.New("Domain 不应包含协议头")
	}
	if strings.Contains(domain, "/") {
		return errors.New("Domain 不允许包含路径")
	}
	if strings.Contains(domain, " ") {
		return errors.New("Domain 不允许包含空格")
	}
	return nil
}
