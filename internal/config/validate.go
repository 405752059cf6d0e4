package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateTMS(); err != nil {
		return err
	}
	if err := c.validateContent(); err != nil {
		return err
	}
	if err := c.validateProfiles(); err != nil {
		return err
	}
	if err := c.validateLocking(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"tms.timeout_seconds":           c.TMS.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case DriverSQLite:
		return nil
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn must be set when store.driver is postgres (or set TMSBRIDGE_STORE_DSN)")
		}
		return nil
	default:
		return fmt.Errorf("store.driver: unsupported value %q (want sqlite or postgres)", c.Store.Driver)
	}
}

func (c *Config) validateTMS() error {
	if c.TMS.BaseURL == "" {
		return nil
	}
	parsed, err := url.Parse(c.TMS.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("tms.base_url must be an absolute URL, got %q", c.TMS.BaseURL)
	}
	return nil
}

func (c *Config) validateContent() error {
	for _, locale := range c.Content.TargetLocales {
		if locale == c.Content.SourceLocale {
			return fmt.Errorf("content.target_locales must not include the source locale %q", locale)
		}
	}
	if !c.HasProfile(c.Content.DefaultProfile) {
		return fmt.Errorf("content.default_profile %q is not defined", c.Content.DefaultProfile)
	}
	return nil
}

func (c *Config) validateProfiles() error {
	for id, profile := range c.Profiles {
		if isBuiltinProfile(id) {
			return fmt.Errorf("profiles.%s: name is reserved for a built-in profile", id)
		}
		for locale, override := range profile.LanguageOverrides {
			switch override.Overrides {
			case "", "default", "custom":
			default:
				return fmt.Errorf("profiles.%s.language_overrides.%s.overrides must be \"default\" or \"custom\"", id, locale)
			}
		}
	}
	return nil
}

func (c *Config) validateLocking() error {
	switch c.Locking.Backend {
	case LockLocal:
	case LockRedis:
		if c.Locking.RedisAddr == "" {
			return errors.New("locking.redis_addr must be set when locking.backend is redis")
		}
		if c.Locking.WaitSeconds >= c.Locking.TTLSeconds {
			return errors.New("locking.ttl_seconds must be greater than locking.wait_seconds")
		}
	default:
		return fmt.Errorf("locking.backend: unsupported value %q (want local or redis)", c.Locking.Backend)
	}
	return ensurePositiveMap(map[string]int{
		"locking.ttl_seconds":  c.Locking.TTLSeconds,
		"locking.wait_seconds": c.Locking.WaitSeconds,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

// HasProfile reports whether id names a built-in or configured profile.
func (c *Config) HasProfile(id string) bool {
	id = strings.TrimSpace(id)
	if isBuiltinProfile(id) {
		return true
	}
	_, ok := c.Profiles[id]
	return ok
}

func isBuiltinProfile(id string) bool {
	return id == BuiltinManual || id == BuiltinAutomatic
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
