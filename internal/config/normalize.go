package config

import (
	"fmt"
	"os"
	"strings"

	"tmsbridge/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStore()
	c.normalizeTMS()
	if err := c.normalizeContent(); err != nil {
		return err
	}
	if err := c.normalizeProfiles(); err != nil {
		return err
	}
	c.normalizeWebhook()
	c.normalizeLocking()
	c.normalizeEvents()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("TMSBRIDGE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeStore() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	if c.Store.Driver == "" {
		c.Store.Driver = defaultStoreDriver
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		if value, ok := os.LookupEnv("TMSBRIDGE_STORE_DSN"); ok {
			c.Store.DSN = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeTMS() {
	c.TMS.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMS.BaseURL), "/")
	c.TMS.APIToken = strings.TrimSpace(c.TMS.APIToken)
	if c.TMS.APIToken == "" {
		if value, ok := os.LookupEnv("TMSBRIDGE_TMS_TOKEN"); ok {
			c.TMS.APIToken = strings.TrimSpace(value)
		}
	}
	c.TMS.ProjectID = strings.TrimSpace(c.TMS.ProjectID)
	c.TMS.WorkflowID = strings.TrimSpace(c.TMS.WorkflowID)
	c.TMS.UserAgent = strings.TrimSpace(c.TMS.UserAgent)
	if c.TMS.UserAgent == "" {
		c.TMS.UserAgent = defaultTMSUserAgent
	}
}

func (c *Config) normalizeContent() error {
	source := strings.TrimSpace(c.Content.SourceLocale)
	if source == "" {
		source = defaultSourceLocale
	}
	normalized, err := language.Normalize(source)
	if err != nil {
		return fmt.Errorf("content.source_locale: %w", err)
	}
	c.Content.SourceLocale = normalized

	targets, err := language.NormalizeList(c.Content.TargetLocales)
	if err != nil {
		return fmt.Errorf("content.target_locales: %w", err)
	}
	c.Content.TargetLocales = targets

	c.Content.DefaultProfile = strings.TrimSpace(c.Content.DefaultProfile)
	if c.Content.DefaultProfile == "" {
		c.Content.DefaultProfile = defaultProfile
	}
	return nil
}

func (c *Config) normalizeProfiles() error {
	if len(c.Profiles) == 0 {
		return nil
	}
	profiles := make(map[string]Profile, len(c.Profiles))
	for rawID, profile := range c.Profiles {
		id := strings.TrimSpace(rawID)
		if id == "" {
			return fmt.Errorf("profiles: empty profile id")
		}
		if len(profile.LanguageOverrides) > 0 {
			overrides := make(map[string]LanguageOverride, len(profile.LanguageOverrides))
			for rawLocale, override := range profile.LanguageOverrides {
				locale, err := language.Normalize(rawLocale)
				if err != nil {
					return fmt.Errorf("profiles.%s.language_overrides: %w", id, err)
				}
				override.Overrides = strings.ToLower(strings.TrimSpace(override.Overrides))
				overrides[locale] = override
			}
			profile.LanguageOverrides = overrides
		}
		profiles[id] = profile
	}
	c.Profiles = profiles
	return nil
}

func (c *Config) normalizeWebhook() {
	c.Webhook.Secret = strings.TrimSpace(c.Webhook.Secret)
	if c.Webhook.Secret == "" {
		if value, ok := os.LookupEnv("TMSBRIDGE_WEBHOOK_SECRET"); ok {
			c.Webhook.Secret = strings.TrimSpace(value)
		}
	}
	if c.Webhook.MaxBodyBytes <= 0 {
		c.Webhook.MaxBodyBytes = defaultMaxBodyBytes
	}
}

func (c *Config) normalizeLocking() {
	c.Locking.Backend = strings.ToLower(strings.TrimSpace(c.Locking.Backend))
	if c.Locking.Backend == "" {
		c.Locking.Backend = defaultLockBackend
	}
	c.Locking.RedisAddr = strings.TrimSpace(c.Locking.RedisAddr)
	if c.Locking.RedisPassword == "" {
		if value, ok := os.LookupEnv("TMSBRIDGE_REDIS_PASSWORD"); ok {
			c.Locking.RedisPassword = value
		}
	}
	if strings.TrimSpace(c.Locking.KeyPrefix) == "" {
		c.Locking.KeyPrefix = defaultLockKeyPrefix
	}
}

func (c *Config) normalizeEvents() {
	brokers := make([]string, 0, len(c.Events.Brokers))
	for _, broker := range c.Events.Brokers {
		if trimmed := strings.TrimSpace(broker); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	c.Events.Brokers = brokers
	c.Events.Topic = strings.TrimSpace(c.Events.Topic)
	if c.Events.Topic == "" {
		c.Events.Topic = defaultEventsTopic
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
