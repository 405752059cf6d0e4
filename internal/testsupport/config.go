package testsupport

import (
	"path/filepath"
	"testing"

	"tmsbridge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Target locales default to de and es; the default profile stays manual.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Content.TargetLocales = []string{"de", "es"}
	cfgVal.TMS.BaseURL = "http://tms.invalid"
	cfgVal.TMS.TimeoutSeconds = 5
	cfgVal.Locking.WaitSeconds = 5

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithTargetLocales replaces the enabled target locales.
func WithTargetLocales(locales ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Content.TargetLocales = locales
	}
}

// WithDefaultProfile sets the profile new units receive.
func WithDefaultProfile(id string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Content.DefaultProfile = id
	}
}

// WithProfile registers a named profile.
func WithProfile(id string, profile config.Profile) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Profiles == nil {
			b.cfg.Profiles = map[string]config.Profile{}
		}
		b.cfg.Profiles[id] = profile
	}
}

// WithTMSBaseURL points the HTTP TMS client at a test server.
func WithTMSBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.TMS.BaseURL = url
	}
}

// WithAPIToken protects the daemon API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithWebhookSecret requires a shared secret on webhook deliveries.
func WithWebhookSecret(secret string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Webhook.Secret = secret
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// Bool returns a pointer for optional override fields.
func Bool(v bool) *bool {
	return &v
}
