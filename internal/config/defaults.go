package config

const (
	defaultDataDir            = "~/.local/share/tmsbridge"
	defaultLogDir             = "~/.local/share/tmsbridge/logs"
	defaultAPIBind            = "127.0.0.1:7490"
	defaultStoreDriver        = "sqlite"
	defaultTMSTimeoutSeconds  = 30
	defaultTMSUserAgent       = "tmsbridge/dev"
	defaultSourceLocale       = "en"
	defaultProfile            = "manual"
	defaultDedupWindowSeconds = 60
	defaultMaxBodyBytes       = 1 << 20
	defaultLockBackend        = "local"
	defaultLockKeyPrefix      = "tmsbridge:unit:"
	defaultLockTTLSeconds     = 120
	defaultLockWaitSeconds    = 45
	defaultEventsTopic        = "tmsbridge.status"
	defaultNotifyTimeout      = 10
	defaultNotifyDedupWindow  = 600
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Driver names accepted by store.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Lock backends accepted by locking.backend.
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		TMS: TMS{
			TimeoutSeconds: defaultTMSTimeoutSeconds,
			UserAgent:      defaultTMSUserAgent,
		},
		Content: Content{
			SourceLocale:   defaultSourceLocale,
			DefaultProfile: defaultProfile,
		},
		Webhook: Webhook{
			DedupWindowSeconds: defaultDedupWindowSeconds,
			MaxBodyBytes:       defaultMaxBodyBytes,
		},
		Locking: Locking{
			Backend:     defaultLockBackend,
			KeyPrefix:   defaultLockKeyPrefix,
			TTLSeconds:  defaultLockTTLSeconds,
			WaitSeconds: defaultLockWaitSeconds,
		},
		Events: Events{
			Topic: defaultEventsTopic,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyTimeout,
			Ready:              true,
			Errors:             true,
			DedupWindowSeconds: defaultNotifyDedupWindow,
		},
		Metrics: Metrics{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// Built-in profile ids. They cannot be redefined in [profiles].
const (
	BuiltinManual    = "manual"
	BuiltinAutomatic = "automatic"
)
