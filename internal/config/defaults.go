package config

const (
	defaultStorePath         = "~/.local/state/wintail/positions.db"
	defaultRedisURL          = "redis://localhost:6379/0"
	defaultRedisPrefix       = "wintail"
	defaultFetchTimeout      = 10
	defaultWindowBytes       = 8192
	defaultServerAddr        = ":8000"
	defaultLogServerAddr     = ":8008"
	defaultFollowInterval    = 5
	defaultNATSSubjectPrefix = "wintail.wins"
	defaultLogFormat         = "text"
	defaultLogLevel          = "info"
	defaultSourceID          = "default"
	defaultSourceURL         = "http://localhost:8008/"
	defaultConfigPath        = "~/.config/wintail/config.toml"
	envConfigPath            = "WINTAIL_CONFIG"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Store: Store{
			Backend:     BackendSQLite,
			Path:        defaultStorePath,
			RedisURL:    defaultRedisURL,
			RedisPrefix: defaultRedisPrefix,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeout,
			WindowBytes:    defaultWindowBytes,
		},
		Server: Server{
			Addr: defaultServerAddr,
		},
		LogServer: LogServer{
			Addr: defaultLogServerAddr,
		},
		Follow: Follow{
			IntervalSeconds: defaultFollowInterval,
		},
		NATS: NATS{
			SubjectPrefix: defaultNATSSubjectPrefix,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
