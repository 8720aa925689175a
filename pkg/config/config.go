package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	Analytics    AnalyticsConfig
	ChannelSync  ChannelSyncConfig
	Cron         CronConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ROOMHIVE_APP_ENV" required:"true"`
	Port         string `envconfig:"ROOMHIVE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ROOMHIVE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ROOMHIVE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ROOMHIVE_DB_DSN"`
	Driver string `envconfig:"ROOMHIVE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ROOMHIVE_DB_HOST"`
	LegacyPort     int    `envconfig:"ROOMHIVE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ROOMHIVE_DB_USER"`
	LegacyPassword string `envconfig:"ROOMHIVE_DB_PASSWORD"`
	LegacyName     string `envconfig:"ROOMHIVE_DB_NAME"`
	LegacySSLMode  string `envconfig:"ROOMHIVE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ROOMHIVE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ROOMHIVE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ROOMHIVE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ROOMHIVE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ROOMHIVE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ROOMHIVE_REDIS_ADDR"`
	Password     string        `envconfig:"ROOMHIVE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ROOMHIVE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ROOMHIVE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ROOMHIVE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ROOMHIVE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ROOMHIVE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ROOMHIVE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ROOMHIVE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ROOMHIVE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ROOMHIVE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// RateLimitConfig holds the fixed-window limits per traffic surface.
type RateLimitConfig struct {
	Window           time.Duration `envconfig:"ROOMHIVE_RATE_LIMIT_WINDOW" default:"1m"`
	AllocationPerIP  int           `envconfig:"ROOMHIVE_RATE_LIMIT_ALLOCATION_PER_IP" default:"30"`
	BookingPerIP     int           `envconfig:"ROOMHIVE_RATE_LIMIT_BOOKING_PER_IP" default:"100"`
	AnalyticsPerIP   int           `envconfig:"ROOMHIVE_RATE_LIMIT_ANALYTICS_PER_IP" default:"20"`
	WebhookPerSource int           `envconfig:"ROOMHIVE_RATE_LIMIT_WEBHOOK_PER_SOURCE" default:"500"`
}

type AnalyticsConfig struct {
	SweepInterval   time.Duration `envconfig:"ROOMHIVE_ANALYTICS_SWEEP_INTERVAL" default:"15m"`
	RetentionMonths int           `envconfig:"ROOMHIVE_ANALYTICS_RETENTION_MONTHS" default:"12"`
}

type ChannelSyncConfig struct {
	MaxAttempts    int           `envconfig:"ROOMHIVE_CHANNEL_SYNC_MAX_ATTEMPTS" default:"6"`
	InitialBackoff time.Duration `envconfig:"ROOMHIVE_CHANNEL_SYNC_INITIAL_BACKOFF" default:"30s"`
	MaxBackoff     time.Duration `envconfig:"ROOMHIVE_CHANNEL_SYNC_MAX_BACKOFF" default:"10m"`
	BatchSize      int           `envconfig:"ROOMHIVE_CHANNEL_SYNC_BATCH_SIZE" default:"50"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ROOMHIVE_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"ROOMHIVE_CRON_LOCK_TTL" default:"20m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ROOMHIVE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ROOMHIVE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ROOMHIVE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	ChannelSyncTopic string `envconfig:"ROOMHIVE_PUBSUB_CHANNEL_SYNC_TOPIC" default:"rh-channel-sync"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ROOMHIVE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
