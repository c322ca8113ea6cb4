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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Storage      StorageConfig
	Media        MediaConfig
	Cache        CacheConfig
	CORS         CORSConfig
	Admin        AdminConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
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
	if err := cfg.Storage.validate(cfg.GCS); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CATALOG_APP_ENV" required:"true"`
	Port         string `envconfig:"CATALOG_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CATALOG_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CATALOG_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CATALOG_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CATALOG_DB_DSN"`
	Driver string `envconfig:"CATALOG_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CATALOG_DB_HOST"`
	LegacyPort     int    `envconfig:"CATALOG_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CATALOG_DB_USER"`
	LegacyPassword string `envconfig:"CATALOG_DB_PASSWORD"`
	LegacyName     string `envconfig:"CATALOG_DB_NAME"`
	LegacySSLMode  string `envconfig:"CATALOG_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CATALOG_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CATALOG_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CATALOG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CATALOG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CATALOG_DB_SLOW_QUERY" default:"200ms"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"CATALOG_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CATALOG_REDIS_ADDR"`
	Password     string        `envconfig:"CATALOG_REDIS_PASSWORD"`
	DB           int           `envconfig:"CATALOG_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CATALOG_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CATALOG_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CATALOG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CATALOG_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CATALOG_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CATALOG_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CATALOG_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CATALOG_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string `envconfig:"CATALOG_GCS_BUCKET_NAME"`
	Endpoint   string `envconfig:"CATALOG_GCS_ENDPOINT" default:"https://storage.googleapis.com"`
}

// StorageConfig selects the object store backing product images.
type StorageConfig struct {
	Driver string `envconfig:"CATALOG_STORAGE_DRIVER" default:"gcs"`
}

func (s StorageConfig) validate(gcs GCSConfig) error {
	switch strings.ToLower(strings.TrimSpace(s.Driver)) {
	case StorageDriverGCS:
		if strings.TrimSpace(gcs.BucketName) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCSBucket, EnvStorageDriver, StorageDriverGCS)
		}
		return nil
	case StorageDriverMemory:
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvStorageDriver, s.Driver)
	}
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"CATALOG_MEDIA_MAX_UPLOAD_MB" default:"5"`
	// MaxFormMB bounds the whole multipart body, all files included.
	MaxFormMB int `envconfig:"CATALOG_MEDIA_MAX_FORM_MB" default:"64"`
}

// MaxUploadBytes returns the per-file limit in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 5 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

// MaxFormBytes returns the multipart body limit in bytes.
func (m MediaConfig) MaxFormBytes() int64 {
	if m.MaxFormMB <= 0 {
		return 64 << 20
	}
	return int64(m.MaxFormMB) << 20
}

type CacheConfig struct {
	Enabled              bool          `envconfig:"CATALOG_CACHE_ENABLED" default:"true"`
	ListMaxAge           time.Duration `envconfig:"CATALOG_CACHE_LIST_MAX_AGE" default:"30m"`
	ListStale            time.Duration `envconfig:"CATALOG_CACHE_LIST_STALE" default:"1h"`
	DetailMaxAge         time.Duration `envconfig:"CATALOG_CACHE_DETAIL_MAX_AGE" default:"1h"`
	DetailStale          time.Duration `envconfig:"CATALOG_CACHE_DETAIL_STALE" default:"2h"`
	ImageTTL             time.Duration `envconfig:"CATALOG_CACHE_IMAGE_TTL" default:"24h"`
	ImageMaxCachedBytes  int64         `envconfig:"CATALOG_CACHE_IMAGE_MAX_BYTES" default:"1048576"`
	WriteTimeout         time.Duration `envconfig:"CATALOG_CACHE_WRITE_TIMEOUT" default:"2s"`
	InvalidationDeadline time.Duration `envconfig:"CATALOG_CACHE_INVALIDATION_TIMEOUT" default:"2s"`
}

type CORSConfig struct {
	AllowedOrigins string `envconfig:"CATALOG_CORS_ALLOWED_ORIGINS" default:"*"`
}

// Origins splits the configured comma separated origins.
func (c CORSConfig) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// AdminConfig guards catalog mutations. An empty secret disables the check.
type AdminConfig struct {
	JWTSecret string `envconfig:"CATALOG_ADMIN_JWT_SECRET"`
	JWTIssuer string `envconfig:"CATALOG_ADMIN_JWT_ISSUER" default:"catalog-admin"`
}

func (a AdminConfig) Enabled() bool {
	return strings.TrimSpace(a.JWTSecret) != ""
}

type RateLimitConfig struct {
	MutationWindow time.Duration `envconfig:"CATALOG_RATE_LIMIT_MUTATION_WINDOW" default:"1m"`
	MutationLimit  int           `envconfig:"CATALOG_RATE_LIMIT_MUTATION_LIMIT" default:"60"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"CATALOG_CRON_INTERVAL" default:"1h"`
	LockTTL           time.Duration `envconfig:"CATALOG_CRON_LOCK_TTL" default:"10m"`
	JobTimeout        time.Duration `envconfig:"CATALOG_CRON_JOB_TIMEOUT" default:"5m"`
	OrphanGracePeriod time.Duration `envconfig:"CATALOG_CRON_ORPHAN_GRACE_PERIOD" default:"24h"`
	DryRun            bool          `envconfig:"CATALOG_CRON_DRY_RUN" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CATALOG_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
