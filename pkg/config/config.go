package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"
)

type Config struct {
	App             AppConfig
	Service         ServiceConfig
	DB              DBConfig
	Redis           RedisConfig
	JWT             JWTConfig
	Password        PasswordConfig
	AuthRateLimit   AuthRateLimitConfig
	UploadRateLimit UploadRateLimitConfig
	FeatureFlags    FeatureFlagsConfig
	GCP             GCPConfig
	GCS             GCSConfig
	Media           MediaConfig
	PubSub          PubSubConfig
	Outbox          OutboxConfig
	Cron            CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error
	if c.JWT.AccessTokenTTL() <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvJWTExpMins))
	}
	if c.JWT.RefreshTokenTTL() <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvRefreshTokenTTLMinutes))
	}
	if c.App.IsProd() && len(c.JWT.Secret) < 32 {
		err = multierr.Append(err, fmt.Errorf("%s must be at least 32 characters in production", EnvJWTSecret))
	}
	if c.Media.MaxImageBytes <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvMediaMaxImageBytes))
	}
	if c.Media.MaxImagesPerRequest <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvMediaMaxImagesPerRequest))
	}
	if c.Outbox.Enabled && !c.PubSub.Enabled() {
		err = multierr.Append(err, fmt.Errorf("%s requires %s", EnvOutboxEnabled, EnvPubSubReportEventsTopic))
	}
	if c.Cron.Interval <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCronInterval))
	}
	return err
}

type AppConfig struct {
	Env          string   `envconfig:"CIVICPULSE_APP_ENV" required:"true"`
	Port         string   `envconfig:"CIVICPULSE_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"CIVICPULSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CIVICPULSE_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"CIVICPULSE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Name string `envconfig:"CIVICPULSE_SERVICE_NAME" default:"civicpulse-api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CIVICPULSE_DB_DSN"`
	Driver string `envconfig:"CIVICPULSE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CIVICPULSE_DB_HOST"`
	Port     int    `envconfig:"CIVICPULSE_DB_PORT" default:"5432"`
	User     string `envconfig:"CIVICPULSE_DB_USER"`
	Password string `envconfig:"CIVICPULSE_DB_PASSWORD"`
	Name     string `envconfig:"CIVICPULSE_DB_NAME"`
	SSLMode  string `envconfig:"CIVICPULSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CIVICPULSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CIVICPULSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CIVICPULSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CIVICPULSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CIVICPULSE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CIVICPULSE_REDIS_ADDR"`
	Password     string        `envconfig:"CIVICPULSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CIVICPULSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CIVICPULSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CIVICPULSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CIVICPULSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CIVICPULSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CIVICPULSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"CIVICPULSE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"CIVICPULSE_JWT_ISSUER" default:"civicpulse"`
	// 7 days. Long for an access token; kept until product decides otherwise.
	ExpirationMinutes      int `envconfig:"CIVICPULSE_JWT_EXPIRATION_MINUTES" default:"10080"`
	RefreshTokenTTLMinutes int `envconfig:"CIVICPULSE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CIVICPULSE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CIVICPULSE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CIVICPULSE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CIVICPULSE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CIVICPULSE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CIVICPULSE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CIVICPULSE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CIVICPULSE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CIVICPULSE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CIVICPULSE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CIVICPULSE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type UploadRateLimitConfig struct {
	Window    time.Duration `envconfig:"CIVICPULSE_UPLOAD_RATE_LIMIT_WINDOW" default:"1m"`
	UserLimit int           `envconfig:"CIVICPULSE_UPLOAD_RATE_LIMIT_USER_LIMIT" default:"30"`
}

type FeatureFlagsConfig struct {
	AutoMigrate      bool `envconfig:"CIVICPULSE_AUTO_MIGRATE" default:"false"`
	AllowAdminSignup bool `envconfig:"CIVICPULSE_FEATURE_ALLOW_ADMIN_SIGNUP" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CIVICPULSE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"CIVICPULSE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CIVICPULSE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName string        `envconfig:"CIVICPULSE_GCS_BUCKET_NAME" required:"true"`
	PublicBase string        `envconfig:"CIVICPULSE_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	Timeout    time.Duration `envconfig:"CIVICPULSE_GCS_TIMEOUT" default:"30s"`
}

type MediaConfig struct {
	MaxImageBytes       int64  `envconfig:"CIVICPULSE_MEDIA_MAX_IMAGE_BYTES" default:"5242880"`
	MaxImagesPerRequest int    `envconfig:"CIVICPULSE_MEDIA_MAX_IMAGES_PER_REQUEST" default:"5"`
	ObjectPrefix        string `envconfig:"CIVICPULSE_MEDIA_OBJECT_PREFIX" default:"reports"`
}

type PubSubConfig struct {
	ReportEventsTopic string `envconfig:"CIVICPULSE_PUBSUB_REPORT_EVENTS_TOPIC"`
}

// Enabled reports whether report events should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ReportEventsTopic) != ""
}

// OutboxConfig controls the transactional outbox. When enabled the API writes
// report events to outbox_events and cmd/outbox-publisher ships them.
type OutboxConfig struct {
	Enabled      bool          `envconfig:"CIVICPULSE_OUTBOX_ENABLED" default:"false"`
	BatchSize    int           `envconfig:"CIVICPULSE_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"CIVICPULSE_OUTBOX_POLL_INTERVAL" default:"500ms"`
	MaxAttempts  int           `envconfig:"CIVICPULSE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	MetricsAddr  string        `envconfig:"CIVICPULSE_OUTBOX_METRICS_ADDR" default:":9091"`
}

// CronConfig drives cmd/cron-worker maintenance jobs.
type CronConfig struct {
	Interval            time.Duration `envconfig:"CIVICPULSE_CRON_INTERVAL" default:"1h"`
	OutboxRetentionDays int           `envconfig:"CIVICPULSE_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays    int           `envconfig:"CIVICPULSE_CRON_DLQ_RETENTION_DAYS" default:"90"`
	OrphanImageMinAge   time.Duration `envconfig:"CIVICPULSE_CRON_ORPHAN_IMAGE_MIN_AGE" default:"48h"`
	MetricsAddr         string        `envconfig:"CIVICPULSE_CRON_METRICS_ADDR" default:":9092"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
