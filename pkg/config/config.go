package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/multierr"

	"github.com/angelmondragon/procurement-backend/pkg/logger"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Checkout      CheckoutConfig
	Notifications NotificationsConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// validate reports every bad setting at once rather than the first.
func (c *Config) validate() error {
	return multierr.Combine(
		c.App.validate(),
		c.Checkout.validate(),
		c.Outbox.validate(),
		c.Cron.validate(),
	)
}

type AppConfig struct {
	Env          string `envconfig:"PROCUREMENT_APP_ENV" required:"true"`
	Port         string `envconfig:"PROCUREMENT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PROCUREMENT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PROCUREMENT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PROCUREMENT_LOG_FORMAT" default:"json"`
	// CORSOrigins is a comma separated allow list.
	CORSOrigins []string `envconfig:"PROCUREMENT_CORS_ORIGINS"`
	// RateLimitPerMinute caps authenticated requests per user; zero disables it.
	RateLimitPerMinute int `envconfig:"PROCUREMENT_RATE_LIMIT_PER_MINUTE" default:"300"`
}

// LoggerOptions builds the structured logger settings for one binary.
func (a AppConfig) LoggerOptions(service string) logger.Options {
	return logger.Options{
		ServiceName: service,
		Level:       logger.ParseLevel(a.LogLevel),
		WarnStack:   a.LogWarnStack,
		Format:      a.LogFormat,
		Fields:      map[string]any{"env": strings.ToLower(a.Env)},
	}
}

func (a AppConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.LogFormat)) {
	case "", logger.FormatJSON, logger.FormatConsole:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvLogFmt, logger.FormatJSON, logger.FormatConsole)
	}
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"PROCUREMENT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PROCUREMENT_DB_DSN"`
	Driver string `envconfig:"PROCUREMENT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PROCUREMENT_DB_HOST"`
	LegacyPort     int    `envconfig:"PROCUREMENT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PROCUREMENT_DB_USER"`
	LegacyPassword string `envconfig:"PROCUREMENT_DB_PASSWORD"`
	LegacyName     string `envconfig:"PROCUREMENT_DB_NAME"`
	LegacySSLMode  string `envconfig:"PROCUREMENT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PROCUREMENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PROCUREMENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PROCUREMENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PROCUREMENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"PROCUREMENT_DB_SLOW_QUERY" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PROCUREMENT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PROCUREMENT_REDIS_ADDR"`
	Password     string        `envconfig:"PROCUREMENT_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROCUREMENT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROCUREMENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PROCUREMENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PROCUREMENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROCUREMENT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROCUREMENT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PROCUREMENT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PROCUREMENT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PROCUREMENT_JWT_EXPIRATION_MINUTES" required:"true"`
	// CheckSessions rejects tokens whose jti is not present in the Redis session store.
	CheckSessions bool `envconfig:"PROCUREMENT_JWT_CHECK_SESSIONS" default:"false"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PROCUREMENT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PROCUREMENT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PROCUREMENT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL   time.Duration `envconfig:"PROCUREMENT_HTTP_IDEMPOTENCY_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PROCUREMENT_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"PROCUREMENT_GOOGLE_APPLICATION_CREDENTIALS"`
	CredentialsJSON        string `envconfig:"PROCUREMENT_GCP_CREDENTIALS_JSON"`
}

// PubSubConfig names the two event topics and the subscriptions the
// notifications worker drains, one per topic.
type PubSubConfig struct {
	OrdersTopic         string `envconfig:"PROCUREMENT_PUBSUB_ORDERS_TOPIC" default:"procurement-order-events"`
	OrdersSubscription  string `envconfig:"PROCUREMENT_PUBSUB_ORDERS_SUBSCRIPTION"`
	BillingTopic        string `envconfig:"PROCUREMENT_PUBSUB_BILLING_TOPIC" default:"procurement-billing-events"`
	BillingSubscription string `envconfig:"PROCUREMENT_PUBSUB_BILLING_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PROCUREMENT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PROCUREMENT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PROCUREMENT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"PROCUREMENT_OUTBOX_RETENTION_DAYS" default:"30"`
}

func (o OutboxConfig) validate() error {
	var err error
	if o.BatchSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxBatchSize))
	}
	if o.MaxAttempts <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvOutboxMaxAttempts))
	}
	return err
}

// CheckoutConfig bounds how long a checkout may run and how many supplier
// groups are written at once.
type CheckoutConfig struct {
	Timeout           time.Duration `envconfig:"PROCUREMENT_CHECKOUT_TIMEOUT" default:"30s"`
	GroupTimeout      time.Duration `envconfig:"PROCUREMENT_CHECKOUT_GROUP_TIMEOUT" default:"10s"`
	MaxParallelGroups int           `envconfig:"PROCUREMENT_CHECKOUT_MAX_PARALLEL_GROUPS" default:"4"`
	POIDMaxRetries    int           `envconfig:"PROCUREMENT_CHECKOUT_POID_MAX_RETRIES" default:"3"`
}

func (c CheckoutConfig) validate() error {
	var err error
	if c.Timeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCheckoutTimeout))
	}
	if c.GroupTimeout <= 0 || c.GroupTimeout > c.Timeout {
		err = multierr.Append(err, fmt.Errorf("%s must be positive and not exceed %s", EnvCheckoutGroupTimeout, EnvCheckoutTimeout))
	}
	if c.MaxParallelGroups <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s must be positive", EnvCheckoutMaxParallel))
	}
	return err
}

type NotificationsConfig struct {
	Enabled           bool          `envconfig:"PROCUREMENT_NOTIFICATIONS_ENABLED" default:"true"`
	DefaultWebhookURL string        `envconfig:"PROCUREMENT_NOTIFICATIONS_WEBHOOK_URL"`
	WebhookSecret     string        `envconfig:"PROCUREMENT_NOTIFICATIONS_WEBHOOK_SECRET"`
	Timeout           time.Duration `envconfig:"PROCUREMENT_NOTIFICATIONS_TIMEOUT" default:"10s"`
	FromAddress       string        `envconfig:"PROCUREMENT_NOTIFICATIONS_FROM" default:"orders@procurement.local"`
	RetentionDays     int           `envconfig:"PROCUREMENT_NOTIFICATIONS_RETENTION_DAYS" default:"90"`
}

type CronConfig struct {
	Interval              time.Duration `envconfig:"PROCUREMENT_CRON_INTERVAL" default:"1h"`
	LockTTL               time.Duration `envconfig:"PROCUREMENT_CRON_LOCK_TTL" default:"10m"`
	JobTimeout            time.Duration `envconfig:"PROCUREMENT_CRON_JOB_TIMEOUT" default:"2m"`
	SequenceRetentionDays int           `envconfig:"PROCUREMENT_CRON_SEQUENCE_RETENTION_DAYS" default:"30"`
}

// The current day's sequence rows are live, so at least two days are kept.
func (c CronConfig) validate() error {
	if c.SequenceRetentionDays < 2 {
		return fmt.Errorf("%s must be at least 2", EnvCronSequenceRetention)
	}
	return nil
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
