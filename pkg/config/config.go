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
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Gateway      GatewayConfig
	Freight      FreightConfig
	Checkout     CheckoutConfig
	Webhooks     WebhookConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LABSTORE_APP_ENV" required:"true"`
	Port         string `envconfig:"LABSTORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LABSTORE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"LABSTORE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"LABSTORE_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"LABSTORE_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LABSTORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LABSTORE_DB_DSN"`
	Driver string `envconfig:"LABSTORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LABSTORE_DB_HOST"`
	LegacyPort     int    `envconfig:"LABSTORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LABSTORE_DB_USER"`
	LegacyPassword string `envconfig:"LABSTORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"LABSTORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"LABSTORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LABSTORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LABSTORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LABSTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LABSTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"LABSTORE_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LABSTORE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LABSTORE_REDIS_ADDR"`
	Password     string        `envconfig:"LABSTORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LABSTORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LABSTORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LABSTORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LABSTORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LABSTORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LABSTORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the verification side of the identity provider's tokens.
// Issuance happens elsewhere.
type JWTConfig struct {
	Secret string `envconfig:"LABSTORE_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"LABSTORE_JWT_ISSUER" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite     bool `envconfig:"LABSTORE_USE_SQLITE" default:"false"`
	AutoMigrate   bool `envconfig:"LABSTORE_AUTO_MIGRATE" default:"false"`
	Notifications bool `envconfig:"LABSTORE_FEATURE_NOTIFICATIONS" default:"true"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"LABSTORE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"LABSTORE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"LABSTORE_PUBSUB_NOTIFICATION_TOPIC" default:"labstore-notifications"`
	OrdersTopic       string `envconfig:"LABSTORE_PUBSUB_ORDERS_TOPIC" default:"labstore-orders"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"LABSTORE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"LABSTORE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"LABSTORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"LABSTORE_OUTBOX_RETENTION_DAYS" default:"30"`
}

// GatewayConfig configures the hosted payment-link provider.
type GatewayConfig struct {
	BaseURL       string        `envconfig:"LABSTORE_GATEWAY_BASE_URL" required:"true"`
	APIKey        string        `envconfig:"LABSTORE_GATEWAY_API_KEY" required:"true"`
	WebhookSecret string        `envconfig:"LABSTORE_GATEWAY_WEBHOOK_SECRET"`
	Timeout       time.Duration `envconfig:"LABSTORE_GATEWAY_TIMEOUT" default:"10s"`
}

type FreightConfig struct {
	BaseURL string        `envconfig:"LABSTORE_FREIGHT_BASE_URL" required:"true"`
	Token   string        `envconfig:"LABSTORE_FREIGHT_TOKEN"`
	Timeout time.Duration `envconfig:"LABSTORE_FREIGHT_TIMEOUT" default:"8s"`
}

type CheckoutConfig struct {
	Currency          string `envconfig:"LABSTORE_CHECKOUT_CURRENCY" default:"BRL"`
	MaxInstallments   int    `envconfig:"LABSTORE_CHECKOUT_MAX_INSTALLMENTS" default:"12"`
	OriginPostalCode  string `envconfig:"LABSTORE_CHECKOUT_ORIGIN_POSTAL_CODE" required:"true"`
	RedirectURL       string `envconfig:"LABSTORE_CHECKOUT_REDIRECT_URL" required:"true"`
	NotifyTimeoutSecs int    `envconfig:"LABSTORE_CHECKOUT_NOTIFY_TIMEOUT_SECS" default:"10"`
}

// NotifyTimeout bounds the detached notification call issued after an order commits.
func (c CheckoutConfig) NotifyTimeout() time.Duration {
	if c.NotifyTimeoutSecs <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.NotifyTimeoutSecs) * time.Second
}

func (c CheckoutConfig) validate() error {
	if c.MaxInstallments < 1 || c.MaxInstallments > 12 {
		return fmt.Errorf("%s must be between 1 and 12", EnvCheckoutMaxInstallments)
	}
	return nil
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"LABSTORE_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
	MaxBodyBytes   int64         `envconfig:"LABSTORE_WEBHOOK_MAX_BODY_BYTES" default:"1048576"`
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
