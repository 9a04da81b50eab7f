package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	PayoutWebhook PayoutWebhookConfig
	Ledger        LedgerConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env            string        `envconfig:"REMESAS_APP_ENV" required:"true"`
	Port           string        `envconfig:"REMESAS_APP_PORT" required:"true"`
	LogLevel       string        `envconfig:"REMESAS_LOG_LEVEL" default:"info"`
	LogWarnStack   bool          `envconfig:"REMESAS_LOG_WARN_STACK" default:"false"`
	RequestTimeout time.Duration `envconfig:"REMESAS_REQUEST_TIMEOUT" default:"30s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"REMESAS_DB_DSN"`
	Driver string `envconfig:"REMESAS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"REMESAS_DB_HOST"`
	LegacyPort     int    `envconfig:"REMESAS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"REMESAS_DB_USER"`
	LegacyPassword string `envconfig:"REMESAS_DB_PASSWORD"`
	LegacyName     string `envconfig:"REMESAS_DB_NAME"`
	LegacySSLMode  string `envconfig:"REMESAS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"REMESAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REMESAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REMESAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REMESAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"REMESAS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"REMESAS_REDIS_ADDR"`
	Password     string        `envconfig:"REMESAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"REMESAS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REMESAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REMESAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REMESAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REMESAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REMESAS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"REMESAS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"REMESAS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"REMESAS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// PayoutWebhookConfig carries the shared secret the payout partner signs
// notifications with plus the replay-protection TTL.
type PayoutWebhookConfig struct {
	SigningSecret  string        `envconfig:"REMESAS_PAYOUT_WEBHOOK_SECRET" required:"true"`
	IdempotencyTTL time.Duration `envconfig:"REMESAS_PAYOUT_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

// LedgerConfig names the accounts settlement postings move money between.
// Both are resolved to rows once at startup so a typo fails boot, not a webhook.
type LedgerConfig struct {
	PlatformLiabilityAccount string `envconfig:"REMESAS_LEDGER_PLATFORM_LIABILITY" default:"PLATFORM_LIABILITY"`
	PartnerPayableAccount    string `envconfig:"REMESAS_LEDGER_PARTNER_PAYABLE" default:"PARTNER_PAYABLE"`
}

type FeatureFlagsConfig struct {
	UseSQLite    bool `envconfig:"REMESAS_USE_SQLITE" default:"false"`
	AutoMigrate  bool `envconfig:"REMESAS_AUTO_MIGRATE" default:"false"`
	FraudScoring bool `envconfig:"REMESAS_FEATURE_FRAUD_SCORING" default:"false"`
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
