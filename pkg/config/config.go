package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "gemvault"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	PayFast      PayFastConfig
	Settlement   SettlementConfig
	Investment   InvestmentConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("GEMVAULT_DB_DSN is required")
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GEMVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"GEMVAULT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GEMVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GEMVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GEMVAULT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"GEMVAULT_DB_DSN"`

	MaxOpenConns    int           `envconfig:"GEMVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GEMVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GEMVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GEMVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GEMVAULT_REDIS_URL"`
	Address      string        `envconfig:"GEMVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"GEMVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"GEMVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GEMVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GEMVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GEMVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GEMVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GEMVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GEMVAULT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GEMVAULT_JWT_ISSUER" default:"gemvault"`
	ExpirationMinutes int    `envconfig:"GEMVAULT_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GEMVAULT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GEMVAULT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GEMVAULT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GEMVAULT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GEMVAULT_ARGON_KEY_LEN" default:"32"`
}

type PayFastConfig struct {
	MerchantID  string `envconfig:"GEMVAULT_PAYFAST_MERCHANT_ID" required:"true"`
	MerchantKey string `envconfig:"GEMVAULT_PAYFAST_MERCHANT_KEY" required:"true"`
	Passphrase  string `envconfig:"GEMVAULT_PAYFAST_PASSPHRASE"`
	ProcessURL  string `envconfig:"GEMVAULT_PAYFAST_PROCESS_URL" default:"https://www.payfast.co.za/eng/process"`
	ReturnURL   string `envconfig:"GEMVAULT_PAYFAST_RETURN_URL" required:"true"`
	CancelURL   string `envconfig:"GEMVAULT_PAYFAST_CANCEL_URL" required:"true"`
	NotifyURL   string `envconfig:"GEMVAULT_PAYFAST_NOTIFY_URL" required:"true"`
}

type SettlementConfig struct {
	AbandonedOrderTTL time.Duration `envconfig:"GEMVAULT_ABANDONED_ORDER_TTL" default:"60m"`
	SweepInterval     time.Duration `envconfig:"GEMVAULT_SWEEP_INTERVAL" default:"15m"`
}

type InvestmentConfig struct {
	RefundCooldown time.Duration `envconfig:"GEMVAULT_INVESTMENT_REFUND_COOLDOWN" default:"168h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GEMVAULT_AUTO_MIGRATE" default:"false"`
}
