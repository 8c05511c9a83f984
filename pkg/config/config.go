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
	Cart         CartConfig
	Promotion    PromotionConfig
	Janitor      JanitorConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CARTD_APP_ENV" required:"true"`
	Port         string `envconfig:"CARTD_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARTD_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARTD_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CARTD_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"CARTD_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CARTD_DB_DSN"`
	Driver string `envconfig:"CARTD_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARTD_DB_HOST"`
	LegacyPort     int    `envconfig:"CARTD_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARTD_DB_USER"`
	LegacyPassword string `envconfig:"CARTD_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARTD_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARTD_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"CARTD_SQLITE_PATH" default:"cartd.db"`

	MaxOpenConns    int           `envconfig:"CARTD_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARTD_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARTD_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARTD_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARTD_REDIS_URL"`
	Address      string        `envconfig:"CARTD_REDIS_ADDR"`
	Password     string        `envconfig:"CARTD_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARTD_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARTD_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARTD_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARTD_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARTD_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARTD_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CARTD_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CARTD_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CARTD_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CartConfig drives store selection and cart persistence lifetimes.
type CartConfig struct {
	TTLMinutes         int           `envconfig:"CARTD_CART_TTL_MINUTES" default:"10080"`
	DefaultStoreDriver string        `envconfig:"CARTD_CART_DEFAULT_STORE_DRIVER" default:"cookie"`
	AuthedStoreDriver  string        `envconfig:"CARTD_CART_AUTHED_STORE_DRIVER" default:"redis"`
	CookieSecret       string        `envconfig:"CARTD_CART_COOKIE_SECRET" required:"true"`
	CookieSecure       bool          `envconfig:"CARTD_CART_COOKIE_SECURE" default:"true"`
	ClientCookieName   string        `envconfig:"CARTD_CART_CLIENT_COOKIE" default:"cart_client"`
	LockTTL            time.Duration `envconfig:"CARTD_CART_LOCK_TTL" default:"10s"`
	SessionTTL         time.Duration `envconfig:"CARTD_CART_SESSION_TTL" default:"2h"`
}

// TTL returns the store record lifetime.
func (c CartConfig) TTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return DefaultCartTTL
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

func (c CartConfig) validate() error {
	for _, driver := range []string{c.DefaultStoreDriver, c.AuthedStoreDriver} {
		switch strings.ToLower(strings.TrimSpace(driver)) {
		case StoreDriverCookie, StoreDriverRedis, StoreDriverDatabase:
		default:
			return fmt.Errorf("unsupported cart store driver %q", driver)
		}
	}
	return nil
}

type PromotionConfig struct {
	BaseURL string        `envconfig:"CARTD_PROMOTION_BASE_URL"`
	APIKey  string        `envconfig:"CARTD_PROMOTION_API_KEY"`
	Timeout time.Duration `envconfig:"CARTD_PROMOTION_TIMEOUT" default:"3s"`
}

// JanitorConfig drives the cron-worker cleanup cadence.
type JanitorConfig struct {
	Interval           time.Duration `envconfig:"CARTD_JANITOR_INTERVAL" default:"1h"`
	GuestRetentionDays int           `envconfig:"CARTD_JANITOR_GUEST_RETENTION_DAYS" default:"30"`
	LockTTL            time.Duration `envconfig:"CARTD_JANITOR_LOCK_TTL" default:"15m"`
}

func (j JanitorConfig) GuestRetention() time.Duration {
	return time.Duration(j.GuestRetentionDays) * 24 * time.Hour
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CARTD_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CARTD_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
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
