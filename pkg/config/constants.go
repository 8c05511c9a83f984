package config

import "time"

const EnvPrefix = "CARTD"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StoreDriverCookie   = "cookie"
	StoreDriverRedis    = "redis"
	StoreDriverDatabase = "database"
)

// DefaultCartTTL is seven days.
const DefaultCartTTL = 7 * 24 * time.Hour

const (
	EnvAppEnv       = "CARTD_APP_ENV"
	EnvPort         = "CARTD_APP_PORT"
	EnvDBDSN        = "CARTD_DB_DSN"
	EnvDBHost       = "CARTD_DB_HOST"
	EnvDBUser       = "CARTD_DB_USER"
	EnvDBName       = "CARTD_DB_NAME"
	EnvRedisURL     = "CARTD_REDIS_URL"
	EnvJWTSecret    = "CARTD_JWT_SECRET"
	EnvJWTIssuer    = "CARTD_JWT_ISSUER"
	EnvCookieSecret = "CARTD_CART_COOKIE_SECRET"
	EnvCartTTL      = "CARTD_CART_TTL_MINUTES"
	EnvDefaultStore = "CARTD_CART_DEFAULT_STORE_DRIVER"
	EnvAuthedStore  = "CARTD_CART_AUTHED_STORE_DRIVER"
	EnvUseSQLite    = "CARTD_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
