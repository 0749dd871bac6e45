package config

// EnvPrefix is passed to envconfig; every field carries an explicit variable name.
const EnvPrefix = "REPAIRDESK"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvAppEnv     = "REPAIRDESK_APP_ENV"
	EnvPort       = "REPAIRDESK_APP_PORT"
	EnvLogLevel   = "REPAIRDESK_LOG_LEVEL"
	EnvDBDSN      = "REPAIRDESK_DB_DSN"
	EnvDBDriver   = "REPAIRDESK_DB_DRIVER"
	EnvDBHost     = "REPAIRDESK_DB_HOST"
	EnvDBUser     = "REPAIRDESK_DB_USER"
	EnvDBPassword = "REPAIRDESK_DB_PASSWORD"
	EnvDBName     = "REPAIRDESK_DB_NAME"
	EnvSQLitePath = "REPAIRDESK_SQLITE_PATH"
	EnvUseSQLite  = "REPAIRDESK_USE_SQLITE"
	EnvRedisURL   = "REPAIRDESK_REDIS_URL"
	EnvJWTSecret  = "REPAIRDESK_JWT_SECRET"
	EnvJWTIssuer  = "REPAIRDESK_JWT_ISSUER"
	EnvJWTExpMins = "REPAIRDESK_JWT_EXPIRATION_MINUTES"
	EnvCORSOrigin = "REPAIRDESK_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
