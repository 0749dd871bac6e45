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
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"REPAIRDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"REPAIRDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"REPAIRDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"REPAIRDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"REPAIRDESK_DB_DSN"`
	Driver string `envconfig:"REPAIRDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"REPAIRDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"REPAIRDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"REPAIRDESK_DB_USER"`
	LegacyPassword string `envconfig:"REPAIRDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"REPAIRDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"REPAIRDESK_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"REPAIRDESK_SQLITE_PATH" default:"repairdesk.db"`

	MaxOpenConns    int           `envconfig:"REPAIRDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"REPAIRDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"REPAIRDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"REPAIRDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements slower than this at warn; 0 disables it.
	SlowQueryThreshold time.Duration `envconfig:"REPAIRDESK_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the sqlite dialector should be used.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

// Redis is optional; when neither URL nor address is set the auth rate limiter is disabled.
type RedisConfig struct {
	URL          string        `envconfig:"REPAIRDESK_REDIS_URL"`
	Address      string        `envconfig:"REPAIRDESK_REDIS_ADDR"`
	Password     string        `envconfig:"REPAIRDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"REPAIRDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"REPAIRDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"REPAIRDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"REPAIRDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"REPAIRDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"REPAIRDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"REPAIRDESK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"REPAIRDESK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"REPAIRDESK_JWT_EXPIRATION_MINUTES" required:"true"`
	CookieName        string `envconfig:"REPAIRDESK_JWT_COOKIE_NAME" default:"access_token"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"REPAIRDESK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"REPAIRDESK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"REPAIRDESK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"REPAIRDESK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"REPAIRDESK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"REPAIRDESK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"REPAIRDESK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"REPAIRDESK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"REPAIRDESK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"REPAIRDESK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"REPAIRDESK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"REPAIRDESK_CORS_ALLOWED_ORIGINS" default:"http://localhost:4200"`
	MaxAgeSeconds  int      `envconfig:"REPAIRDESK_CORS_MAX_AGE_SECONDS" default:"300"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"REPAIRDESK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"REPAIRDESK_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.IsSQLite() {
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		if db.DSN == "" {
			return fmt.Errorf("%s is required when the sqlite driver is selected", EnvSQLitePath)
		}
		return nil
	}
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
