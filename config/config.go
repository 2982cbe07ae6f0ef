package config

import (
	"errors"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config.json or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	RateLimitPerMinute int
	AllowedOrigins     []string
	OAuthRedirectBase  string
	// Where the email verification link lands after success
	FrontendBaseURL string
	// Members whose username is listed here are promoted to ADMIN on join
	AdminUsernames []string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching/token store; memory is used when unreachable
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// OAuth
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	// SMTP for email verification and password reset
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Token and cache lifetimes
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RememberMeTTL   time.Duration
	EmailAuthTTL    time.Duration
	ViewCountTTL    time.Duration
	// Uploads
	UploadDir      string
	UploadMaxBytes int64
	// Registration security
	RegisterCaptchaEnabled bool
}

// ErrMissingJWTSecret is returned when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET must be set in config.json or environment variables")

var (
	cfg      AppConfig
	loadOnce sync.Once
)

// option binds one grouped config.json key to its environment variable and default.
type option struct {
	key string
	env string
	def any
}

var options = []option{
	{"app.port", "APP_PORT", "8080"},
	{"app.jwt_secret", "JWT_SECRET", nil},
	{"app.rate_limit_per_minute", "RATE_LIMIT_PER_MINUTE", 60},
	{"app.allowed_origins", "ALLOWED_ORIGINS", []string{"*"}},
	{"app.oauth_redirect_base", "OAUTH_REDIRECT_BASE", "http://localhost:8080"},
	{"app.frontend_base_url", "FRONTEND_BASE_URL", "http://localhost:3000"},
	{"app.admin_usernames", "ADMIN_USERNAMES", []string{}},
	{"app.register_captcha_enabled", "REGISTER_CAPTCHA_ENABLED", false},
	{"gin.mode", "GIN_MODE", "release"},
	{"gin.log_path", "GIN_PATH", "logs/go_gin.log"},
	{"database.uri", "DATABASE_URI", ""},
	{"database.host", "DB_HOST", "127.0.0.1"},
	{"database.port", "DB_PORT", "3306"},
	{"database.user", "DB_USER", "root"},
	{"database.password", "DB_PASSWORD", ""},
	{"database.name", "DB_NAME", "bbsforum"},
	{"redis.host", "REDIS_HOST", "127.0.0.1"},
	{"redis.port", "REDIS_PORT", 6379},
	{"redis.db", "REDIS_DB", 0},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"oauth.github_client_id", "GITHUB_CLIENT_ID", ""},
	{"oauth.github_client_secret", "GITHUB_CLIENT_SECRET", ""},
	{"oauth.google_client_id", "GOOGLE_CLIENT_ID", ""},
	{"oauth.google_client_secret", "GOOGLE_CLIENT_SECRET", ""},
	{"smtp.host", "SMTP_HOST", ""},
	{"smtp.port", "SMTP_PORT", 587},
	{"smtp.username", "SMTP_USERNAME", ""},
	{"smtp.password", "SMTP_PASSWORD", ""},
	{"smtp.from", "SMTP_FROM", ""},
	{"smtp.from_name", "SMTP_FROM_NAME", "bbsforum"},
	{"smtp.tls", "SMTP_TLS", true},
	{"log.level", "LOG_LEVEL", "info"},
	{"log.path", "LOG_PATH", "logs/app.log"},
	{"log.max_size_mb", "LOG_MAX_SIZE_MB", 100},
	{"log.max_backups", "LOG_MAX_BACKUPS", 3},
	{"log.max_age_days", "LOG_MAX_AGE_DAYS", 7},
	{"log.compress", "LOG_COMPRESS", false},
	{"auth.access_token_ttl", "ACCESS_TOKEN_TTL", "30m"},
	{"auth.refresh_token_ttl", "REFRESH_TOKEN_TTL", "24h"},
	{"auth.remember_me_ttl", "REMEMBER_ME_TTL", "336h"},
	{"auth.email_auth_ttl", "EMAIL_AUTH_TTL", "30m"},
	{"cache.view_count_ttl", "VIEW_COUNT_TTL", "1h"},
	{"upload.dir", "UPLOAD_DIR", "uploads"},
	{"upload.max_bytes", "UPLOAD_MAX_BYTES", 50 << 20},
}

// Load loads the application configuration. It should be called once during boot.
// Precedence: config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	loadOnce.Do(func() {
		c, err := LoadFile(filepath.Join("config", "config.json"))
		if err != nil {
			log.Fatal(err)
		}
		cfg = c
	})
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	return Load()
}

// LoadFile reads configuration from a grouped JSON file (missing file is fine),
// applying defaults and environment overrides.
func LoadFile(path string) (AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	for _, o := range options {
		if o.def != nil {
			v.SetDefault(o.key, o.def)
		}
		_ = v.BindEnv(o.key, o.env)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, err
		}
	}

	c := AppConfig{
		AppPort:                v.GetString("app.port"),
		JWTSecret:              v.GetString("app.jwt_secret"),
		RateLimitPerMinute:     v.GetInt("app.rate_limit_per_minute"),
		AllowedOrigins:         listOf(v, "app.allowed_origins"),
		OAuthRedirectBase:      strings.TrimRight(v.GetString("app.oauth_redirect_base"), "/"),
		FrontendBaseURL:        v.GetString("app.frontend_base_url"),
		AdminUsernames:         listOf(v, "app.admin_usernames"),
		RegisterCaptchaEnabled: v.GetBool("app.register_captcha_enabled"),
		GinMode:                v.GetString("gin.mode"),
		GinPath:                v.GetString("gin.log_path"),
		DatabaseURI:            v.GetString("database.uri"),
		DBHost:                 v.GetString("database.host"),
		DBPort:                 v.GetString("database.port"),
		DBUser:                 v.GetString("database.user"),
		DBPassword:             v.GetString("database.password"),
		DBName:                 v.GetString("database.name"),
		RedisHost:              v.GetString("redis.host"),
		RedisPort:              v.GetInt("redis.port"),
		RedisDB:                v.GetInt("redis.db"),
		RedisPassword:          v.GetString("redis.password"),
		GitHubClientID:         v.GetString("oauth.github_client_id"),
		GitHubClientSecret:     v.GetString("oauth.github_client_secret"),
		GoogleClientID:         v.GetString("oauth.google_client_id"),
		GoogleClientSecret:     v.GetString("oauth.google_client_secret"),
		SMTPHost:               v.GetString("smtp.host"),
		SMTPPort:               v.GetInt("smtp.port"),
		SMTPUsername:           v.GetString("smtp.username"),
		SMTPPassword:           v.GetString("smtp.password"),
		SMTPFrom:               v.GetString("smtp.from"),
		SMTPFromName:           v.GetString("smtp.from_name"),
		SMTPTLS:                v.GetBool("smtp.tls"),
		LogLevel:               strings.ToLower(v.GetString("log.level")),
		LogPath:                v.GetString("log.path"),
		LogMaxSizeMB:           v.GetInt("log.max_size_mb"),
		LogMaxBackups:          v.GetInt("log.max_backups"),
		LogMaxAgeDays:          v.GetInt("log.max_age_days"),
		LogCompress:            v.GetBool("log.compress"),
		AccessTokenTTL:         v.GetDuration("auth.access_token_ttl"),
		RefreshTokenTTL:        v.GetDuration("auth.refresh_token_ttl"),
		RememberMeTTL:          v.GetDuration("auth.remember_me_ttl"),
		EmailAuthTTL:           v.GetDuration("auth.email_auth_ttl"),
		ViewCountTTL:           v.GetDuration("cache.view_count_ttl"),
		UploadDir:              v.GetString("upload.dir"),
		UploadMaxBytes:         v.GetInt64("upload.max_bytes"),
	}

	if c.JWTSecret == "" {
		return AppConfig{}, ErrMissingJWTSecret
	}
	return c, nil
}

// listOf accepts either a JSON array or a comma separated env value.
func listOf(v *viper.Viper, key string) []string {
	raw := v.GetStringSlice(key)
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
