// Package config loads application settings from environment variables or
// a local .env file via viper.
package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	DBPath     string `mapstructure:"DB_PATH"`
	RedisURL   string `mapstructure:"REDIS_URL"`

	JWTSecret string `mapstructure:"JWT_SECRET"`
	JWTExpire string `mapstructure:"JWT_EXPIRE"`

	CookieSecure   bool   `mapstructure:"COOKIE_SECURE"`
	CookieSameSite string `mapstructure:"COOKIE_SAMESITE"`

	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `mapstructure:"GOOGLE_CALLBACK_URL"`

	ResetURLBase string `mapstructure:"RESET_URL_BASE"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	OtpGatewayURL string `mapstructure:"OTP_GATEWAY_URL"`
	OtpGatewayKey string `mapstructure:"OTP_GATEWAY_KEY"`

	S3Region        string `mapstructure:"S3_REGION"`
	S3Bucket        string `mapstructure:"S3_BUCKET"`
	S3Endpoint      string `mapstructure:"S3_ENDPOINT"`
	S3AccessKey     string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey     string `mapstructure:"S3_SECRET_KEY"`
	S3PublicBaseURL string `mapstructure:"S3_PUBLIC_BASE_URL"`
}

// LoadConfig reads configuration from a .env file or the environment.
func LoadConfig() (config Config, err error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DB_PATH", "data/accounts.db")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("JWT_EXPIRE", "360h")
	viper.SetDefault("COOKIE_SECURE", true)
	viper.SetDefault("COOKIE_SAMESITE", "none")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")

	for _, key := range []string{
		"SERVER_PORT", "DB_PATH", "REDIS_URL",
		"JWT_SECRET", "JWT_EXPIRE",
		"COOKIE_SECURE", "COOKIE_SAMESITE", "ALLOWED_ORIGINS",
		"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_CALLBACK_URL",
		"RESET_URL_BASE",
		"SMTP_HOST", "SMTP_PORT", "SMTP_FROM", "SMTP_PASSWORD",
		"OTP_GATEWAY_URL", "OTP_GATEWAY_KEY",
		"S3_REGION", "S3_BUCKET", "S3_ENDPOINT", "S3_ACCESS_KEY",
		"S3_SECRET_KEY", "S3_PUBLIC_BASE_URL",
	} {
		_ = viper.BindEnv(key)
	}

	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return config, fmt.Errorf("reading config file: %w", err)
		}
		err = nil
	}

	if err = viper.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("decoding config: %w", err)
	}

	return config, nil
}

// SessionTTL parses JWT_EXPIRE; a missing or malformed value yields zero,
// which the token service maps to its default.
func (c Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTExpire)
	if err != nil {
		return 0
	}
	return d
}

// SameSite maps the configured name onto http.SameSite. Unknown values
// fall back to None, the cross-site front end's requirement.
func (c Config) SameSite() http.SameSite {
	switch strings.ToLower(c.CookieSameSite) {
	case "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "default":
		return http.SameSiteDefaultMode
	default:
		return http.SameSiteNoneMode
	}
}

// Origins splits ALLOWED_ORIGINS into the list the CORS middleware wants.
func (c Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
