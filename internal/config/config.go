// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/maplewind/maplewind-api/internal/auth"
	"github.com/maplewind/maplewind-api/internal/auth/kakao"
)

type Config struct {
	HTTPAddr     string   `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	AllowOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	CookieSecure bool     `env:"COOKIE_SECURE" envDefault:"false"`

	SecretKey          string `env:"JWT_SECRET_KEY,required,notEmpty"`
	Algorithm          string `env:"ALGORITHM" envDefault:"HS256"`
	AccessTokenMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
	RefreshTokenDays   int    `env:"REFRESH_TOKEN_EXPIRE_DAYS" envDefault:"14"`
	SnowflakeNode      int64  `env:"SNOWFLAKE_NODE" envDefault:"1"`

	KakaoClientID     string `env:"KAKAO_CLIENT_ID"`
	KakaoClientSecret string `env:"KAKAO_CLIENT_SECRET"`
	KakaoRedirectURI  string `env:"KAKAO_REDIRECT_URI"`
	KakaoAdminKey     string `env:"KAKAO_ADMIN_KEY"`

	RedisURL string        `env:"REDIS_URL"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

// Load reads .env when present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.AccessTokenMinutes < 1 || cfg.RefreshTokenDays < 1 {
		return Config{}, fmt.Errorf("parse config: token lifetimes must be positive")
	}
	origins, err := parseOrigins(cfg.AllowOrigins)
	if err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.AllowOrigins = origins
	return cfg, nil
}

// parseOrigins keeps explicit origins only. CORS runs with credentials, so a
// wildcard would hand the refresh cookie to any site.
func parseOrigins(raw []string) ([]string, error) {
	var out []string
	for _, o := range raw {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
			continue
		case strings.Contains(o, "*"):
			return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS must list explicit origins, got %q", o)
		}
		out = append(out, strings.TrimSuffix(o, "/"))
	}
	return out, nil
}

func (c Config) Auth() auth.Config {
	return auth.Config{
		SecretKey:     []byte(c.SecretKey),
		Algorithm:     c.Algorithm,
		AccessTTL:     time.Duration(c.AccessTokenMinutes) * time.Minute,
		RefreshTTL:    time.Duration(c.RefreshTokenDays) * 24 * time.Hour,
		KakaoAdminKey: c.KakaoAdminKey,
	}
}

// KakaoEnabled reports whether the OAuth client credentials are present.
func (c Config) KakaoEnabled() bool {
	return c.KakaoClientID != "" && c.KakaoRedirectURI != ""
}

func (c Config) Kakao() kakao.Config {
	return kakao.Config{
		ClientID:     c.KakaoClientID,
		ClientSecret: c.KakaoClientSecret,
		RedirectURL:  c.KakaoRedirectURI,
	}
}
