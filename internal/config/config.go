package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	LogEnv      string `env:"LOG_ENV" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AdminAPIKey string `env:"ADMIN_API_KEY"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	RateLimitRequests   int           `env:"RATE_LIMIT_REQUESTS" envDefault:"0"`
	RateLimitWindow     time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitMaxKeys    int           `env:"RATE_LIMIT_MAX_KEYS" envDefault:"10000"`
	RateLimitFailClosed bool          `env:"RATE_LIMIT_FAIL_CLOSED" envDefault:"true"`
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers set the client IP.
	// Empty means the socket peer is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	TokenTTL            time.Duration `env:"TOKEN_TTL" envDefault:"15m"`
	TokenStrictOrigin   bool          `env:"TOKEN_STRICT_ORIGIN" envDefault:"false"`
	TokenAllowedOrigins []string      `env:"TOKEN_ALLOWED_ORIGINS" envSeparator:","`

	ScanSessionMinLength int      `env:"SCAN_SESSION_MIN_LENGTH" envDefault:"16"`
	WarningURL           string   `env:"WARNING_URL" envDefault:"/warning"`
	TrackingParams       []string `env:"TRACKING_PARAMS" envSeparator:","`

	RiskOracleURL     string        `env:"RISK_ORACLE_URL"`
	RiskOracleTimeout time.Duration `env:"RISK_ORACLE_TIMEOUT" envDefault:"3s"`
	RiskStaticCap     int           `env:"RISK_STATIC_CAP" envDefault:"30"`
	RiskMaxPayloadLen int           `env:"RISK_MAX_PAYLOAD_LENGTH" envDefault:"2048"`
	RiskSafeMin       int           `env:"RISK_SAFE_MIN" envDefault:"80"`
	RiskLowMin        int           `env:"RISK_LOW_MIN" envDefault:"60"`
	RiskMediumMin     int           `env:"RISK_MEDIUM_MIN" envDefault:"40"`
	RiskHighMin       int           `env:"RISK_HIGH_MIN" envDefault:"20"`
	RiskCacheTTL      time.Duration `env:"RISK_CACHE_TTL" envDefault:"10m"`

	StegoOracleURL     string        `env:"STEGO_ORACLE_URL"`
	StegoOracleTimeout time.Duration `env:"STEGO_ORACLE_TIMEOUT" envDefault:"3s"`
	StegoMinConfidence float64       `env:"STEGO_MIN_CONFIDENCE" envDefault:"0.7"`
	StegoExtractionKey string        `env:"STEGO_EXTRACTION_KEY"`

	ContentBaseURL       string        `env:"CONTENT_BASE_URL"`
	ContentFetchTimeout  time.Duration `env:"CONTENT_FETCH_TIMEOUT" envDefault:"5s"`
	ContentFetchMaxBytes int64         `env:"CONTENT_FETCH_MAX_BYTES" envDefault:"20971520"`

	PolicyPath string `env:"POLICY_PATH"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}
	return Parse()
}

// Parse reads the process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.ScanSessionMinLength <= 0 {
		return errors.New("SCAN_SESSION_MIN_LENGTH must be positive")
	}
	if c.RiskStaticCap < 0 || c.RiskStaticCap > 100 {
		return errors.New("RISK_STATIC_CAP must be within 0..100")
	}
	if !(c.RiskSafeMin > c.RiskLowMin && c.RiskLowMin > c.RiskMediumMin && c.RiskMediumMin > c.RiskHighMin && c.RiskHighMin >= 0) {
		return errors.New("risk level thresholds must be strictly descending")
	}
	if c.StegoMinConfidence < 0 || c.StegoMinConfidence > 1 {
		return errors.New("STEGO_MIN_CONFIDENCE must be within 0..1")
	}
	if c.TokenStrictOrigin && len(c.TokenAllowedOrigins) == 0 {
		return errors.New("TOKEN_ALLOWED_ORIGINS is required when TOKEN_STRICT_ORIGIN is set")
	}
	for _, p := range c.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES: invalid entry %q", p)
			}
		}
	}
	return nil
}
