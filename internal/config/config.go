package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	SecretKey   string   `mapstructure:"SECRET_KEY"`
	AuthIssuer  string   `mapstructure:"AUTH_ISSUER"`
	CORSOrigins []string `mapstructure:"ALLOWED_ORIGINS"`

	// S3 / file storage
	S3Bucket          string `mapstructure:"S3_BUCKET"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`

	// External prediction services
	DetectionURL       string  `mapstructure:"DETECTION_URL"`
	DetectionTimeoutMS int     `mapstructure:"DETECTION_TIMEOUT_MS"`
	LLMProvider        string  `mapstructure:"LLM_PROVIDER"`
	LLMModel           string  `mapstructure:"LLM_MODEL"`
	LLMAPIKey          string  `mapstructure:"LLM_API_KEY"`
	LLMAPIURL          string  `mapstructure:"LLM_API_URL"`
	LLMMaxTokens       int     `mapstructure:"LLM_MAX_TOKENS"`
	LLMTemperature     float64 `mapstructure:"LLM_TEMPERATURE"`
	LLMTimeoutMS       int     `mapstructure:"LLM_TIMEOUT_MS"`
	LLMSystemPrompt    string  `mapstructure:"LLM_SYSTEM_PROMPT"`
	EventLogPath       string  `mapstructure:"EVENT_LOG_PATH"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("DETECTION_URL", "http://localhost:8500")
	v.SetDefault("DETECTION_TIMEOUT_MS", 30000)
	v.SetDefault("LLM_PROVIDER", "gemini")
	v.SetDefault("LLM_MODEL", "gemini-2.5-flash")
	v.SetDefault("LLM_MAX_TOKENS", 512)
	v.SetDefault("LLM_TEMPERATURE", 0.2)
	v.SetDefault("LLM_TIMEOUT_MS", 60000)
	v.SetDefault("EVENT_LOG_PATH", "logs/llm.log")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"SECRET_KEY", "AUTH_ISSUER", "ALLOWED_ORIGINS",
		"S3_BUCKET", "S3_REGION", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_ENDPOINT",
		"DETECTION_URL", "DETECTION_TIMEOUT_MS",
		"LLM_PROVIDER", "LLM_MODEL", "LLM_API_KEY", "LLM_API_URL",
		"LLM_MAX_TOKENS", "LLM_TEMPERATURE", "LLM_TIMEOUT_MS", "LLM_SYSTEM_PROMPT",
		"EVENT_LOG_PATH", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("ALLOWED_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests share one user.")
		log.Println("WARNING: Do NOT use this configuration in production.")
		log.Println("WARNING: Set ENV=production and configure SECRET_KEY for production.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DetectionTimeout returns the text-detection call timeout as a Duration.
func (c *Config) DetectionTimeout() time.Duration {
	if c.DetectionTimeoutMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.DetectionTimeoutMS) * time.Millisecond
}

// LLMTimeout returns the model call timeout as a Duration.
func (c *Config) LLMTimeout() time.Duration {
	if c.LLMTimeoutMS <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.LLMTimeoutMS) * time.Millisecond
}

// Validate checks that the configuration is safe to run. Outside development
// mode SECRET_KEY must be set so that real JWT authentication is enforced,
// and the LLM needs either a Gemini key or an endpoint URL.
func (c *Config) Validate() error {
	if !c.IsDev() && c.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required when ENV=%q", c.Env)
	}
	if c.IsProduction() && c.S3Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required in production")
	}
	if strings.EqualFold(c.LLMProvider, "gemini") {
		if c.IsProduction() && c.LLMAPIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for the gemini provider in production")
		}
	} else if c.LLMAPIURL == "" && c.IsProduction() {
		return fmt.Errorf("LLM_API_URL is required for provider %q in production", c.LLMProvider)
	}
	return nil
}
