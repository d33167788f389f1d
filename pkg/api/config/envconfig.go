package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type EnvConfig struct {
	Port        string `envconfig:"PORT" default:"8000"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON     bool   `envconfig:"LOG_JSON" default:"false"`

	AuthSecret     string `envconfig:"AUTH_SECRET" required:"true"`
	AccessTokenTTL int    `envconfig:"ACCESS_TOKEN_TTL" default:"3600"`
	// AuthUsers is a comma-separated list of "username:secret:scope|scope"
	// entries. The secret may be a bcrypt hash ($2...) or plaintext.
	AuthUsers string `envconfig:"AUTH_USERS"`
	// APIKeys is a comma-separated list of static API keys accepted via the
	// X-API-Key header.
	APIKeys      string `envconfig:"API_KEYS"`
	APIKeyScopes string `envconfig:"API_KEY_SCOPES" default:"user"`

	MaxFileSize          int64 `envconfig:"MAX_FILE_SIZE" default:"10485760"` // 10 MB
	DefaultMaxConcurrent int   `envconfig:"DEFAULT_MAX_CONCURRENT" default:"5"`
	MaxPageSize          int   `envconfig:"MAX_PAGE_SIZE" default:"100"`

	ValkeyAddr     string `envconfig:"VALKEY_ADDR"`
	ValkeyPassword string `envconfig:"VALKEY_PASSWORD"`
	ValkeyDB       int    `envconfig:"VALKEY_DB" default:"0"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"verdict-artifacts"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`

	JudgeAPIKey  string `envconfig:"JUDGE_API_KEY"`
	JudgeBaseURL string `envconfig:"JUDGE_BASE_URL"`
	JudgeModel   string `envconfig:"JUDGE_MODEL"`
}

func ValidateEnv() (*EnvConfig, error) {
	if os.Getenv("ENVIRONMENT") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("ℹ No .env file found")
		} else {
			log.Println("✓ Loaded .env file")
		}
	}

	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var errors []string

	if len(cfg.AuthSecret) < 32 {
		errors = append(errors, "  ❌ AUTH_SECRET must be at least 32 characters")
	}

	if cfg.AuthUsers == "" && cfg.APIKeys == "" {
		errors = append(errors, "  ❌ At least one of AUTH_USERS or API_KEYS must be set")
	}

	for _, entry := range SplitList(cfg.AuthUsers) {
		if strings.Count(entry, ":") != 2 {
			errors = append(errors, fmt.Sprintf("  ❌ AUTH_USERS entry %q must be username:secret:scope|scope", entry))
		}
	}

	if cfg.S3Endpoint != "" && (cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		errors = append(errors, "  ❌ S3_ACCESS_KEY and S3_SECRET_KEY are required when S3_ENDPOINT is set")
	}

	if cfg.MaxFileSize <= 0 {
		errors = append(errors, "  ❌ MAX_FILE_SIZE must be positive")
	}

	if cfg.DefaultMaxConcurrent < 1 {
		errors = append(errors, "  ❌ DEFAULT_MAX_CONCURRENT must be at least 1")
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return &cfg, nil
}

// SplitList splits a comma-separated env value, trimming whitespace and
// dropping empty entries.
func SplitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

func (c *EnvConfig) Print(fmtr func(string, ...interface{})) {
	fmtr("📋 Configuration:\n")
	fmtr("  Environment: %s\n", c.Environment)
	fmtr("  Port: %s\n", c.Port)
	fmtr("  Auth Secret: %s\n", MaskSecret(c.AuthSecret))
	fmtr("  Access Token TTL: %ds\n", c.AccessTokenTTL)
	fmtr("  Users: %d, API keys: %d\n", len(SplitList(c.AuthUsers)), len(SplitList(c.APIKeys)))
	fmtr("  Max file size: %d bytes\n", c.MaxFileSize)
	fmtr("  Default max concurrent: %d\n", c.DefaultMaxConcurrent)

	if c.ValkeyAddr != "" {
		fmtr("  Valkey: ✓ %s (db %d)\n", c.ValkeyAddr, c.ValkeyDB)
	} else {
		fmtr("  Valkey: ✗ Disabled (in-memory fallback)\n")
	}

	if c.S3Endpoint != "" {
		fmtr("  Artifacts: ✓ %s/%s\n", c.S3Endpoint, c.S3Bucket)
	} else {
		fmtr("  Artifacts: ✗ Disabled\n")
	}

	if c.JudgeAPIKey != "" {
		fmtr("  Judge: ✓ Enabled (model %s)\n", c.JudgeModel)
		fmtr("    API Key: %s\n", MaskSecret(c.JudgeAPIKey))
	} else {
		fmtr("  Judge: ✗ Disabled (heuristic scoring only)\n")
	}
}
