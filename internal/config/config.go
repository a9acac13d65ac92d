package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/timevault/timevault-go/internal/crypto"
)

type Config struct {
	Port        string
	Env         string
	DatabaseDSN string
	JWTSecret   string
	JWTExpiry   time.Duration

	// CapsuleKey is the envelope key for encrypted payloads. In a full
	// deployment this comes from a secret manager; here it travels through
	// the environment base64 encoded.
	CapsuleKey []byte

	MediaBucket string
	MediaRegion string
	MediaLocal  bool

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string
}

func Load() Config {
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseDSN: getEnv("DATABASE_DSN", "root:password@tcp(127.0.0.1:3306)/timevault?parseTime=true"),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		JWTExpiry:   24 * time.Hour,
		MediaBucket: getEnv("MEDIA_BUCKET", "timevault-media"),
		MediaRegion: getEnv("MEDIA_REGION", "us-east-1"),
		MediaLocal:  getEnv("MEDIA_LOCAL", "") == "true",
		SMTPHost:    getEnv("SMTP_HOST", ""),
		SMTPPort:    getEnv("SMTP_PORT", "2525"),
		SMTPUser:    getEnv("SMTP_USER", ""),
		SMTPPass:    getEnv("SMTP_PASS", ""),
		SMTPFrom:    getEnv("SMTP_FROM", "noreply@timevault.local"),
	}

	if cfg.Env == "production" && cfg.JWTSecret == "dev-secret-change-in-production" {
		slog.Error("JWT_SECRET must be set in production environment")
		os.Exit(1)
	}

	cfg.CapsuleKey = loadCapsuleKey(cfg.Env)

	return cfg
}

// loadCapsuleKey reads CAPSULE_KEY from the environment. Development falls
// back to an ephemeral key, which means encrypted capsules do not survive a
// restart; production refuses to start without a configured key.
func loadCapsuleKey(env string) []byte {
	encoded := os.Getenv("CAPSULE_KEY")
	if encoded == "" {
		if env == "production" {
			slog.Error("CAPSULE_KEY must be set in production environment")
			os.Exit(1)
		}
		generated, err := crypto.GenerateKey()
		if err != nil {
			slog.Error("failed to generate ephemeral capsule key", "error", err)
			os.Exit(1)
		}
		slog.Warn("CAPSULE_KEY not set, using ephemeral key; encrypted capsules will not survive restart")
		encoded = generated
	}

	key, err := crypto.DecodeKey(encoded)
	if err != nil {
		slog.Error("invalid CAPSULE_KEY", "error", err)
		os.Exit(1)
	}
	return key
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
