package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime settings. Everything comes from the environment,
// with a .env file picked up in development.
type Config struct {
	Port      string
	DSN       string
	JWTSecret string

	// MasterKey is the 32-byte vault master key. Compromise of this key
	// compromises every user's stored secrets at once; per-user keys are
	// derived from it rather than stored separately.
	MasterKey []byte

	BrokerBridgeURL string
	BrokerTimeout   time.Duration

	MonitorCheckInterval time.Duration
	MonitorCheckTimeout  time.Duration

	// CredentialRotationMaxAge is how old a stored secret may get before
	// rotation_required flips on.
	CredentialRotationMaxAge time.Duration
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, using environment only")
	}

	cfg := &Config{
		Port:                     envOr("PORT", "8080"),
		DSN:                      envOr("DATABASE_PATH", "tradevault.db"),
		JWTSecret:                envOr("JWT_SECRET", "tradevault-secret-key"),
		BrokerBridgeURL:          envOr("BROKER_BRIDGE_URL", "http://localhost:9090"),
		BrokerTimeout:            durationOr("BROKER_TIMEOUT", 30*time.Second),
		MonitorCheckInterval:     durationOr("MONITOR_CHECK_INTERVAL", 5*time.Minute),
		MonitorCheckTimeout:      durationOr("MONITOR_CHECK_TIMEOUT", 30*time.Second),
		CredentialRotationMaxAge: durationOr("CREDENTIAL_ROTATION_MAX_AGE", 90*24*time.Hour),
	}

	masterHex := os.Getenv("VAULT_MASTER_KEY")
	if masterHex == "" {
		return nil, fmt.Errorf("VAULT_MASTER_KEY environment variable is required")
	}
	key, err := hex.DecodeString(masterHex)
	if err != nil || len(key) != 32 {
		return nil, fmt.Errorf("VAULT_MASTER_KEY must be 64 hex characters (256 bits)")
	}
	cfg.MasterKey = key

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
		return fallback
	}
	return d
}
