package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration. Empty infrastructure addresses
// fall back to in-memory implementations so the service runs without external
// dependencies in development.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisAddr     string
	JWTSigningKey string

	// VerificationKeyPath points at a serialized groth16 verifying key. When
	// empty the gate still accepts proof-less submissions but fails closed on
	// any submission that carries a proof.
	VerificationKeyPath string

	// Regions is the ordered region set the commitment tree is built from.
	// Order matters: reordering changes the published root.
	Regions []string

	SubmitRateLimit  int
	SubmitRateWindow time.Duration
	EventBuffer      int
}

const defaultRegions = "Mumbai,Delhi,Bangalore,Chennai,Kolkata,Hyderabad,Pune,Ahmedabad"

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("COMPLAINTS_ADDR")
	if addr == "" {
		addr = ":4000"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	regions := os.Getenv("COMPLAINTS_REGIONS")
	if regions == "" {
		regions = defaultRegions
	}

	return Server{
		Addr:                addr,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		JWTSigningKey:       jwtSigningKey,
		VerificationKeyPath: os.Getenv("ZKP_VERIFICATION_KEY"),
		Regions:             splitRegions(regions),
		SubmitRateLimit:     envInt("SUBMIT_RATE_LIMIT", 10),
		SubmitRateWindow:    time.Minute,
		EventBuffer:         envInt("EVENT_BUFFER", 64),
	}
}

func splitRegions(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
