package config

import (
	"os"
	"time"
)

// Deploy targets understood by ResolveClinicAPIURL. The original client picked
// its backend host per platform; here the target is an explicit setting.
const (
	TargetLocal    = "local"
	TargetDocker   = "docker"
	TargetEmulator = "emulator"
)

// Config carries all runtime settings for the workbench services.
type Config struct {
	// HTTP surface
	GatewayPort string
	LogLevel    string

	// Upstream clinic backend
	ClinicAPIURL  string
	ClinicTimeout time.Duration

	// Document-processing services share the clinic host unless overridden
	ProcessAPIURL string

	// Observability
	ElasticsearchURL string

	// Session persistence (optional)
	CouchbaseURL      string
	CouchbaseUsername string
	CouchbasePassword string
	CouchbaseBucket   string

	// Gateway session tokens
	TokenSecret string
	TokenTTL    time.Duration
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	clinicURL := os.Getenv("CLINIC_API_URL")
	if clinicURL == "" {
		clinicURL = ResolveClinicAPIURL(getEnvOrDefault("DEPLOY_TARGET", TargetLocal))
	}

	return &Config{
		GatewayPort:       getEnvOrDefault("GATEWAY_PORT", "8090"),
		LogLevel:          getEnvOrDefault("GATEWAY_LOG_LEVEL", "info"),
		ClinicAPIURL:      clinicURL,
		ClinicTimeout:     getEnvDuration("CLINIC_HTTP_TIMEOUT", 30*time.Second),
		ProcessAPIURL:     getEnvOrDefault("PROCESS_API_URL", clinicURL),
		ElasticsearchURL:  os.Getenv("ELASTICSEARCH_URL"),
		CouchbaseURL:      os.Getenv("COUCHBASE_URL"),
		CouchbaseUsername: os.Getenv("COUCHBASE_USERNAME"),
		CouchbasePassword: os.Getenv("COUCHBASE_PASSWORD"),
		CouchbaseBucket:   getEnvOrDefault("COUCHBASE_BUCKET", "osra"),
		TokenSecret:       getEnvOrDefault("SESSION_TOKEN_SECRET", "osra-dev-secret"),
		TokenTTL:          getEnvDuration("SESSION_TOKEN_TTL", time.Hour),
	}
}

// ResolveClinicAPIURL maps a deploy target to the backend base URL. Android
// emulators reach the host machine through 10.0.2.2, docker through the
// compose service name, everything else through localhost.
func ResolveClinicAPIURL(target string) string {
	switch target {
	case TargetEmulator:
		return "http://10.0.2.2:8000/api"
	case TargetDocker:
		return "http://clinic-backend:8000/api"
	default:
		return "http://localhost:8000/api"
	}
}

// Helper function to get environment variable with default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
