package config

import (
	"testing"
	"time"
)

func TestResolveClinicAPIURL(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		expected string
	}{
		{
			name:     "Local target",
			target:   TargetLocal,
			expected: "http://localhost:8000/api",
		},
		{
			name:     "Docker target",
			target:   TargetDocker,
			expected: "http://clinic-backend:8000/api",
		},
		{
			name:     "Emulator target reaches the host through 10.0.2.2",
			target:   TargetEmulator,
			expected: "http://10.0.2.2:8000/api",
		},
		{
			name:     "Unknown target falls back to localhost",
			target:   "something-else",
			expected: "http://localhost:8000/api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ResolveClinicAPIURL(tt.target)
			if result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.GatewayPort != "8090" {
		t.Errorf("Expected default port 8090, got %s", cfg.GatewayPort)
	}
	if cfg.ClinicAPIURL != "http://localhost:8000/api" {
		t.Errorf("Expected local clinic URL by default, got %s", cfg.ClinicAPIURL)
	}
	if cfg.ProcessAPIURL != cfg.ClinicAPIURL {
		t.Errorf("Expected processing URL to share the clinic host, got %s", cfg.ProcessAPIURL)
	}
	if cfg.ClinicTimeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.ClinicTimeout)
	}
	if cfg.TokenTTL != time.Hour {
		t.Errorf("Expected 1h token TTL, got %v", cfg.TokenTTL)
	}
}

func TestLoadRespectsEnvironment(t *testing.T) {
	t.Setenv("DEPLOY_TARGET", TargetDocker)
	t.Setenv("GATEWAY_PORT", "9999")
	t.Setenv("CLINIC_HTTP_TIMEOUT", "5s")

	cfg := Load()

	if cfg.GatewayPort != "9999" {
		t.Errorf("Expected port 9999, got %s", cfg.GatewayPort)
	}
	if cfg.ClinicAPIURL != "http://clinic-backend:8000/api" {
		t.Errorf("Expected docker clinic URL, got %s", cfg.ClinicAPIURL)
	}
	if cfg.ClinicTimeout != 5*time.Second {
		t.Errorf("Expected 5s timeout, got %v", cfg.ClinicTimeout)
	}
}

func TestLoadExplicitClinicURLWins(t *testing.T) {
	t.Setenv("DEPLOY_TARGET", TargetDocker)
	t.Setenv("CLINIC_API_URL", "http://example.com/api")

	cfg := Load()
	if cfg.ClinicAPIURL != "http://example.com/api" {
		t.Errorf("Expected explicit URL to win, got %s", cfg.ClinicAPIURL)
	}
}
