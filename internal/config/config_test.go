package config

import (
	"strings"
	"testing"
)

func setRequiredEnvs(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_BACKEND", "firestore")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "playrate-test")
}

func TestLoadSuccess(t *testing.T) {
	setRequiredEnvs(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_READ_TIMEOUT", "30")
	t.Setenv("ENTITY_COLLECTION", "games")
	t.Setenv("SUMMARY_TIMEOUT_SECS", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Fatalf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.ReadTimeoutSecs != 30 {
		t.Fatalf("ReadTimeoutSecs = %d, want 30", cfg.ReadTimeoutSecs)
	}
	if cfg.EntityCollection != "games" {
		t.Fatalf("EntityCollection = %s, want games", cfg.EntityCollection)
	}
	if cfg.SummaryTimeoutSecs != 10 {
		t.Fatalf("SummaryTimeoutSecs = %d, want 10", cfg.SummaryTimeoutSecs)
	}
}

func TestLoadMemoryBackendNeedsNoProject(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Fatalf("StoreBackend = %s, want %s", cfg.StoreBackend, BackendMemory)
	}
	if cfg.EntityCollection != "entities" {
		t.Fatalf("EntityCollection = %s, want entities", cfg.EntityCollection)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T)
		wantErr string
	}{
		{
			name: "missing project with firestore backend",
			setup: func(t *testing.T) {
				setRequiredEnvs(t)
				t.Setenv("GOOGLE_CLOUD_PROJECT", "")
			},
			wantErr: "GOOGLE_CLOUD_PROJECT",
		},
		{
			name: "unknown backend",
			setup: func(t *testing.T) {
				setRequiredEnvs(t)
				t.Setenv("STORE_BACKEND", "cassandra")
			},
			wantErr: "STORE_BACKEND",
		},
		{
			name: "non-positive summary timeout",
			setup: func(t *testing.T) {
				setRequiredEnvs(t)
				t.Setenv("SUMMARY_TIMEOUT_SECS", "0")
			},
			wantErr: "SUMMARY_TIMEOUT_SECS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup(t)
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Load() error = %v, want contains %q", err, tt.wantErr)
			}
		})
	}
}
