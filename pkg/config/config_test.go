package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOCUMENT_BACKEND", "memory")
	t.Setenv("REALTIME_BACKEND", "memory")
	t.Setenv("AUTH_MODE", "session")
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.DocumentBackend)
	assert.Equal(t, BackendMemory, cfg.RealtimeBackend)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.WeeklyMessageCap)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.NeedsFirebase())
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("DOCUMENT_BACKEND", "cassandra")

	_, err := Load()
	assert.Error(t, err)
}

func TestFirebaseRealtimeNeedsDatabaseURL(t *testing.T) {
	t.Setenv("DOCUMENT_BACKEND", "memory")
	t.Setenv("REALTIME_BACKEND", "firebase")
	t.Setenv("FIREBASE_DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestSessionSecretRequiredOutsideDevelopment(t *testing.T) {
	t.Setenv("DOCUMENT_BACKEND", "memory")
	t.Setenv("REALTIME_BACKEND", "memory")
	t.Setenv("AUTH_MODE", "session")
	t.Setenv("ENVIRONMENT", "production")

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{name: "empty", secret: "", wantErr: true},
		{name: "default", secret: "change-me", wantErr: true},
		{name: "too short", secret: "hunter2", wantErr: true},
		{name: "strong", secret: "3f9c1e7a5b2d4c6e8f0a1b3c5d7e9f11", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SESSION_SECRET", tt.secret)

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.secret, cfg.SessionSecret)
		})
	}
}

func TestWeakSessionSecretAllowedInDevelopment(t *testing.T) {
	t.Setenv("DOCUMENT_BACKEND", "memory")
	t.Setenv("REALTIME_BACKEND", "memory")
	t.Setenv("AUTH_MODE", "session")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("SESSION_SECRET", "change-me")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "change-me", cfg.SessionSecret)
}
