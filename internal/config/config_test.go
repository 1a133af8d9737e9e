package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AUTH_SESSION_SECRET", "session-secret")
	t.Setenv("AUTH_ALGORITHM", "HS256")
	t.Setenv("AUTH_SHARED_SECRET", "provider-secret")
	t.Setenv("AUTH_ISSUER", "https://idp.example.com")
	t.Setenv("AUTH_AUDIENCE", "portal")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, BackendPostgres, cfg.Store.Events)
	assert.Equal(t, BackendPostgres, cfg.Store.Profiles)
	assert.Equal(t, "event", cfg.CMS.ContentType)
	assert.Equal(t, uint(3), cfg.CMS.RetryAttempts)
	assert.Equal(t, time.Second, cfg.CMS.RetryDelay)
	assert.Equal(t, 168*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, SinkLog, cfg.Activity.Sink)
	assert.False(t, cfg.Production())
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=eventportal sslmode=disable",
		cfg.DB.DSN(),
	)
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_URL", "postgres://u:p@db:5432/portal")
	t.Setenv("STORE_PROFILES", "dynamodb")
	t.Setenv("ACTIVITY_SINK", "kafka")
	t.Setenv("ACTIVITY_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("HTTP_CORS_ORIGINS", "https://exp3.org,https://www.exp3.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Production())
	assert.Equal(t, "postgres://u:p@db:5432/portal", cfg.DB.DSN())
	assert.Equal(t, BackendDynamoDB, cfg.Store.Profiles)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Activity.KafkaBrokers)
	assert.Equal(t, []string{"https://exp3.org", "https://www.exp3.org"}, cfg.HTTP.CORSOrigins)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing session secret", map[string]string{"AUTH_SESSION_SECRET": ""}, "AUTH_SESSION_SECRET"},
		{"unknown event store", map[string]string{"STORE_EVENTS": "mongo"}, "STORE_EVENTS"},
		{"kafka without brokers", map[string]string{"ACTIVITY_SINK": "kafka"}, "ACTIVITY_KAFKA_BROKERS"},
		{"nats without url", map[string]string{"ACTIVITY_SINK": "nats"}, "ACTIVITY_NATS_URL"},
		{"rs256 without key", map[string]string{"AUTH_ALGORITHM": "RS256"}, "AUTH_PUBLIC_KEY"},
		{"missing issuer", map[string]string{"AUTH_ISSUER": ""}, "AUTH_ISSUER"},
		{"missing audience", map[string]string{"AUTH_AUDIENCE": " "}, "AUTH_AUDIENCE"},
		{"zero retries", map[string]string{"CMS_RETRY_ATTEMPTS": "0"}, "CMS_RETRY_ATTEMPTS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
