package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("QUEUE_BACKEND", "memory")
	t.Setenv("MAIL_PRIMARY_KEY", "key-1")
	t.Setenv("MAIL_SECONDARY_KEY", "key-2")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.WorkerConcurrency)
	assert.Equal(t, 2, cfg.WorkerRateLimit)
	assert.Equal(t, 5, cfg.JobAttempts)
	assert.Equal(t, 2*time.Second, cfg.JobBackoff)
	assert.Equal(t, 100, cfg.KeepCompletedCount)
	assert.Equal(t, time.Hour, cfg.KeepCompletedAge)
	assert.Equal(t, 100, cfg.MailDailyLimit)
	assert.Equal(t, 60*time.Second, cfg.MailSendTimeout)
	assert.Equal(t, "api", cfg.MailTransport)
	assert.Equal(t, "memory", cfg.QuotaBackend)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("WORKER_CONCURRENCY", "4")
	t.Setenv("MAIL_DAILY_LIMIT", "250")
	t.Setenv("JOB_BACKOFF", "500ms")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("SMTP_INSECURE_SKIP_VERIFY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, 250, cfg.MailDailyLimit)
	assert.Equal(t, 500*time.Millisecond, cfg.JobBackoff)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.SMTPInsecureSkipVerify)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"postgres without url", map[string]string{"QUEUE_BACKEND": "postgres"}},
		{"unknown backend", map[string]string{"QUEUE_BACKEND": "redis"}},
		{"missing secondary key", map[string]string{"MAIL_SECONDARY_KEY": ""}},
		{"unknown transport", map[string]string{"MAIL_TRANSPORT": "pigeon"}},
		{"unknown quota backend", map[string]string{"QUOTA_BACKEND": "etcd"}},
		{"non-positive daily limit", map[string]string{"MAIL_DAILY_LIMIT": "0"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv("DATABASE_URL", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
