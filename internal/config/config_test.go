package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MEDIA_URL", "/uploads/")

	cfg := Load()
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 60*time.Second, cfg.OTPResendAfter)
	assert.Equal(t, 15*time.Minute, cfg.ResetTokenTTL)
	assert.Equal(t, 168*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, int64(5<<20), cfg.MaxUploadSize)
	assert.Equal(t, "/uploads", cfg.MediaURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("OTP_TTL_MINUTES", "5")
	t.Setenv("USE_MEMORY_STORE", "true")
	t.Setenv("SMTP_PORT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.True(t, cfg.UseMemoryStore)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestValidateReportsMissingValues(t *testing.T) {
	cfg := &Config{OTPTTL: time.Minute, OTPResendAfter: time.Second, MaxUploadSize: 1}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP_PORT")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
