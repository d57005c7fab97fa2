package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, int64(5<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, "payments", cfg.Upload.PaymentFolder)
	assert.Equal(t, 30*time.Second, cfg.Certificate.RenderTimeout)
	assert.Equal(t, 10*time.Minute, cfg.VerifyTTL)
	assert.Equal(t, 3, cfg.Reminder.StaleDays)
	assert.Empty(t, cfg.Mail.OperatorEmails)
}

func TestFromViper_EnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("OPERATOR_EMAILS", " ops@brewzone.local, ,owner@brewzone.local ")
	t.Setenv("CERT_RENDER_TIMEOUT", "5s")

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	require.Len(t, cfg.Mail.OperatorEmails, 2)
	assert.Equal(t, "owner@brewzone.local", cfg.Mail.OperatorEmails[1])
	assert.Equal(t, 5*time.Second, cfg.Certificate.RenderTimeout)
}
