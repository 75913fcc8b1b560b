package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1, cfg.AntiBan.AccountAgeWeeks)
	assert.Equal(t, "09:00", cfg.AntiBan.ActiveHoursStart)
	assert.Equal(t, 15, cfg.Reconnect.GiveUpAfter)
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Server.Port = 0
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidateRejectsMalformedActiveHours(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.AntiBan.ActiveHoursStart = "25:99"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "antiban.active_hours_start")
}

func TestValidateRequiresWebhookURLWhenEnabled(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Webhook.Enabled = true
	cfg.Webhook.URL = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook.url")
}

func TestParseClockOffset(t *testing.T) {
	d, err := ParseClockOffset("09:30")
	require.NoError(t, err)
	assert.Equal(t, "9h30m0s", d.String())

	_, err = ParseClockOffset("bad")
	assert.Error(t, err)

	_, err = ParseClockOffset("24:00")
	assert.Error(t, err)
}

func TestReloadAppliesEnvOverride(t *testing.T) {
	t.Setenv("WABRIDGE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Reload())

	assert.Equal(t, "debug", cfg.Log.Level)
}
