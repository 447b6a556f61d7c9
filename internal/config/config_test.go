package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_InstanceID(t *testing.T) {
	t.Run("explicit id is kept", func(t *testing.T) {
		t.Setenv("INSTANCE_ID", "gw-1")
		assert.Equal(t, "gw-1", Load().InstanceID)
	})

	t.Run("generated ids differ per process on one host", func(t *testing.T) {
		t.Setenv("INSTANCE_ID", "")
		t.Setenv("HOSTNAME", "shared-host")

		a, b := Load().InstanceID, Load().InstanceID
		assert.NotEmpty(t, a)
		assert.NotEqual(t, a, b)
		assert.NotEqual(t, "shared-host", a)
	})
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("MAX_JOB_ATTEMPTS", "nope")
	t.Setenv("AUTH_TIMEOUT", "2s")
	t.Setenv("LOG_LEVEL", "")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, 5, cfg.MaxJobAttempts)
	assert.Equal(t, "2s", cfg.AuthTimeout.String())
	assert.Equal(t, "info", cfg.LogLevel)
}
