package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const validSecret = "0123456789abcdef0123456789abcdef"

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 85, cfg.DefaultReturnPeriodDays)
	require.Equal(t, 12*time.Hour, cfg.JWTTTL)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, "0 5 * * *", cfg.OverdueScanCron)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "at least 32 bytes")
}

func TestConfigValidate(t *testing.T) {
	base := Config{JWTSecret: validSecret, JWTTTL: time.Hour, DefaultReturnPeriodDays: 85}
	require.NoError(t, base.Validate())

	for name, mutate := range map[string]func(*Config){
		"zero default period": func(c *Config) { c.DefaultReturnPeriodDays = 0 },
		"long default period": func(c *Config) { c.DefaultReturnPeriodDays = 366 },
		"negative ttl":        func(c *Config) { c.JWTTTL = -time.Minute },
		"negative rate limit": func(c *Config) { c.RateLimitPerMinute = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogFormat: "json", AppEnv: "staging"}).Info("hello")
	require.True(t, strings.HasPrefix(buf.String(), "{"))
	require.Contains(t, buf.String(), `"env":"staging"`)

	buf.Reset()
	newLogger(&buf, nil).Info("hello")
	require.Contains(t, buf.String(), "msg=hello")
}
