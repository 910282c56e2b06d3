package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Scheduler.TaskTTL)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.MaxSolveTime)
	assert.Equal(t, 2_000_000, cfg.Scheduler.MaxSteps)
	assert.Equal(t, 1, cfg.Scheduler.Workers)
	assert.Len(t, cfg.Scheduler.DefaultTimeSlots, 6)
	assert.False(t, cfg.JWT.Enabled)
	assert.True(t, cfg.Catalog.Enabled)
	assert.Equal(t, "./exports", cfg.Export.Dir)
	assert.Equal(t, "dev_secret", cfg.Export.SigningSecret)
	assert.Equal(t, time.Hour, cfg.Export.LinkTTL)
}

func TestOverridesAndFallbacks(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SCHEDULER_MAX_SOLVE_TIME", "not-a-duration")
	v.Set("SCHEDULER_WORKERS", 0)
	v.Set("SCHEDULER_DEFAULT_TIME_SLOTS", " 08:00 , ,09:00")
	v.Set("AUTH_ENABLED", true)
	cfg := fromViper(v)

	assert.Equal(t, 10*time.Second, cfg.Scheduler.MaxSolveTime)
	assert.Equal(t, 1, cfg.Scheduler.Workers)
	assert.Equal(t, []string{"08:00", "09:00"}, cfg.Scheduler.DefaultTimeSlots)
	assert.True(t, cfg.JWT.Enabled)
}

func TestExportSigningSecretOverride(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("EXPORT_SIGNING_SECRET", "exports")
	v.Set("EXPORT_LINK_TTL", "30m")
	cfg := fromViper(v)

	assert.Equal(t, "exports", cfg.Export.SigningSecret)
	assert.Equal(t, 30*time.Minute, cfg.Export.LinkTTL)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Nil(t, splitAndTrim(""))
	assert.Equal(t, []string{"a", "b"}, splitAndTrim("a, b ,"))
}
