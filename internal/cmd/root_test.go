package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetNestedBuildsNestedMaps(t *testing.T) {
	target := map[string]any{}
	setNested(target, "rate_limit.time_unit", "minute")
	setNested(target, "rate_limit.request_limit", "3")
	setNested(target, "journal.redis.addr", "localhost:6380")
	setNested(target, "workers", "8")

	assert.Equal(t, map[string]any{
		"rate_limit": map[string]any{"time_unit": "minute", "request_limit": "3"},
		"journal":    map[string]any{"redis": map[string]any{"addr": "localhost:6380"}},
		"workers":    "8",
	}, target)
}

func TestFlagOverridesOnlyChangedFlags(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("base-url", "", "")
	flags.Int("request-limit", 0, "")
	flags.String("time-unit", "second", "")

	require.NoError(t, flags.Parse([]string{"--request-limit", "5", "--base-url", "http://registry.test"}))

	overrides := flagOverrides(flags, map[string]string{
		"base-url":      "api.base_url",
		"request-limit": "rate_limit.request_limit",
		"time-unit":     "rate_limit.time_unit",
		"missing":       "ignored",
	})

	assert.Equal(t, map[string]any{
		"api":        map[string]any{"base_url": "http://registry.test"},
		"rate_limit": map[string]any{"request_limit": "5"},
	}, overrides)
}
