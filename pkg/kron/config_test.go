package kron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	yaml "gopkg.in/yaml.v2"
)

func TestDefaultConfigValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"nSigma too small", func(c *Config) { c.NSigmaForRadius = 1 }},
		{"no iterations", func(c *Config) { c.NIterForRadius = 0 }},
		{"non-positive flux scale", func(c *Config) { c.NRadiusForFlux = 0 }},
		{"negative sinc radius", func(c *Config) { c.MaxSincRadius = -1 }},
		{"negative minimum radius", func(c *Config) { c.MinimumRadius = -0.5 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigYamlRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinimumRadius = 2.5
	cfg.SmoothingSigma = 1.2
	cfg.Fixed = true

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var got Config
	require.NoError(t, yaml.Unmarshal(out, &got))
	assert.Equal(t, cfg, got)
}

func TestConfigYamlPartialOverride(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, yaml.Unmarshal([]byte("nradiusforflux: 3.0\nsmoothingsigma: 0.8\n"), &cfg))
	assert.Equal(t, 3.0, cfg.NRadiusForFlux)
	assert.Equal(t, 0.8, cfg.SmoothingSigma)
	assert.Equal(t, 6.0, cfg.NSigmaForRadius) // untouched defaults survive
	assert.NoError(t, cfg.Validate())
}
