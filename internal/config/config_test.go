package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	require.NoError(t, env.Parse(cfg, env.Options{Environment: map[string]string{
		"JWT_SECRET":         "secret",
		"POSTGRES_URL":       "postgres://localhost/nicetravel",
		"OPENROUTER_API_KEY": "sk-or-test",
	}}))
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := validConfig(t)

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "openrouter", cfg.LLMProvider)
	assert.Equal(t, 90*time.Second, cfg.GenerationInitialEstimate)
	assert.Equal(t, 5*time.Minute, cfg.GenerationTimeout)
	assert.Equal(t, "abort", cfg.GenerationEnrichPolicy)
	assert.Equal(t, "Poland", cfg.GenerationRegion)
	assert.Equal(t, "local", cfg.QueueDriver)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate  func(*Config)
		wantErr string
	}{
		"missing jwt secret": {func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET is required"},
		"unknown provider":   {func(c *Config) { c.LLMProvider = "claude" }, "unsupported LLM_PROVIDER"},
		"gemini without key": {func(c *Config) { c.LLMProvider = "Gemini" }, "GEMINI_API_KEY is required"},
		"bad policy":         {func(c *Config) { c.GenerationEnrichPolicy = "retry" }, "GENERATION_ENRICHMENT_POLICY"},
		"bad queue":          {func(c *Config) { c.QueueDriver = "kafka" }, "QUEUE_DRIVER"},
		"tiny estimate":      {func(c *Config) { c.GenerationInitialEstimate = time.Millisecond }, "at least 1s"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.wantErr)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := validConfig(t)
	cfg.JWTSecret = ""
	cfg.PostgresURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "POSTGRES_URL")
}
