package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "gpt-4o-mini", cfg.Model)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.RetryOnRateLimit)
	assert.Equal(t, 2000, cfg.MaxMessageLength)
	assert.Equal(t, 50, cfg.MaxConversationLength)
	assert.Equal(t, 12, cfg.MaxQuestions)
	assert.Equal(t, "smtp.zoho.com", cfg.EmailHost)
	assert.Equal(t, 465, cfg.EmailPort)
	assert.Equal(t, 3, cfg.EmailRateLimit)
	assert.Equal(t, time.Hour, cfg.EmailRateWindow)
	assert.Equal(t, 50000, cfg.MaxContentLength)
	assert.Equal(t, 200, cfg.MaxSubjectLength)
	assert.Equal(t, 10*time.Minute, cfg.NewsCacheTTL)
	assert.Equal(t, "prompts/assistant.yaml", cfg.PromptFile)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("RETRY_ON_RATE_LIMIT", "true")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("MAX_QUESTIONS", "3")
	t.Setenv("EMAIL_RATE_WINDOW", "30m")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.True(t, cfg.RetryOnRateLimit)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3, cfg.MaxQuestions)
	assert.Equal(t, 30*time.Minute, cfg.EmailRateWindow)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_LENGTH", "lots")
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("RETRY_ON_RATE_LIMIT", "maybe")

	cfg := Load()

	assert.Equal(t, 2000, cfg.MaxMessageLength)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.RetryOnRateLimit)
}

func TestEnvBoolDefault(t *testing.T) {
	t.Setenv("FLAG", "on")
	assert.True(t, getEnvBoolDefault("FLAG", false))
	t.Setenv("FLAG", "0")
	assert.False(t, getEnvBoolDefault("FLAG", true))
	t.Setenv("FLAG", "")
	assert.True(t, getEnvBoolDefault("FLAG", true))
}
