package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsToSingleLLMAttempt(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.LLM.MaxRetries)
}

func TestLoadLLMMaxRetriesOverride(t *testing.T) {
	t.Setenv("LLM_MAX_RETRIES", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
}
