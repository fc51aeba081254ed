package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThinkingConfigDisabledForFlash(t *testing.T) {
	cfg := thinkingConfig("gemini-2.5-flash")
	require.NotNil(t, cfg)
	require.NotNil(t, cfg.ThinkingBudget)
	assert.Equal(t, int32(0), *cfg.ThinkingBudget)

	assert.Nil(t, thinkingConfig("gemini-2.5-pro"))
}
