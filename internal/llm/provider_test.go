package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompletionProviderUnsupportedProvider(t *testing.T) {
	_, err := NewCompletionProvider(ProviderConfig{Provider: "does-not-exist", APIKey: "key"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported completion provider")
}

func TestNewCompletionProviderDefaultsToOpenAI(t *testing.T) {
	provider, err := NewCompletionProvider(ProviderConfig{APIKey: "test-key"})
	require.NoError(t, err)
	assert.NotNil(t, provider)
}

func TestNewCompletionProviderAnthropic(t *testing.T) {
	provider, err := NewCompletionProvider(ProviderConfig{Provider: "anthropic", APIKey: "test-key"})
	require.NoError(t, err)
	assert.NotNil(t, provider)
}
