package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractName(t *testing.T) {
	tests := []struct {
		transcript string
		want       string
	}{
		{"my name is anna", "Anna"},
		{"Hello! My name is Bob and I like coffee", "Bob"},
		{"my names is carol", "Carol"},
		{"my name dave", "Dave"},
		{"name is erin", "Erin"},
		{"i am frank", "Frank"},
		{"I  am   Grace", "Grace"},
		{"nothing to see here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractName(tt.transcript), "transcript %q", tt.transcript)
	}
}

func TestContainsPhrase(t *testing.T) {
	assert.True(t, ContainsPhrase("MY NAME IS NEO", "my name is"))
	assert.True(t, ContainsPhrase("well, My Name Is neo", "MY NAME IS"))
	assert.False(t, ContainsPhrase("call me neo", "my name is"))
	assert.False(t, ContainsPhrase("", "my name is"))
}

func TestMatchKeywords(t *testing.T) {
	keywords := []string{"my name is", "hello"}

	assert.True(t, MatchKeywords("Hello, my name is Anna", keywords))
	assert.False(t, MatchKeywords("my name is Anna", keywords), "missing greeting")
	assert.False(t, MatchKeywords("", keywords))

	// No keyword list: any non-empty transcript passes, blank does not.
	assert.True(t, MatchKeywords("anything at all", nil))
	assert.False(t, MatchKeywords("   ", nil))
}
