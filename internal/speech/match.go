package speech

import (
	"regexp"
	"strings"
)

var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`my\s+names?\s+is\s+([a-zA-Z]+)`),
	regexp.MustCompile(`my\s+names?\s+([a-zA-Z]+)`),
	regexp.MustCompile(`name\s+is\s+([a-zA-Z]+)`),
	regexp.MustCompile(`i\s+am\s+([a-zA-Z]+)`),
}

// ContainsPhrase reports whether the transcript contains the phrase,
// case-insensitively.
func ContainsPhrase(text, phrase string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}

// ExtractName pulls a capitalized name out of introductions like
// "my name is Anna" or "I am Anna". Returns "" when nothing matches.
func ExtractName(text string) string {
	lower := strings.ToLower(text)
	for _, pattern := range namePatterns {
		if m := pattern.FindStringSubmatch(lower); m != nil {
			return strings.ToUpper(m[1][:1]) + m[1][1:]
		}
	}
	return ""
}

// MatchKeywords reports whether every keyword occurs in the transcript.
// An empty keyword list matches any non-empty transcript.
func MatchKeywords(text string, keywords []string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}
