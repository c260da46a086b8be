package engine

import (
	"fmt"
	"regexp"
	"sync"
)

// Matcher handles regex pattern matching with a compile cache. One instance
// is shared across every evaluation the engine performs.
type Matcher struct {
	cache sync.Map // pattern string -> *regexp.Regexp
}

// NewMatcher creates a new pattern matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// MatchToolName checks a tool name against a matcher pattern. An empty
// pattern matches every tool.
func (m *Matcher) MatchToolName(pattern, toolName string) (bool, error) {
	if pattern == "" {
		return true, nil
	}

	re, err := m.getOrCompile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid matcher pattern %q: %w", pattern, err)
	}

	return re.MatchString(toolName), nil
}

// MatchInputFields checks tool input fields against per-field pattern lists.
// Every listed field must be present and match at least one of its patterns.
func (m *Matcher) MatchInputFields(patterns map[string][]string, toolInput map[string]any) (bool, error) {
	for field, fieldPatterns := range patterns {
		value, ok := toolInput[field]
		if !ok {
			return false, nil
		}
		strValue := fmt.Sprintf("%v", value)

		fieldMatched := false
		for _, pattern := range fieldPatterns {
			re, err := m.getOrCompile(pattern)
			if err != nil {
				return false, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			if re.MatchString(strValue) {
				fieldMatched = true
				break
			}
		}
		if !fieldMatched {
			return false, nil
		}
	}

	return true, nil
}

// getOrCompile retrieves a compiled regex from cache or compiles it.
func (m *Matcher) getOrCompile(pattern string) (*regexp.Regexp, error) {
	if cached, ok := m.cache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	m.cache.Store(pattern, re)
	return re, nil
}
