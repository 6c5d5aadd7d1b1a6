package keyword

import "strings"

// Matcher reports whether text mentions any configured keyword, ignoring case.
type Matcher struct {
	keywords []string
}

func NewMatcher(keywords []string) *Matcher {
	normalized := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))

	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		if _, ok := seen[k]; ok {
			continue
		}

		seen[k] = struct{}{}
		normalized = append(normalized, k)
	}

	return &Matcher{keywords: normalized}
}

// Match returns the first keyword found in any of the texts.
func (m *Matcher) Match(texts ...string) (string, bool) {
	if m == nil || len(m.keywords) == 0 {
		return "", false
	}

	for _, text := range texts {
		lowered := strings.ToLower(text)
		for _, k := range m.keywords {
			if strings.Contains(lowered, k) {
				return k, true
			}
		}
	}

	return "", false
}
