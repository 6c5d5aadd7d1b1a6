package keyword_test

import (
	"bidmaster/internal/keyword"
	"testing"
)

func TestMatcherMatch(t *testing.T) {
	m := keyword.NewMatcher([]string{"set-aside", " 8(a) ", "SAM.gov", ""})

	tests := []struct {
		name  string
		texts []string
		want  string
		ok    bool
	}{
		{"TitleHit", []string{"DFARS Small Business Set-Aside Update", ""}, "set-aside", true},
		{"SummaryHit", []string{"Unrelated", "register on sam.gov first"}, "sam.gov", true},
		{"ParenthesisKeyword", []string{"New 8(A) program rules"}, "8(a)", true},
		{"Miss", []string{"Weather report", "Sunny all week"}, "", false},
		{"NoTexts", nil, "", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, ok := m.Match(test.texts...)
			if ok != test.ok || got != test.want {
				t.Errorf("Expected (%q, %v), got (%q, %v)", test.want, test.ok, got, ok)
			}
		})
	}
}

func TestMatcherDeduplicatesKeywords(t *testing.T) {
	m := keyword.NewMatcher([]string{"GovCon", "govcon", "  "})

	got, ok := m.Match("GOVCON news")
	if !ok || got != "govcon" {
		t.Fatalf("unexpected match: %q %v", got, ok)
	}

	if _, ok = m.Match("   "); ok {
		t.Fatalf("expected blank keyword to be dropped")
	}
}

func TestNilMatcherNeverMatches(t *testing.T) {
	var m *keyword.Matcher

	if _, ok := m.Match("anything"); ok {
		t.Fatalf("expected nil matcher to never match")
	}
}
