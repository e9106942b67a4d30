package classify

import (
	"regexp"
	"strings"
)

// KeywordSets is the structured output of parsing a context document.
type KeywordSets struct {
	// Categories maps each category to the exact keywords parsed from its
	// labeled sections.
	Categories map[Category][]string

	// Points are the context points (bullets, questions, headline), each
	// of which can be embedded independently for match explanations.
	Points []string
}

// headerCategories maps lowercased section labels to categories. Labels are
// matched as substrings of the header line, so "## Our Competitors" and
// "Competitors:" both bind the section to competitive.
var headerCategories = []struct {
	label    string
	category Category
}{
	{"competitor", Competitive},
	{"compete", Competitive},
	{"thesis", ThesisChallenging},
	{"assumption", ThesisChallenging},
	{"bet", ThesisChallenging},
	{"pain point", Opportunity},
	{"opportunit", Opportunity},
	{"problem", Opportunity},
	{"watching", Technical},
	{"stack", Technical},
	{"technolog", Technical},
	{"trend", Trend},
	{"market", Trend},
}

var (
	headerLine = regexp.MustCompile(`^(#{1,6}\s+|[A-Za-z].{0,60}:$)`)
	bulletLine = regexp.MustCompile(`^\s*[-*+]\s+(.+)$`)
	boldTerm   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
)

// ParseContext mines a free-form context document for per-category keyword
// sets and context points. It is a pure function: same text, same result.
//
// Recognized structure:
//   - Markdown headers ("## Competitors") or label lines ("Competitors:")
//     open a section; bullets beneath become exact keywords for the mapped
//     category.
//   - Bold terms anywhere in a section are additional keywords for it.
//   - Bullets, question lines and the first headline become context points.
func ParseContext(text string) KeywordSets {
	sets := KeywordSets{
		Categories: make(map[Category][]string, len(AllCategories())),
	}
	if strings.TrimSpace(text) == "" {
		return sets
	}

	var current Category
	var inSection bool
	var sawHeadline bool

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if headerLine.MatchString(trimmed) {
			current, inSection = matchHeader(trimmed)
			if !sawHeadline && strings.HasPrefix(trimmed, "#") {
				sawHeadline = true
				sets.Points = append(sets.Points, strings.TrimSpace(strings.TrimLeft(trimmed, "# ")))
			}
			continue
		}

		if m := bulletLine.FindStringSubmatch(line); m != nil {
			point := cleanKeyword(m[1])
			if point == "" {
				continue
			}
			sets.Points = append(sets.Points, point)
			if inSection {
				sets.Categories[current] = append(sets.Categories[current], strings.ToLower(point))
			}
			continue
		}

		if strings.HasSuffix(trimmed, "?") {
			sets.Points = append(sets.Points, trimmed)
		}

		if inSection {
			for _, m := range boldTerm.FindAllStringSubmatch(trimmed, -1) {
				if kw := cleanKeyword(m[1]); kw != "" {
					sets.Categories[current] = append(sets.Categories[current], strings.ToLower(kw))
				}
			}
		}
	}
	return sets
}

// matchHeader binds a header line to a category by label substring.
func matchHeader(line string) (Category, bool) {
	lower := strings.ToLower(line)
	for _, h := range headerCategories {
		if strings.Contains(lower, h.label) {
			return h.category, true
		}
	}
	return "", false
}

// cleanKeyword strips markdown emphasis and trailing annotations from a
// bullet, keeping the leading phrase before any separator.
func cleanKeyword(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	s = strings.TrimSpace(s)

	// "Foo — their new pricing model" keeps just "Foo".
	for _, sep := range []string{" — ", " - ", ": ", " ("} {
		if idx := strings.Index(s, sep); idx > 0 {
			s = s[:idx]
			break
		}
	}
	return strings.TrimSpace(s)
}
