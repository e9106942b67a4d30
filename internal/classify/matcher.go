package classify

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// matchAny returns the first keyword found in text, in keyword order.
func matchAny(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if containsKeyword(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

var (
	boundaryRegexMu sync.Mutex
	boundaryRegexes = make(map[string]*regexp.Regexp)
)

// containsKeyword reports whether kw occurs in text on a word boundary.
// Alphanumeric-only keywords use a compiled \b regex; keywords containing
// punctuation (where \b misbehaves) check the surrounding characters
// manually. Both inputs must already be lowercased.
func containsKeyword(text, kw string) bool {
	if isAlphanumeric(kw) {
		return boundaryRegex(kw).MatchString(text)
	}

	for idx := 0; ; {
		pos := strings.Index(text[idx:], kw)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(kw)

		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func boundaryRegex(kw string) *regexp.Regexp {
	boundaryRegexMu.Lock()
	defer boundaryRegexMu.Unlock()

	if re, ok := boundaryRegexes[kw]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	boundaryRegexes[kw] = re
	return re
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != ' ' {
			return false
		}
	}
	return len(s) > 0
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// topicStopwords are title openers that never make a useful topic.
var topicStopwords = map[string]bool{
	"The": true, "A": true, "An": true, "This": true, "That": true,
	"Why": true, "How": true, "What": true, "When": true, "Your": true,
	"New": true, "Introducing": true,
}

// firstCapitalizedWord returns the first capitalized-looking word in title.
func firstCapitalizedWord(title string) string {
	for _, word := range strings.Fields(title) {
		trimmed := strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(trimmed) < 2 {
			continue
		}
		r := []rune(trimmed)[0]
		if unicode.IsUpper(r) && !topicStopwords[trimmed] {
			return trimmed
		}
	}
	return ""
}
