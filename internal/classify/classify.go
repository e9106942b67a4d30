// Package classify assigns each item a discrete signal category and an
// explanation of why it matters.
//
// Classification never fails: when nothing matches the item degrades to
// technical with low confidence.
package classify

// Category is a fixed signal category.
type Category string

const (
	Competitive       Category = "competitive"
	ThesisChallenging Category = "thesis-challenging"
	Opportunity       Category = "opportunity"
	Technical         Category = "technical"
	Trend             Category = "trend"
)

// AllCategories returns the five categories in priority order.
func AllCategories() []Category {
	return []Category{Competitive, ThesisChallenging, Opportunity, Technical, Trend}
}

// Confidence grades how certain a classification is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Result is the outcome of classifying one item.
type Result struct {
	Type           Category
	Confidence     Confidence
	MatchedKeyword string
	IsWatched      bool
}

// genericKeywords are the per-category fallback lists, consulted only after
// every exact context keyword failed to match.
var genericKeywords = map[Category][]string{
	Competitive: {
		"competitor", "launches", "launched", "funding round", "acquisition",
		"acquires", "raises", "series a", "series b", "rival", "alternative to",
		"goes head to head",
	},
	ThesisChallenging: {
		"study shows", "research suggests", "contrary to", "debunk",
		"rethinking", "overrated", "myth", "the case against", "doesn't work",
		"falls short", "criticism of",
	},
	Opportunity: {
		"pain point", "frustrated with", "looking for", "wish there was",
		"no good solution", "unsolved", "feature request", "gap in the market",
		"underserved", "struggling to",
	},
	Technical: {
		"open source", "benchmark", "architecture", "protocol", "algorithm",
		"performance", "sdk", "api", "framework", "self-hosted", "release",
	},
	Trend: {
		"trending", "rise of", "growing adoption", "momentum", "emerging",
		"future of", "wave of", "shift toward", "explodes", "takes off",
	},
}

// Classifier matches item text against layered keyword sets.
type Classifier struct {
	sets  KeywordSets
	watch []string
}

// New creates a Classifier from parsed context keyword sets and user-declared
// global watch keywords. Per-category overrides are merged ahead of the
// parsed context keywords.
func New(sets KeywordSets, watchKeywords []string, overrides map[Category][]string) *Classifier {
	merged := KeywordSets{
		Categories: make(map[Category][]string, len(AllCategories())),
		Points:     sets.Points,
	}
	for _, cat := range AllCategories() {
		merged.Categories[cat] = append(append([]string{}, overrides[cat]...), sets.Categories[cat]...)
	}
	return &Classifier{sets: merged, watch: watchKeywords}
}

// Classify assigns exactly one category to the item text.
//
// Priority: global watch keywords, then exact context keywords across all
// five categories, then generic keywords across all five categories. First
// match wins, so an exact match in any category outranks a generic match in
// another.
func (c *Classifier) Classify(title, description string) Result {
	text := title + " " + description

	watched, watchKeyword := c.matchWatch(text)

	for _, cat := range AllCategories() {
		if kw, ok := matchAny(text, c.sets.Categories[cat]); ok {
			return Result{Type: cat, Confidence: ConfidenceHigh, MatchedKeyword: kw, IsWatched: true}
		}
	}

	for _, cat := range AllCategories() {
		if kw, ok := matchAny(text, genericKeywords[cat]); ok {
			return Result{Type: cat, Confidence: ConfidenceMedium, MatchedKeyword: kw, IsWatched: watched}
		}
	}

	if watched {
		return Result{Type: Technical, Confidence: ConfidenceHigh, MatchedKeyword: watchKeyword, IsWatched: true}
	}

	return Result{Type: Technical, Confidence: ConfidenceLow, IsWatched: false}
}

// matchWatch reports whether any global watch keyword appears in text.
func (c *Classifier) matchWatch(text string) (bool, string) {
	if kw, ok := matchAny(text, c.watch); ok {
		return true, kw
	}
	return false, ""
}

// ExtractTopic names what the item is about: the first matching watch
// keyword, else the matched context keyword, else the first
// capitalized-looking word of the title, else a generic phrase.
func (c *Classifier) ExtractTopic(title string, res Result) string {
	if ok, kw := c.matchWatch(title); ok {
		return kw
	}
	if res.MatchedKeyword != "" {
		return res.MatchedKeyword
	}
	if word := firstCapitalizedWord(title); word != "" {
		return word
	}
	return "this space"
}
