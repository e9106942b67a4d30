package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleContext = `# Signal brief: developer observability

## Competitors
- Acme Traces — their new pricing model
- **Spanwatch**

## Pain points
- alert fatigue
- slow incident triage

## Watching
- opentelemetry
- eBPF

## Trends
- continuous profiling

What is the fastest path to production traces?
`

func TestParseContext(t *testing.T) {
	sets := ParseContext(sampleContext)

	assert.Equal(t, []string{"acme traces", "spanwatch"}, sets.Categories[Competitive])
	assert.Equal(t, []string{"alert fatigue", "slow incident triage"}, sets.Categories[Opportunity])
	assert.Equal(t, []string{"opentelemetry", "ebpf"}, sets.Categories[Technical])
	assert.Equal(t, []string{"continuous profiling"}, sets.Categories[Trend])
	assert.Empty(t, sets.Categories[ThesisChallenging])

	assert.Contains(t, sets.Points, "Signal brief: developer observability")
	assert.Contains(t, sets.Points, "alert fatigue")
	assert.Contains(t, sets.Points, "What is the fastest path to production traces?")
}

func TestParseContextEmpty(t *testing.T) {
	sets := ParseContext("   \n  ")
	assert.Empty(t, sets.Points)
	for _, cat := range AllCategories() {
		assert.Empty(t, sets.Categories[cat])
	}
}

func TestParseContextIsPure(t *testing.T) {
	a := ParseContext(sampleContext)
	b := ParseContext(sampleContext)
	assert.Equal(t, a, b)
}

func TestClassifyExactBeatsGeneric(t *testing.T) {
	c := New(ParseContext(sampleContext), nil, nil)

	// "acme traces" is an exact competitive keyword; "open source" is a
	// generic technical keyword. Exact wins even though technical precedes
	// nothing here.
	res := c.Classify("Acme Traces goes open source", "")
	assert.Equal(t, Competitive, res.Type)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
	assert.Equal(t, "acme traces", res.MatchedKeyword)
	assert.True(t, res.IsWatched)
}

func TestClassifyGenericFallback(t *testing.T) {
	c := New(ParseContext(sampleContext), nil, nil)

	res := c.Classify("Vendor X raises a new funding round", "")
	assert.Equal(t, Competitive, res.Type)
	assert.Equal(t, ConfidenceMedium, res.Confidence)
	assert.Equal(t, "funding round", res.MatchedKeyword)
	assert.False(t, res.IsWatched)
}

func TestClassifyWatchKeywordForcesWatched(t *testing.T) {
	c := New(ParseContext(sampleContext), []string{"duckdb"}, nil)

	// Watch keyword present but nothing else matches: technical, high.
	res := c.Classify("DuckDB quacks again", "an unrelated musing")
	assert.Equal(t, Technical, res.Type)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
	assert.Equal(t, "duckdb", res.MatchedKeyword)
	assert.True(t, res.IsWatched)

	// Watch keyword plus a generic match: category from the generic
	// match, watched stays true.
	res = c.Classify("DuckDB rise of embedded analytics", "")
	assert.Equal(t, Trend, res.Type)
	assert.True(t, res.IsWatched)
}

func TestClassifyDefaultsToTechnicalLow(t *testing.T) {
	c := New(KeywordSets{}, nil, nil)

	res := c.Classify("an entirely unremarkable headline", "nothing here either")
	assert.Equal(t, Technical, res.Type)
	assert.Equal(t, ConfidenceLow, res.Confidence)
	assert.Empty(t, res.MatchedKeyword)
	assert.False(t, res.IsWatched)
}

func TestClassifyAlwaysReturnsOneOfFive(t *testing.T) {
	c := New(ParseContext(sampleContext), []string{"zig"}, nil)
	valid := map[Category]bool{}
	for _, cat := range AllCategories() {
		valid[cat] = true
	}

	titles := []string{
		"Acme Traces launches",
		"The myth of microservices",
		"frustrated with alerting",
		"eBPF in production",
		"rise of local-first software",
		"completely unrelated",
		"",
	}
	for _, title := range titles {
		res := c.Classify(title, "")
		assert.True(t, valid[res.Type], "unexpected category %q for %q", res.Type, title)
	}
}

func TestCategoryOverrides(t *testing.T) {
	c := New(KeywordSets{}, nil, map[Category][]string{
		Opportunity: {"waitlist"},
	})

	res := c.Classify("Their waitlist is three months long", "")
	assert.Equal(t, Opportunity, res.Type)
	assert.Equal(t, ConfidenceHigh, res.Confidence)
}

func TestWordBoundaryMatching(t *testing.T) {
	tests := []struct {
		name string
		text string
		kw   string
		want bool
	}{
		{name: "exact word", text: "the go language", kw: "go", want: true},
		{name: "substring does not match", text: "the golang language", kw: "go", want: false},
		{name: "punctuated keyword", text: "we use ci/cd daily", kw: "ci/cd", want: true},
		{name: "punctuated keyword inside word", text: "xci/cdy", kw: "ci/cd", want: false},
		{name: "punctuated at boundaries", text: "ci/cd", kw: "ci/cd", want: true},
		{name: "keyword with dot", text: "deployed on k8s.io today", kw: "k8s.io", want: true},
		{name: "phrase keyword", text: "a new funding round today", kw: "funding round", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := matchAny(tt.text, []string{tt.kw})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTopicAndReason(t *testing.T) {
	c := New(ParseContext(sampleContext), []string{"grafana"}, nil)

	// Watch keyword in title wins.
	res := c.Classify("Grafana ships continuous profiling", "")
	assert.Equal(t, "grafana", c.ExtractTopic("Grafana ships continuous profiling", res))

	// Matched context keyword next.
	res = c.Classify("spanwatch has a new agent", "")
	assert.Equal(t, "spanwatch", c.ExtractTopic("spanwatch has a new agent", res))

	// Capitalized word fallback.
	res = c.Classify("introducing Fluxcap for everyone", "")
	topic := c.ExtractTopic("introducing Fluxcap for everyone", res)
	assert.Equal(t, "Fluxcap", topic)

	// Generic fallback phrase.
	res = c.Classify("nothing notable", "")
	require.Empty(t, res.MatchedKeyword)
	assert.Equal(t, "this space", c.ExtractTopic("nothing notable", res))

	assert.Equal(t, "Competitor activity detected around spanwatch",
		Reason(Result{Type: Competitive}, "spanwatch"))
	assert.Equal(t, "Technically relevant development in this space",
		Reason(Result{Type: Technical}, "this space"))
}
