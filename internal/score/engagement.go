package score

import (
	"math"
	"time"
)

// engagementMetric normalizes one raw field against a per-source baseline:
// value/baseline scaled to 0-100 and capped before weighting.
type engagementMetric struct {
	field    string
	baseline float64
	weight   float64
}

// engagementRules is the lookup table of per-source normalization formulas.
// Adding a source means adding a row, not a conditional branch.
var engagementRules = map[string][]engagementMetric{
	"github": {
		{field: "stars", baseline: 1000, weight: 0.6},
		{field: "forks", baseline: 300, weight: 0.4},
	},
	"hackernews": {
		{field: "points", baseline: 500, weight: 0.6},
		{field: "comments", baseline: 200, weight: 0.4},
	},
	"reddit": {
		{field: "upvotes", baseline: 1000, weight: 0.6},
		{field: "comments", baseline: 300, weight: 0.4},
	},
}

// likesLikeFields are candidates for the generic fallback heuristic.
var likesLikeFields = []string{"likes", "points", "upvotes", "stars", "reactions"}

// engagement normalizes raw metrics for source. Sources without a known
// baseline table fall back to a likes-like field divided by 10, and 50 when
// nothing applies at all.
func engagement(source string, fields map[string]float64) float64 {
	if rules, ok := engagementRules[source]; ok {
		var total float64
		for _, m := range rules {
			sub := math.Min(100, fields[m.field]/m.baseline*100)
			total += sub * m.weight
		}
		return clamp100(total)
	}

	for _, f := range likesLikeFields {
		if v, ok := fields[f]; ok {
			return clamp100(v / 10)
		}
	}
	return 50
}

// timestampFields maps sources to their relevant-timestamp metadata keys,
// in resolution order. GitHub repos count the last push as the relevant
// moment, not creation.
var timestampFields = map[string][]string{
	"github":     {"pushed_at", "updated_at", "created_at"},
	"hackernews": {"created_at"},
}

var defaultTimestampFields = []string{"published", "created_at", "updated_at", "date"}

// ResolveTimestamp picks the relevant timestamp for an item from its
// metadata using the source-specific field order. Values may be time.Time
// or RFC 3339 strings. Returns the zero time when nothing resolves.
func ResolveTimestamp(source string, metadata map[string]any) time.Time {
	fields, ok := timestampFields[source]
	if !ok {
		fields = defaultTimestampFields
	}
	for _, f := range fields {
		raw, ok := metadata[f]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case time.Time:
			if !v.IsZero() {
				return v
			}
		case string:
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				return ts
			}
		}
	}
	return time.Time{}
}
