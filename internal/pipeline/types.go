// Package pipeline orchestrates signal detection: it validates input, binds
// the context document, drives similarity scoring, novelty filtering,
// classification and composite scoring, and emits a ranked signal list.
//
// Error taxonomy: input errors (ErrEmptyContext, ErrNoItems) fail the whole
// run with nothing partial returned; item-level defects (missing id) are
// dropped, never fatal; external-capability failures degrade per item for
// embedding but propagate for novelty persistence; precondition violations
// (similarity.ErrBaselineNotSet) fail loudly.
package pipeline

import (
	"errors"
	"time"

	"github.com/fyrsmithlabs/signald/internal/classify"
	"github.com/fyrsmithlabs/signald/internal/score"
)

var (
	// ErrEmptyContext indicates an empty context document. The whole run
	// fails; there is no baseline to score against.
	ErrEmptyContext = errors.New("context document is empty")

	// ErrNoItems indicates an empty input batch.
	ErrNoItems = errors.New("no items to filter")
)

// Item is one unit of content entering the pipeline. Immutable once
// ingested; the pipeline only derives new fields.
type Item struct {
	// ID is the caller-supplied unique identifier.
	ID string `json:"id"`

	Source      string         `json:"source"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	URL         string         `json:"url"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Text returns the embeddable text of the item.
func (i Item) Text() string {
	if i.Description == "" {
		return i.Title
	}
	return i.Title + "\n" + i.Description
}

// SignalResult is an item that survived both thresholds, annotated with its
// classification and scores. Never persisted; recomputed per run.
type SignalResult struct {
	Item

	SignalType     classify.Category   `json:"signal_type"`
	Confidence     classify.Confidence `json:"confidence"`
	MatchedKeyword string              `json:"matched_keyword,omitempty"`
	IsWatched      bool                `json:"is_watched"`
	Reason         string              `json:"reason"`

	// MatchedPoint is the context point most similar to the item, when
	// context points were available.
	MatchedPoint string `json:"matched_point,omitempty"`

	RelevanceScore int             `json:"relevance_score"`
	NoveltyScore   int             `json:"novelty_score"`
	CompositeScore int             `json:"composite_score"`
	ScoreBreakdown score.Breakdown `json:"score_breakdown"`
}

// Phase is a distinct stage of one filtering run.
type Phase string

const (
	PhaseInit         Phase = "init"
	PhaseContextBound Phase = "context_bound"
	PhaseScoring      Phase = "scoring"
	PhaseClassifying  Phase = "classifying"
	PhaseScored       Phase = "scored"
	PhaseDone         Phase = "done"
)

// SortKey selects the output ordering.
type SortKey string

const (
	SortComposite  SortKey = "composite"
	SortRelevance  SortKey = "relevance"
	SortRecency    SortKey = "recency"
	SortEngagement SortKey = "engagement"
)

// ParseSortKey validates a sort key string, defaulting to composite.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortComposite, SortRelevance, SortRecency, SortEngagement:
		return SortKey(s), nil
	case "":
		return SortComposite, nil
	default:
		return "", errors.New("unknown sort key: " + s)
	}
}

// SourceStats aggregates pass-rate statistics for one source.
type SourceStats struct {
	Total            int     `json:"total"`
	Invalid          int     `json:"invalid"`
	DroppedRelevance int     `json:"dropped_relevance"`
	DroppedNovelty   int     `json:"dropped_novelty"`
	Passed           int     `json:"passed"`
	PassRate         float64 `json:"pass_rate"`
}

// Stats aggregates one run.
type Stats struct {
	TotalItems       int                     `json:"total_items"`
	Invalid          int                     `json:"invalid"`
	DroppedRelevance int                     `json:"dropped_relevance"`
	DroppedNovelty   int                     `json:"dropped_novelty"`
	Passed           int                     `json:"passed"`
	Sources          map[string]*SourceStats `json:"sources"`
	Duration         time.Duration           `json:"duration"`
}

// Result is the outcome of one filtering run.
type Result struct {
	// RunID identifies the run in logs.
	RunID string `json:"run_id"`

	// Signals is the ranked signal list, ordered by the sort key.
	Signals []SignalResult `json:"signals"`

	Stats Stats `json:"stats"`
}
