// Package score computes the composite 0-100 ranking value blending
// relevance, recency and engagement.
package score

import (
	"math"
	"time"

	"github.com/fyrsmithlabs/signald/internal/classify"
)

// Weights blend the three components into the composite score.
type Weights struct {
	Relevance  float64 `koanf:"relevance"`
	Recency    float64 `koanf:"recency"`
	Engagement float64 `koanf:"engagement"`
}

// DefaultWeights returns the standard component weights.
func DefaultWeights() Weights {
	return Weights{Relevance: 0.45, Recency: 0.35, Engagement: 0.20}
}

// Config holds Scorer tuning parameters.
type Config struct {
	Weights Weights

	// RecencyHalfLifeDays is the half-life of the recency component.
	RecencyHalfLifeDays float64
}

// NewDefaultConfig returns Scorer defaults.
func NewDefaultConfig() Config {
	return Config{
		Weights:             DefaultWeights(),
		RecencyHalfLifeDays: 7,
	}
}

// Input holds everything needed to score one item.
type Input struct {
	// Similarity is the relevance value in [0,1]; nil when unavailable,
	// in which case the confidence band supplies a fixed relevance.
	Similarity *float64

	// Confidence is the classification confidence, used as the relevance
	// fallback band.
	Confidence classify.Confidence

	// Timestamp is the resolved relevant time for the item.
	Timestamp time.Time

	// Source selects the engagement normalization formula.
	Source string

	// Engagement holds raw source metrics (stars, points, comments...).
	Engagement map[string]float64
}

// Breakdown shows how each component contributed to the composite.
type Breakdown struct {
	Relevance  float64 `json:"relevance"`
	Recency    float64 `json:"recency"`
	Engagement float64 `json:"engagement"`
}

// Scorer computes composite scores.
type Scorer struct {
	cfg Config
}

// New creates a Scorer.
func New(cfg Config) *Scorer {
	if cfg.RecencyHalfLifeDays <= 0 {
		cfg.RecencyHalfLifeDays = 7
	}
	w := cfg.Weights
	if w.Relevance == 0 && w.Recency == 0 && w.Engagement == 0 {
		cfg.Weights = DefaultWeights()
	}
	return &Scorer{cfg: cfg}
}

// Score returns the composite score in [0,100] and its component breakdown.
// The breakdown sub-scores, weighted, sum to the composite within rounding.
func (s *Scorer) Score(in Input) (int, Breakdown) {
	b := Breakdown{
		Relevance:  s.relevance(in),
		Recency:    s.recency(in.Timestamp),
		Engagement: engagement(in.Source, in.Engagement),
	}

	w := s.cfg.Weights
	raw := b.Relevance*w.Relevance + b.Recency*w.Recency + b.Engagement*w.Engagement
	composite := int(math.Round(raw))
	if composite < 0 {
		composite = 0
	}
	if composite > 100 {
		composite = 100
	}
	return composite, b
}

// relevance scales similarity to 0-100, falling back to a fixed value per
// confidence band when similarity is unavailable.
func (s *Scorer) relevance(in Input) float64 {
	if in.Similarity != nil {
		return clamp100(*in.Similarity * 100)
	}
	switch in.Confidence {
	case classify.ConfidenceHigh:
		return 100
	case classify.ConfidenceMedium:
		return 70
	default:
		return 40
	}
}

// recency decays exponentially from the resolved timestamp. A zero
// timestamp scores 0: an undatable item earns no freshness credit.
func (s *Scorer) recency(ts time.Time) float64 {
	if ts.IsZero() {
		return 0
	}
	days := time.Since(ts).Hours() / 24
	if days < 0 {
		days = 0
	}
	return clamp100(100 * math.Exp(-math.Ln2/s.cfg.RecencyHalfLifeDays*days))
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
