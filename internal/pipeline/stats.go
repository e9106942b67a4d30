package pipeline

import (
	"go.uber.org/zap"
)

// runState carries per-run bookkeeping across phases.
type runState struct {
	id     string
	stats  Stats
	opts   Options
	logger *zap.Logger
}

// validateItems drops items without a non-empty id. Item-level defects are
// never fatal.
func (r *runState) validateItems(items []Item) []Item {
	valid := make([]Item, 0, len(items))
	for _, item := range items {
		r.stats.TotalItems++
		src := r.sourceStats(item.Source)
		src.Total++

		if item.ID == "" {
			r.stats.Invalid++
			src.Invalid++
			if r.opts.Verbose {
				r.logger.Warn("dropping item without id",
					zap.String("source", item.Source),
					zap.String("title", item.Title))
			}
			continue
		}
		valid = append(valid, item)
	}
	return valid
}

// drop records one threshold drop.
func (r *runState) drop(item Item, reason string, value float64) {
	src := r.sourceStats(item.Source)
	switch reason {
	case "relevance":
		r.stats.DroppedRelevance++
		src.DroppedRelevance++
	case "novelty":
		r.stats.DroppedNovelty++
		src.DroppedNovelty++
	}
	if r.opts.Verbose {
		r.logger.Debug("dropping item",
			zap.String("id", item.ID),
			zap.String("reason", reason),
			zap.Float64("value", value))
	}
}

func (r *runState) sourceStats(source string) *SourceStats {
	if source == "" {
		source = "unknown"
	}
	src, ok := r.stats.Sources[source]
	if !ok {
		src = &SourceStats{}
		r.stats.Sources[source] = src
	}
	return src
}

// finalizeSourceStats computes per-source passed counts and pass rates.
func (r *runState) finalizeSourceStats() {
	for _, src := range r.stats.Sources {
		src.Passed = src.Total - src.Invalid - src.DroppedRelevance - src.DroppedNovelty
		if src.Total > 0 {
			src.PassRate = float64(src.Passed) / float64(src.Total)
		}
	}
}
