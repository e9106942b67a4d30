package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/signald/internal/classify"
	"github.com/fyrsmithlabs/signald/internal/novelty"
	"github.com/fyrsmithlabs/signald/internal/score"
	"github.com/fyrsmithlabs/signald/internal/similarity"
)

// maxContextPoints caps how many parsed context points are embedded for
// match explanations.
const maxContextPoints = 12

// Options configures one filtering run.
type Options struct {
	// RelevanceThreshold drops items scoring below it. Zero selects the
	// default 0.30; pass a negative value to disable relevance filtering,
	// since similarity never goes below 0.
	RelevanceThreshold float64

	// NoveltyThreshold drops items whose novelty decayed below it. Zero
	// selects the default 0.5; pass a negative value to disable novelty
	// filtering.
	NoveltyThreshold float64

	// Concurrency bounds parallel similarity computations. Default 10.
	Concurrency int

	// SortBy selects the output ordering. Default composite.
	SortBy SortKey

	// WatchKeywords are user-declared global keywords.
	WatchKeywords []string

	// KeywordOverrides merge ahead of parsed context keywords per
	// category.
	KeywordOverrides map[classify.Category][]string

	// Novelty enables decay-based novelty tracking. When nil the run
	// falls back to a binary seen/unseen check scoped to this run.
	Novelty *novelty.Store

	// Engine supplies a pre-initialized similarity engine, e.g. one whose
	// provider was loaded with a progress callback. When nil a
	// request-scoped engine is created, preventing cross-run cache
	// contamination.
	Engine *similarity.Engine

	// Scorer overrides composite scoring configuration.
	Scorer score.Config

	// Verbose enables per-item drop logging.
	Verbose bool
}

func (o *Options) applyDefaults() {
	if o.RelevanceThreshold == 0 {
		o.RelevanceThreshold = 0.30
	}
	if o.NoveltyThreshold == 0 {
		o.NoveltyThreshold = 0.5
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 10
	}
	if o.SortBy == "" {
		o.SortBy = SortComposite
	}
}

// Pipeline runs signal detection over bounded batches of items.
type Pipeline struct {
	embedder similarity.Embedder
	logger   *zap.Logger
	metrics  *Metrics
}

// New creates a Pipeline around an embedding capability. The embedder handle
// may be shared process-wide; baseline and cache state never are.
func New(embedder similarity.Embedder) *Pipeline {
	logger := zap.NewNop()
	return &Pipeline{
		embedder: embedder,
		logger:   logger,
		metrics:  NewMetrics(logger),
	}
}

// SetLogger sets the logger for this pipeline.
func (p *Pipeline) SetLogger(l *zap.Logger) {
	if l != nil {
		p.logger = l
		p.metrics.logger = l
	}
}

// Filter ranks items against the context document and returns the signals
// that survive relevance and novelty thresholds, sorted by the configured
// key, plus per-source pass-rate statistics.
func (p *Pipeline) Filter(ctx context.Context, items []Item, contextText string, opts Options) (*Result, error) {
	opts.applyDefaults()
	start := time.Now()

	run := &runState{
		id:     uuid.NewString(),
		stats:  Stats{Sources: make(map[string]*SourceStats)},
		opts:   opts,
		logger: p.logger,
	}
	logger := p.logger.With(zap.String("run_id", run.id))

	// Init: validate input.
	logger.Debug("run phase", zap.String("phase", string(PhaseInit)))
	if contextText == "" {
		return nil, ErrEmptyContext
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	valid := run.validateItems(items)
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: all %d items invalid", ErrNoItems, len(items))
	}

	// ContextBound: bind the baseline and parse keywords once.
	logger.Debug("run phase", zap.String("phase", string(PhaseContextBound)))
	engine := opts.Engine
	if engine == nil {
		engine = similarity.NewEngine(p.embedder, similarity.NewDefaultConfig())
		engine.SetLogger(p.logger)
	}
	if _, err := engine.SetBaseline(ctx, contextText); err != nil {
		return nil, fmt.Errorf("binding context: %w", err)
	}

	sets := classify.ParseContext(contextText)
	classifier := classify.New(sets, opts.WatchKeywords, opts.KeywordOverrides)

	points := sets.Points
	if len(points) > maxContextPoints {
		points = points[:maxContextPoints]
	}
	if err := engine.SetContextPoints(ctx, points); err != nil {
		return nil, fmt.Errorf("embedding context points: %w", err)
	}

	// Scoring: relevance in bounded-concurrency batches, then novelty
	// sequentially in input order.
	logger.Debug("run phase", zap.String("phase", string(PhaseScoring)))
	survivors, novelties, sims, err := p.scorePhase(ctx, engine, valid, run)
	if err != nil {
		return nil, err
	}

	// Classifying: only survivors pay classification cost.
	logger.Debug("run phase", zap.String("phase", string(PhaseClassifying)),
		zap.Int("survivors", len(survivors)))
	results := make([]SignalResult, 0, len(survivors))
	for i, item := range survivors {
		cls := classifier.Classify(item.Title, item.Description)
		topic := classifier.ExtractTopic(item.Title, cls)
		point, _ := engine.BestMatchingPoint(ctx, item.Text())

		results = append(results, SignalResult{
			Item:           item,
			SignalType:     cls.Type,
			Confidence:     cls.Confidence,
			MatchedKeyword: cls.MatchedKeyword,
			IsWatched:      cls.IsWatched,
			Reason:         classify.Reason(cls, topic),
			MatchedPoint:   point,
			RelevanceScore: int(math.Round(sims[item.ID] * 100)),
			NoveltyScore:   int(math.Round(novelties[i] * 100)),
		})
	}

	// Scored: composite scoring and ordering.
	logger.Debug("run phase", zap.String("phase", string(PhaseScored)))
	scorer := score.New(opts.Scorer)
	for i := range results {
		sim := sims[results[i].ID]
		composite, breakdown := scorer.Score(score.Input{
			Similarity: &sim,
			Confidence: results[i].Confidence,
			Timestamp:  score.ResolveTimestamp(results[i].Source, results[i].Metadata),
			Source:     results[i].Source,
			Engagement: engagementFields(results[i].Metadata),
		})
		results[i].CompositeScore = composite
		results[i].ScoreBreakdown = breakdown
	}
	sortResults(results, opts.SortBy)

	// Done: flush novelty state and aggregate statistics.
	logger.Debug("run phase", zap.String("phase", string(PhaseDone)))
	if opts.Novelty != nil {
		if err := opts.Novelty.Flush(ctx); err != nil {
			return nil, fmt.Errorf("flushing novelty store: %w", err)
		}
	}

	run.stats.Passed = len(results)
	run.stats.Duration = time.Since(start)
	run.finalizeSourceStats()
	p.metrics.RecordRun(ctx, run.stats)

	logger.Info("filter run complete",
		zap.Int("total", run.stats.TotalItems),
		zap.Int("passed", run.stats.Passed),
		zap.Int("dropped_relevance", run.stats.DroppedRelevance),
		zap.Int("dropped_novelty", run.stats.DroppedNovelty),
		zap.Duration("duration", run.stats.Duration))

	return &Result{RunID: run.id, Signals: results, Stats: run.stats}, nil
}

// scorePhase computes relevance for all valid items, applies the relevance
// threshold, then resolves novelty sequentially in input order so repeated
// ids observe monotonically increasing seen counts. Novelty values are
// returned per surviving position, not keyed by id: two occurrences of the
// same id in one batch can legitimately score differently.
func (p *Pipeline) scorePhase(ctx context.Context, engine *similarity.Engine, items []Item, run *runState) (survivors []Item, novelties []float64, sims map[string]float64, err error) {
	texts := make([]similarity.Text, len(items))
	for i, item := range items {
		texts[i] = similarity.Text{ID: item.ID, Content: item.Text()}
	}

	var progress similarity.ProgressFunc
	if run.opts.Verbose {
		progress = func(done, total int) {
			run.logger.Info("similarity progress", zap.Int("done", done), zap.Int("total", total))
		}
	}
	sims, err = engine.BatchSimilarity(ctx, texts, run.opts.Concurrency, progress)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("batch similarity: %w", err)
	}

	relevant := make([]Item, 0, len(items))
	for _, item := range items {
		if sims[item.ID] < run.opts.RelevanceThreshold {
			run.drop(item, "relevance", sims[item.ID])
			continue
		}
		relevant = append(relevant, item)
	}

	if store := run.opts.Novelty; store != nil {
		ids := make([]string, len(relevant))
		for i, item := range relevant {
			ids[i] = item.ID
		}
		if err := store.LoadBatch(ctx, ids); err != nil {
			return nil, nil, nil, fmt.Errorf("loading novelty records: %w", err)
		}

		for _, item := range relevant {
			nov := store.Score(item.ID)
			store.MarkSeen(item.ID, map[string]string{
				"source": item.Source,
				"title":  item.Title,
			})
			if nov < run.opts.NoveltyThreshold {
				run.drop(item, "novelty", nov)
				continue
			}
			survivors = append(survivors, item)
			novelties = append(novelties, nov)
		}
		return survivors, novelties, sims, nil
	}

	// No store supplied: binary seen/unseen within this run.
	seen := make(map[string]bool, len(relevant))
	for _, item := range relevant {
		nov := 1.0
		if seen[item.ID] {
			nov = 0.0
		}
		seen[item.ID] = true
		if nov < run.opts.NoveltyThreshold {
			run.drop(item, "novelty", nov)
			continue
		}
		survivors = append(survivors, item)
		novelties = append(novelties, nov)
	}
	return survivors, novelties, sims, nil
}

// sortResults orders results by the sort key, descending. The sort is
// stable, so equal scores keep their relative order.
func sortResults(results []SignalResult, key SortKey) {
	sort.SliceStable(results, func(i, j int) bool {
		switch key {
		case SortRelevance:
			return results[i].ScoreBreakdown.Relevance > results[j].ScoreBreakdown.Relevance
		case SortRecency:
			return results[i].ScoreBreakdown.Recency > results[j].ScoreBreakdown.Recency
		case SortEngagement:
			return results[i].ScoreBreakdown.Engagement > results[j].ScoreBreakdown.Engagement
		default:
			return results[i].CompositeScore > results[j].CompositeScore
		}
	})
}

// engagementFields extracts numeric metadata values for engagement
// normalization.
func engagementFields(metadata map[string]any) map[string]float64 {
	if len(metadata) == 0 {
		return nil
	}
	fields := make(map[string]float64)
	for k, v := range metadata {
		switch n := v.(type) {
		case int:
			fields[k] = float64(n)
		case int64:
			fields[k] = float64(n)
		case float64:
			fields[k] = n
		}
	}
	return fields
}
