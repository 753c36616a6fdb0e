// Package autotag runs a matching session: it queries every registered
// provider for candidates, scores and adjusts them, augments the set with
// alternate-script pseudo-releases when needed, and returns one ranked,
// classified result.
package autotag

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/autotagger/internal/event"
	"github.com/sydlexius/autotagger/internal/match"
	"github.com/sydlexius/autotagger/internal/provider"
)

// State is a phase of a matching run, used in logs.
type State string

// Run phases.
const (
	StateCollecting  State = "collecting"
	StateScoring     State = "scoring"
	StateAdjusting   State = "adjusting"
	StateAugmenting  State = "augmenting"
	StateTieBreaking State = "tie_breaking"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// DefaultTimeout bounds a single provider call when no override is configured.
const DefaultTimeout = 20 * time.Second

// Options tunes a Pipeline. Zero values select defaults.
type Options struct {
	// Timeout bounds each provider call.
	Timeout time.Duration
	// ProviderTimeouts overrides Timeout per source.
	ProviderTimeouts map[provider.SourceName]time.Duration
	// RelatedLimit caps how many pseudo-release ids are fetched per run.
	RelatedLimit int
	// Events receives run notifications; nil disables them.
	Events event.Publisher
}

// Pipeline ranks candidates for local entities. It holds no per-run state
// and may serve concurrent runs.
type Pipeline struct {
	registry  *provider.Registry
	cfg       *match.PenaltyConfig
	scorer    *match.Scorer
	augmenter *Augmenter
	events    event.Publisher
	timeouts  timeouts
	logger    *slog.Logger
}

// New creates a Pipeline over the providers in registry.
func New(registry *provider.Registry, cfg *match.PenaltyConfig, opts Options, logger *slog.Logger) *Pipeline {
	logger = logger.With(slog.String("component", "autotag"))
	to := timeouts{def: opts.Timeout, per: maps.Clone(opts.ProviderTimeouts)}
	if to.def <= 0 {
		to.def = DefaultTimeout
	}
	events := opts.Events
	if events == nil {
		events = nopPublisher{}
	}
	return &Pipeline{
		registry:  registry,
		cfg:       cfg,
		scorer:    match.NewScorer(cfg),
		augmenter: NewAugmenter(registry, cfg, to.forSource, opts.RelatedLimit, logger),
		events:    events,
		timeouts:  to,
		logger:    logger,
	}
}

// Config returns the penalty configuration used for every run.
func (p *Pipeline) Config() *match.PenaltyConfig { return p.cfg }

// Run matches local against every registered provider. A cancelled ctx
// yields no result. An entity without title or artist and an empty
// candidate set are reported through RankedResult.Status, not as errors.
func (p *Pipeline) Run(ctx context.Context, local *provider.LocalEntity) (*match.RankedResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := p.logger.With(slog.String("run_id", runID))
	result := &match.RankedResult{RunID: runID, Recommendation: match.RecommendationNone}

	if !local.Identifiable() {
		log.Info("local entity has no title or artist", slog.String("state", string(StateFailed)))
		result.Status = match.StatusUnidentifiable
		p.publishCompleted(result)
		return result, nil
	}

	start := time.Now()
	log.Debug("run started", slog.String("state", string(StateCollecting)), slog.Bool("album", local.IsAlbum()))

	raws, diags := p.collect(ctx, runID, local, log)
	if err := ctx.Err(); err != nil {
		log.Info("run cancelled", slog.String("state", string(StateCollecting)))
		return nil, err
	}
	result.Diagnostics = diags

	if len(raws) == 0 {
		log.Info("no candidates found", slog.Int("diagnostics", len(diags)))
		result.Status = match.StatusNoCandidates
		p.publishCompleted(result)
		return result, nil
	}

	log.Debug("scoring and adjusting candidates", slog.String("state", string(StateScoring)), slog.Int("candidates", len(raws)))
	scored := make([]match.ScoredCandidate, 0, len(raws))
	scored, result.Diagnostics = p.scoreAll(local, raws, scored, result.Diagnostics)

	log.Debug("checking for pseudo-releases", slog.String("state", string(StateAugmenting)))
	match.Rank(scored, p.cfg)
	extra, augDiags := p.augmenter.Augment(ctx, local, scored)
	if err := ctx.Err(); err != nil {
		log.Info("run cancelled", slog.String("state", string(StateAugmenting)))
		return nil, err
	}
	result.Diagnostics = append(result.Diagnostics, augDiags...)
	if len(extra) > 0 {
		log.Debug("adding pseudo-releases", slog.Int("count", len(extra)))
		scored, result.Diagnostics = p.scoreAll(local, extra, scored, result.Diagnostics)
	}

	log.Debug("resolving ties", slog.String("state", string(StateTieBreaking)), slog.String("strategy", string(p.cfg.TieBreak())))
	match.Rank(scored, p.cfg)

	result.Status = match.StatusRanked
	result.Candidates = scored
	match.Classify(result, p.cfg)

	best := result.Best()
	log.Info("run complete",
		slog.String("state", string(StateDone)),
		slog.Int("candidates", len(scored)),
		slog.String("best_source", string(best.Candidate.Source)),
		slog.String("best_id", best.Candidate.ID),
		slog.Float64("best_distance", best.Distance),
		slog.Bool("auto_acceptable", result.AutoAcceptable),
		slog.Duration("elapsed", time.Since(start)))

	p.publishCompleted(result)
	return result, nil
}

// scoreAll scores and adjusts raws, appending to dst. Seq continues from
// len(dst) so first-seen order spans primaries and augmentation.
func (p *Pipeline) scoreAll(local *provider.LocalEntity, raws []provider.RawCandidate, dst []match.ScoredCandidate, diags []match.Diagnostic) ([]match.ScoredCandidate, []match.Diagnostic) {
	for _, raw := range raws {
		sc := p.scorer.Score(local, raw)
		sc.Seq = len(dst)
		if sc.HasPenalty(match.PenaltyNoComparableFields) {
			diags = append(diags, match.Diagnostic{
				Phase:   string(StateScoring),
				Source:  raw.Source,
				Kind:    match.DiagNoComparableFields,
				Message: "candidate " + raw.ID + " shares no known fields with the local entity",
			})
		}
		dst = append(dst, match.Adjust(sc, p.cfg))
	}
	return dst, diags
}

func (p *Pipeline) publishCompleted(r *match.RankedResult) {
	data := map[string]any{
		"status":          string(r.Status),
		"candidates":      len(r.Candidates),
		"auto_acceptable": r.AutoAcceptable,
		"recommendation":  string(r.Recommendation),
	}
	if best := r.Best(); best != nil {
		data["best_source"] = string(best.Candidate.Source)
		data["best_id"] = best.Candidate.ID
		data["best_distance"] = best.Distance
	}
	p.events.Publish(event.Event{Type: event.MatchCompleted, RunID: r.RunID, Data: data})
	if r.Status == match.StatusRanked && !r.AutoAcceptable {
		p.events.Publish(event.Event{Type: event.MatchReviewNeeded, RunID: r.RunID, Data: data})
	}
}

type timeouts struct {
	def time.Duration
	per map[provider.SourceName]time.Duration
}

func (t timeouts) forSource(src provider.SourceName) time.Duration {
	if src == provider.SourceMusicBrainzPseudo {
		src = provider.SourceMusicBrainz
	}
	if d, ok := t.per[src]; ok && d > 0 {
		return d
	}
	return t.def
}

type nopPublisher struct{}

func (nopPublisher) Publish(event.Event) {}
