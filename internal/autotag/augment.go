package autotag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"

	"github.com/sydlexius/autotagger/internal/match"
	"github.com/sydlexius/autotagger/internal/provider"
)

// DefaultRelatedLimit caps the pseudo-release lookups made for one run.
const DefaultRelatedLimit = 5

// FetcherLookup resolves the release fetcher for a source. *provider.Registry
// implements it.
type FetcherLookup interface {
	Fetcher(src provider.SourceName) provider.ReleaseFetcher
}

// Augmenter adds alternate-script pseudo-releases of the best candidate when
// its script is not one the user wants.
type Augmenter struct {
	fetchers FetcherLookup
	cfg      *match.PenaltyConfig
	timeout  func(provider.SourceName) time.Duration
	limit    int
	logger   *slog.Logger
}

// NewAugmenter creates an Augmenter. limit <= 0 selects DefaultRelatedLimit.
func NewAugmenter(fetchers FetcherLookup, cfg *match.PenaltyConfig, timeout func(provider.SourceName) time.Duration, limit int, logger *slog.Logger) *Augmenter {
	if limit <= 0 {
		limit = DefaultRelatedLimit
	}
	if timeout == nil {
		timeout = func(provider.SourceName) time.Duration { return DefaultTimeout }
	}
	return &Augmenter{fetchers: fetchers, cfg: cfg, timeout: timeout, limit: limit, logger: logger}
}

// Augment returns related releases of the best ranked candidate that are in
// a desired script. Without configured desired scripts, a known script hint
// on local is the desired script. ranked must be ordered best first. The
// returned candidates carry no precedence; the caller scores them like any
// other.
func (a *Augmenter) Augment(ctx context.Context, local *provider.LocalEntity, ranked []match.ScoredCandidate) ([]provider.RawCandidate, []match.Diagnostic) {
	wants := a.scriptFilter(local)
	if wants == nil || len(ranked) == 0 {
		return nil, nil
	}
	best := ranked[0].Candidate
	script := match.CandidateScript(&best)
	if script == "" || wants(script) || len(best.RelatedIDs) == 0 {
		return nil, nil
	}

	fetcher := a.fetchers.Fetcher(best.Source)
	if fetcher == nil {
		return nil, []match.Diagnostic{{
			Phase:   string(StateAugmenting),
			Source:  best.Source,
			Kind:    match.DiagError,
			Message: "no release lookup available for related releases",
		}}
	}

	ids := a.pendingIDs(best.RelatedIDs, ranked)
	if len(ids) == 0 {
		return nil, nil
	}
	a.logger.Debug("fetching related releases",
		slog.String("source", string(best.Source)),
		slog.String("parent", best.ID),
		slog.String("script", script),
		slog.Int("count", len(ids)))

	fetched := make([]*provider.RawCandidate, len(ids))
	failures := make([]*match.Diagnostic, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, a.timeout(best.Source))
			defer cancel()
			rel, err := fetcher.FetchRelease(fctx, id)
			if err != nil {
				if ctx.Err() == nil {
					d := diagnose(fctx, string(StateAugmenting), best.Source, fmt.Errorf("fetching related release %s: %w", id, err))
					failures[i] = &d
				}
				return nil
			}
			fetched[i] = rel
			return nil
		})
	}
	_ = g.Wait()

	var out []provider.RawCandidate
	var diags []match.Diagnostic
	for i, rel := range fetched {
		if failures[i] != nil {
			diags = append(diags, *failures[i])
			continue
		}
		if rel == nil {
			continue
		}
		if err := rel.Validate(); err != nil {
			diags = append(diags, match.Diagnostic{Phase: string(StateAugmenting), Source: best.Source, Kind: match.DiagMalformed, Message: err.Error()})
			continue
		}
		if !wants(match.CandidateScript(rel)) {
			continue
		}
		inherit(rel, &best)
		out = append(out, *rel)
	}
	return out, diags
}

// scriptFilter returns the desired-script test for a run, or nil when no
// script is wanted.
func (a *Augmenter) scriptFilter(local *provider.LocalEntity) func(string) bool {
	if len(a.cfg.DesiredScripts()) > 0 {
		return a.cfg.WantsScript
	}
	if local == nil || local.Script == "" {
		return nil
	}
	hint, err := language.ParseScript(local.Script)
	if err != nil {
		a.logger.Debug("ignoring unknown script hint", slog.String("script", local.Script))
		return nil
	}
	return func(code string) bool {
		sc, err := language.ParseScript(code)
		return err == nil && sc == hint
	}
}

// pendingIDs de-duplicates related ids, skips ones already ranked and applies
// the lookup limit.
func (a *Augmenter) pendingIDs(related []string, ranked []match.ScoredCandidate) []string {
	seen := make(map[string]bool, len(ranked)+len(related))
	for _, sc := range ranked {
		seen[sc.Candidate.ID] = true
	}
	var ids []string
	for _, id := range related {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
		if len(ids) == a.limit {
			break
		}
	}
	return ids
}

// inherit fills fields a pseudo-release typically lacks from its parent.
func inherit(rel, parent *provider.RawCandidate) {
	if rel.Year == nil {
		rel.Year = parent.Year
	}
	if rel.Duration == nil {
		rel.Duration = parent.Duration
	}
	if len(rel.Tracks) != len(parent.Tracks) {
		return
	}
	for i := range rel.Tracks {
		if rel.Tracks[i].Duration == nil {
			rel.Tracks[i].Duration = parent.Tracks[i].Duration
		}
		if rel.Tracks[i].Index == nil {
			rel.Tracks[i].Index = parent.Tracks[i].Index
		}
	}
}
