package autotag

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/autotagger/internal/event"
	"github.com/sydlexius/autotagger/internal/match"
	"github.com/sydlexius/autotagger/internal/provider"
)

type batch struct {
	cands []provider.RawCandidate
	diags []match.Diagnostic
}

// collect queries every provider concurrently and waits for all of them.
// Results are concatenated in registry order so candidate order does not
// depend on which provider answered first.
func (p *Pipeline) collect(ctx context.Context, runID string, local *provider.LocalEntity, log *slog.Logger) ([]provider.RawCandidate, []match.Diagnostic) {
	providers := p.registry.All()
	batches := make([]batch, len(providers))

	var g errgroup.Group
	for i, prov := range providers {
		g.Go(func() error {
			name := prov.Name()
			pctx, cancel := context.WithTimeout(ctx, p.timeouts.forSource(name))
			defer cancel()

			cands, err := prov.SearchCandidates(pctx, local)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				d := diagnose(pctx, string(StateCollecting), name, err)
				batches[i].diags = append(batches[i].diags, d)
				log.Warn("provider search failed",
					slog.String("provider", string(name)),
					slog.String("kind", string(d.Kind)),
					slog.String("error", err.Error()))
				p.events.Publish(event.Event{
					Type:  event.ProviderFailed,
					RunID: runID,
					Data:  map[string]any{"provider": string(name), "kind": string(d.Kind), "error": err.Error()},
				})
				return nil
			}

			for _, c := range cands {
				if err := c.Validate(); err != nil {
					batches[i].diags = append(batches[i].diags, match.Diagnostic{
						Phase:   string(StateCollecting),
						Source:  name,
						Kind:    match.DiagMalformed,
						Message: err.Error(),
					})
					log.Debug("dropping malformed candidate", slog.String("provider", string(name)), slog.String("error", err.Error()))
					continue
				}
				batches[i].cands = append(batches[i].cands, c)
			}
			log.Debug("provider returned candidates", slog.String("provider", string(name)), slog.Int("count", len(batches[i].cands)))
			return nil
		})
	}
	_ = g.Wait()

	var cands []provider.RawCandidate
	var diags []match.Diagnostic
	for _, b := range batches {
		cands = append(cands, b.cands...)
		diags = append(diags, b.diags...)
	}
	return cands, diags
}

// diagnose classifies a provider error. callCtx is the per-call context, so a
// deadline on it means the provider timed out.
func diagnose(callCtx context.Context, phase string, src provider.SourceName, err error) match.Diagnostic {
	d := match.Diagnostic{Phase: phase, Source: src, Kind: match.DiagError, Message: err.Error()}

	var authErr *provider.ErrAuthRequired
	var unavailable *provider.ErrProviderUnavailable
	switch {
	case errors.As(err, &authErr):
		d.Kind = match.DiagAuthRequired
	case errors.Is(err, context.DeadlineExceeded), errors.Is(callCtx.Err(), context.DeadlineExceeded):
		d.Kind = match.DiagTimeout
	case errors.As(err, &unavailable):
		d.Kind = match.DiagUnavailable
	}
	return d
}
