package resolver

import (
	"context"
	"errors"
	"strings"

	"vizard/internal/logging"
	"vizard/internal/types"
)

// Resolve runs the full pipeline for one prompt against a catalog snapshot.
// The snapshot is the caller's responsibility: a catalog update arriving
// mid-resolution does not affect this call.
func (r *Resolver) Resolve(ctx context.Context, prompt string, catalog types.Catalog) (types.Resolution, error) {
	if strings.TrimSpace(prompt) == "" {
		return types.Resolution{}, ErrEmptyPrompt
	}

	cls := r.Classify(ctx, prompt)

	switch cls.QuestionType {
	case types.QuestionGeneral:
		return types.Resolution{
			Method:    types.MethodNone,
			Reasoning: "prompt is not a data question",
		}, nil

	case types.QuestionModification:
		// Modification intents only ever match existing artifacts; a form
		// nobody defined should not be invented on the fly.
		res, err := r.match(ctx, prompt, catalog)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				return types.Resolution{
					Method:    types.MethodNone,
					Reasoning: "no artifact matches this modification request",
				}, nil
			}
			return types.Resolution{}, err
		}
		return res, nil

	default: // analytical
		return r.resolveAnalytical(ctx, prompt, cls, catalog)
	}
}

func (r *Resolver) resolveAnalytical(ctx context.Context, prompt string, cls types.Classification, catalog types.Catalog) (types.Resolution, error) {
	// Prefer an existing artifact over synthesizing a duplicate.
	if len(catalog.Artifacts) > 0 {
		res, err := r.match(ctx, prompt, catalog)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, ErrNoMatch) {
			return types.Resolution{}, err
		}
		logging.ResolverDebug("no catalog match for %q, synthesizing", prompt)
	}

	// Multiple requested views become children of one container.
	if len(cls.Visualizations) >= 2 || cls.NeedsMultiple {
		vizTypes := cls.Visualizations
		if len(vizTypes) == 0 {
			vizTypes = []string{types.VizMetric, types.VizTable}
		}
		return r.synthesizeMany(ctx, prompt, vizTypes)
	}

	constraint := ""
	if len(cls.Visualizations) == 1 {
		constraint = cls.Visualizations[0]
	}
	return r.synthesizeOne(ctx, prompt, constraint)
}

// match tries each configured strategy in order, stopping at the first
// non-ErrNoMatch outcome. Matched artifacts with a query are revalidated
// against the current prompt before being returned.
func (r *Resolver) match(ctx context.Context, prompt string, catalog types.Catalog) (types.Resolution, error) {
	for _, strat := range r.strategies() {
		res, err := strat.Match(ctx, prompt, catalog)
		if err != nil {
			if errors.Is(err, ErrNoMatch) {
				continue
			}
			// Retrieval errors cascade to the next strategy rather than
			// failing the prompt.
			logging.Get(logging.CategoryResolver).Warn("strategy %s failed: %v", strat.Name(), err)
			continue
		}

		if res.Artifact != nil && res.Artifact.Props.Query != "" {
			props, modified, changes := r.ValidateProps(ctx, prompt, *res.Artifact)
			res.Artifact.Props = props
			res.Modified = modified
			res.Changes = changes
		}
		return res, nil
	}
	return types.Resolution{}, ErrNoMatch
}

// strategies returns the ordered strategy chain for the configured mode.
func (r *Resolver) strategies() []Strategy {
	rank := &RankStrategy{r: r}
	if r.cfg.Strategy == "vector" && r.store != nil {
		return []Strategy{&VectorStrategy{r: r}, rank}
	}
	return []Strategy{rank}
}
