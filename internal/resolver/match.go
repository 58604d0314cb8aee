package resolver

import (
	"context"
	"fmt"
	"strings"

	"vizard/internal/llm"
	"vizard/internal/logging"
	"vizard/internal/types"
)

// Strategy is one way of finding an existing artifact for a prompt. Match
// returns ErrNoMatch when nothing usable was found; the resolver then moves
// to the next strategy.
type Strategy interface {
	Name() string
	Match(ctx context.Context, prompt string, catalog types.Catalog) (types.Resolution, error)
}

// RankStrategy sends the whole catalog to the completion capability and asks
// for the best match with a confidence score.
type RankStrategy struct {
	r *Resolver
}

func (s *RankStrategy) Name() string { return "rank" }

const rankSystemPrompt = `You match a user prompt to the best existing artifact.
Given a numbered artifact list, pick the one that best answers the prompt.
Score confidence 0-100. If nothing fits, use confidence 0.
Also list up to two alternates with their own scores.

Respond with only a JSON object:
{"best_id": "...", "confidence": 0, "alternates": [{"id": "...", "confidence": 0}]}`

func (s *RankStrategy) Match(ctx context.Context, prompt string, catalog types.Catalog) (types.Resolution, error) {
	if len(catalog.Artifacts) == 0 {
		return types.Resolution{}, ErrNoMatch
	}

	var list strings.Builder
	for i, a := range catalog.Artifacts {
		fmt.Fprintf(&list, "%d. id=%s name=%q type=%s category=%s description=%q keywords=%s\n",
			i+1, a.ID, a.Name, a.Type, a.Category, a.Description, strings.Join(a.Keywords, ","))
	}

	user := fmt.Sprintf("Artifacts:\n%s\nUser prompt: %s", list.String(), prompt)
	raw, err := s.r.client.CompleteWithSystem(ctx, rankSystemPrompt, user)
	if err != nil {
		return types.Resolution{}, fmt.Errorf("rank call failed: %w", err)
	}

	var parsed struct {
		BestID     string `json:"best_id"`
		Confidence int    `json:"confidence"`
		Alternates []struct {
			ID         string `json:"id"`
			Confidence int    `json:"confidence"`
		} `json:"alternates"`
	}
	if err := llm.ParseJSON(raw, &parsed); err != nil {
		return types.Resolution{}, fmt.Errorf("unparseable rank response: %w", err)
	}

	if parsed.Confidence < s.r.cfg.MinConfidence {
		logging.ResolverDebug("rank confidence %d below threshold %d", parsed.Confidence, s.r.cfg.MinConfidence)
		return types.Resolution{}, ErrNoMatch
	}
	artifact := catalog.Find(parsed.BestID)
	if artifact == nil {
		logging.Get(logging.CategoryResolver).Warn("rank returned unknown artifact id %q", parsed.BestID)
		return types.Resolution{}, ErrNoMatch
	}

	matched := *artifact // copy; the catalog snapshot stays untouched
	return types.Resolution{
		Artifact:  &matched,
		Method:    types.MethodRank,
		Reasoning: fmt.Sprintf("ranked best of %d artifacts with confidence %d", len(catalog.Artifacts), parsed.Confidence),
	}, nil
}

// VectorStrategy retrieves the nearest candidates from the candidate store
// and asks the completion capability to pick among exactly those.
type VectorStrategy struct {
	r *Resolver
}

func (s *VectorStrategy) Name() string { return "vector" }

const rerankSystemPrompt = `You pick the single best artifact for a user prompt
from a short candidate list. Apply these intent heuristics:
- "view", "show", "list" lean toward table artifacts
- "create", "add" lean toward form artifacts (not edit forms)
- "edit", "update", "change" lean toward edit_form artifacts
- insight or overview language leans toward dashboard or chart artifacts

If none of the candidates fit, use an empty id.

Respond with only a JSON object: {"id": "...", "reasoning": "..."}`

func (s *VectorStrategy) Match(ctx context.Context, prompt string, catalog types.Catalog) (types.Resolution, error) {
	if s.r.store == nil {
		return types.Resolution{}, ErrNoMatch
	}

	items, err := s.r.store.Query(ctx, s.r.cfg.Collection, prompt, s.r.cfg.TopK)
	if err != nil {
		// Retrieval failure cascades to the rank strategy.
		return types.Resolution{}, fmt.Errorf("candidate retrieval failed: %w", err)
	}
	if len(items) == 0 {
		return types.Resolution{}, ErrNoMatch
	}

	var list strings.Builder
	count := 0
	for _, item := range items {
		a := catalog.Find(item.ID)
		if a == nil {
			// Stale candidate from a previous catalog; skip it.
			continue
		}
		count++
		fmt.Fprintf(&list, "%d. id=%s name=%q type=%s description=%q (similarity %.2f)\n",
			count, a.ID, a.Name, a.Type, a.Description, item.Similarity)
	}
	if count == 0 {
		return types.Resolution{}, ErrNoMatch
	}

	user := fmt.Sprintf("Candidates:\n%s\nUser prompt: %s", list.String(), prompt)
	raw, err := s.r.client.CompleteWithSystem(ctx, rerankSystemPrompt, user)
	if err != nil {
		return types.Resolution{}, fmt.Errorf("rerank call failed: %w", err)
	}

	var parsed struct {
		ID        string `json:"id"`
		Reasoning string `json:"reasoning"`
	}
	if err := llm.ParseJSON(raw, &parsed); err != nil {
		return types.Resolution{}, fmt.Errorf("unparseable rerank response: %w", err)
	}
	if parsed.ID == "" {
		return types.Resolution{}, ErrNoMatch
	}
	artifact := catalog.Find(parsed.ID)
	if artifact == nil {
		return types.Resolution{}, ErrNoMatch
	}

	matched := *artifact
	return types.Resolution{
		Artifact:  &matched,
		Method:    types.MethodVector,
		Reasoning: parsed.Reasoning,
	}, nil
}
