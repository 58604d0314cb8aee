package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"vizard/internal/llm"
	"vizard/internal/logging"
	"vizard/internal/types"
)

const synthesizeSystemPrompt = `You design one data visualization for a user prompt.
Using only tables and columns from the provided schema, produce:
- type: one of metric, timeseries, bar, pie, table, form, edit_form, dashboard
- query: a SQL query fetching the data (SELECT only)
- title and description
- config: type-appropriate settings (e.g. {"format":"number"} for metric,
  {"x_axis":"...","y_axis":"..."} for charts, {"columns":[...]} for tables)
- can_generate: false if the prompt cannot be answered from this schema

Respond with only a JSON object:
{"can_generate": true, "type": "...", "query": "...", "title": "...",
 "description": "...", "config": {}}`

type synthesizedProps struct {
	CanGenerate bool           `json:"can_generate"`
	Type        string         `json:"type"`
	Query       string         `json:"query"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Config      map[string]any `json:"config"`
}

// synthesizeOne generates a single fresh artifact. An empty constraint lets
// the capability choose the visualization type.
func (r *Resolver) synthesizeOne(ctx context.Context, prompt, constraint string) (types.Resolution, error) {
	user := fmt.Sprintf("%s\n\nUser prompt: %s", r.schemaDoc, prompt)
	if constraint != "" {
		user += fmt.Sprintf("\n\nThe visualization type must be %q.", constraint)
	}

	raw, err := r.client.CompleteWithSystem(ctx, synthesizeSystemPrompt, user)
	if err != nil {
		return types.Resolution{}, fmt.Errorf("synthesis call failed: %w", err)
	}
	var parsed synthesizedProps
	if err := llm.ParseJSON(raw, &parsed); err != nil {
		return types.Resolution{}, fmt.Errorf("unparseable synthesis response: %w", err)
	}

	if !parsed.CanGenerate {
		return types.Resolution{
			Method:    types.MethodNone,
			Reasoning: "capability reported the prompt cannot be answered from the schema",
		}, nil
	}
	if constraint != "" {
		parsed.Type = constraint
	}

	artifact := r.buildArtifact(prompt, parsed)
	logging.Resolver("synthesized %s artifact %s for %q", artifact.Type, artifact.ID, prompt)
	return types.Resolution{
		Artifact:  artifact,
		Method:    types.MethodSynthesized,
		Reasoning: fmt.Sprintf("no existing artifact fit; generated a %s view", artifact.Type),
	}, nil
}

const synthesizeManySystemPrompt = `You design a set of data visualizations for a
user prompt, one per requested type, using only tables and columns from the
provided schema. Also produce a title and description for the combined view.

Each component needs: type (as requested), query (SELECT only), title,
description, and type-appropriate config.

Respond with only a JSON object:
{"title": "...", "description": "...",
 "components": [{"type": "...", "query": "...", "title": "...",
                 "description": "...", "config": {}}]}`

// synthesizeMany generates one artifact per requested visualization type and
// wraps them in a single container.
func (r *Resolver) synthesizeMany(ctx context.Context, prompt string, vizTypes []string) (types.Resolution, error) {
	user := fmt.Sprintf("%s\n\nRequested visualization types, in order: %s\n\nUser prompt: %s",
		r.schemaDoc, strings.Join(vizTypes, ", "), prompt)

	raw, err := r.client.CompleteWithSystem(ctx, synthesizeManySystemPrompt, user)
	if err != nil {
		return types.Resolution{}, fmt.Errorf("multi-synthesis call failed: %w", err)
	}
	var parsed struct {
		Title       string             `json:"title"`
		Description string             `json:"description"`
		Components  []synthesizedProps `json:"components"`
	}
	if err := llm.ParseJSON(raw, &parsed); err != nil {
		return types.Resolution{}, fmt.Errorf("unparseable multi-synthesis response: %w", err)
	}
	if len(parsed.Components) == 0 {
		return types.Resolution{
			Method:    types.MethodNone,
			Reasoning: "capability produced no components",
		}, nil
	}

	// One child per requested type, in request order. Components beyond the
	// requested list are dropped; short responses keep whatever came back.
	children := make([]types.Artifact, 0, len(vizTypes))
	for i, comp := range parsed.Components {
		if i < len(vizTypes) {
			comp.Type = vizTypes[i]
		}
		comp.CanGenerate = true
		children = append(children, *r.buildArtifact(prompt, comp))
		if len(children) == len(vizTypes) {
			break
		}
	}

	container := &types.Artifact{
		ID:          mintArtifactID(types.VizContainer),
		Name:        parsed.Title,
		Type:        types.VizContainer,
		Description: parsed.Description,
		Category:    "dynamic",
		Props: types.Props{
			Title:       parsed.Title,
			Description: parsed.Description,
			Config: map[string]any{
				"components": children,
				"layout":     "grid",
			},
		},
	}

	logging.Resolver("synthesized container %s with %d children for %q", container.ID, len(children), prompt)
	return types.Resolution{
		Artifact:  container,
		Method:    types.MethodMulti,
		Reasoning: fmt.Sprintf("generated %d views composed into one container", len(children)),
	}, nil
}

// buildArtifact mints a fresh artifact from synthesized props, applying the
// row-limit guarantee to the generated query.
func (r *Resolver) buildArtifact(prompt string, p synthesizedProps) *types.Artifact {
	if p.Type == "" {
		p.Type = types.VizTable
	}
	return &types.Artifact{
		ID:          mintArtifactID(p.Type),
		Name:        p.Title,
		Type:        p.Type,
		Description: p.Description,
		Category:    "dynamic",
		Keywords:    keywordsFromPrompt(prompt),
		Props: types.Props{
			Query:       r.boundQuery(p.Query),
			Title:       p.Title,
			Description: p.Description,
			Config:      p.Config,
		},
	}
}

// mintArtifactID derives a unique id from the type and generation time.
func mintArtifactID(vizType string) string {
	return fmt.Sprintf("gen-%s-%d-%s", vizType, time.Now().Unix(), uuid.NewString()[:8])
}

// keywordsFromPrompt extracts the prompt's significant words for lexical
// matching of future prompts against this artifact.
func keywordsFromPrompt(prompt string) []string {
	stop := map[string]bool{
		"the": true, "a": true, "an": true, "of": true, "for": true,
		"me": true, "my": true, "and": true, "to": true, "in": true,
		"show": true, "display": true, "give": true,
	}
	var out []string
	for _, w := range strings.Fields(strings.ToLower(prompt)) {
		w = strings.Trim(w, ".,!?;:")
		if len(w) < 3 || stop[w] {
			continue
		}
		out = append(out, w)
		if len(out) == 8 {
			break
		}
	}
	return out
}
