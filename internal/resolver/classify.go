package resolver

import (
	"context"
	"fmt"
	"strings"

	"vizard/internal/llm"
	"vizard/internal/logging"
	"vizard/internal/types"
)

const classifySystemPrompt = `You classify user prompts for a data agent.
Classify the prompt into exactly one question_type:
- "analytical": asks to see, chart, count, summarize, or explore data
- "data_modification": asks to create, update, or delete records
- "general": anything else (greetings, meta questions, chit-chat)

For analytical prompts, list the visualization types that would answer it,
chosen from: metric, timeseries, bar, pie, table, form, edit_form, dashboard.
Set needs_multiple to true when the prompt asks for more than one distinct
view of the data.

Respond with only a JSON object:
{"question_type": "...", "visualizations": ["..."], "needs_multiple": false}`

// Classify buckets the prompt by intent. Any capability failure falls back
// to {analytical, [], false}: it is safer to attempt resolution than to drop
// the prompt.
func (r *Resolver) Classify(ctx context.Context, prompt string) types.Classification {
	fallback := types.Classification{
		QuestionType:   types.QuestionAnalytical,
		Visualizations: []string{},
		NeedsMultiple:  false,
	}

	user := fmt.Sprintf("%s\n\nUser prompt: %s", r.schemaDoc, prompt)
	raw, err := r.client.CompleteWithSystem(ctx, classifySystemPrompt, user)
	if err != nil {
		logging.Get(logging.CategoryResolver).Warn("classification call failed: %v (falling back to analytical)", err)
		return fallback
	}

	var parsed struct {
		QuestionType   string   `json:"question_type"`
		Visualizations []string `json:"visualizations"`
		NeedsMultiple  bool     `json:"needs_multiple"`
	}
	if err := llm.ParseJSON(raw, &parsed); err != nil {
		logging.Get(logging.CategoryResolver).Warn("unparseable classification %q: %v", raw, err)
		return fallback
	}

	var qt types.QuestionType
	switch strings.TrimSpace(parsed.QuestionType) {
	case string(types.QuestionAnalytical):
		qt = types.QuestionAnalytical
	case string(types.QuestionModification):
		qt = types.QuestionModification
	case string(types.QuestionGeneral):
		qt = types.QuestionGeneral
	default:
		logging.Get(logging.CategoryResolver).Warn("unknown question_type %q, falling back", parsed.QuestionType)
		return fallback
	}

	viz := make([]string, 0, len(parsed.Visualizations))
	if qt == types.QuestionAnalytical {
		for _, v := range parsed.Visualizations {
			if isKnownVisualization(v) {
				viz = append(viz, v)
			}
		}
	}

	cls := types.Classification{
		QuestionType:   qt,
		Visualizations: viz,
		NeedsMultiple:  parsed.NeedsMultiple,
	}
	logging.ResolverDebug("classified %q as %s viz=%v multiple=%v", prompt, qt, viz, cls.NeedsMultiple)
	return cls
}

func isKnownVisualization(v string) bool {
	for _, known := range types.VisualizationTypes {
		if v == known {
			return true
		}
	}
	return false
}
