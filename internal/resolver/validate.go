package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"vizard/internal/llm"
	"vizard/internal/logging"
	"vizard/internal/types"
)

const validateSystemPrompt = `You adjust an existing visualization's parameters to
fit the user's current prompt. You are given the artifact's props (query,
title, description, config) and the prompt. Return a complete replacement
props object; keep anything that still fits, change only what the prompt
requires, and use only tables and columns from the schema. Set modified to
true when anything changed, with a short human-readable description per
change.

Respond with only a JSON object:
{"props": {"query": "...", "title": "...", "description": "...", "config": {}},
 "modified": false, "changes": ["..."]}`

// ValidateProps revalidates a matched artifact's props against the current
// prompt. The stored query is a starting point, not a guarantee of fit. Any
// capability failure is absorbed: the original props come back unchanged
// with modified=false, so validation can never block returning the match.
func (r *Resolver) ValidateProps(ctx context.Context, prompt string, artifact types.Artifact) (types.Props, bool, []string) {
	original := artifact.Props

	current, err := jsonProps(original)
	if err != nil {
		logging.Get(logging.CategoryResolver).Warn("failed to encode props for %s: %v", artifact.ID, err)
		return original, false, nil
	}

	user := fmt.Sprintf("%s\n\nArtifact type: %s\nCurrent props: %s\n\nUser prompt: %s",
		r.schemaDoc, artifact.Type, current, prompt)

	raw, err := r.client.CompleteWithSystem(ctx, validateSystemPrompt, user)
	if err != nil {
		logging.Get(logging.CategoryResolver).Warn("props validation failed for %s: %v (keeping original)", artifact.ID, err)
		return original, false, nil
	}

	var parsed struct {
		Props    types.Props `json:"props"`
		Modified bool        `json:"modified"`
		Changes  []string    `json:"changes"`
	}
	if err := llm.ParseJSON(raw, &parsed); err != nil {
		logging.Get(logging.CategoryResolver).Warn("unparseable props validation for %s: %v (keeping original)", artifact.ID, err)
		return original, false, nil
	}

	// The guarantee holds regardless of what the capability returned.
	parsed.Props.Query = r.boundQuery(parsed.Props.Query)

	if parsed.Modified {
		logging.ResolverDebug("props for %s modified: %v", artifact.ID, parsed.Changes)
	}
	return parsed.Props, parsed.Modified, parsed.Changes
}

func jsonProps(p types.Props) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
