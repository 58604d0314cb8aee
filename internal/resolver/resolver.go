// Package resolver turns a free-form user prompt into at most one renderable
// artifact. The pipeline: classify intent, match against the known catalog,
// mutate the matched artifact's props for the current prompt, or synthesize
// one or more fresh artifacts when nothing matches.
package resolver

import (
	"errors"
	"strings"

	"vizard/internal/llm"
	"vizard/internal/safety"
	"vizard/internal/store"
)

// ErrNoMatch is returned by a matching strategy that found nothing usable;
// the resolver then tries the next strategy in order.
var ErrNoMatch = errors.New("no matching artifact")

// ErrEmptyPrompt rejects blank input before any capability call.
var ErrEmptyPrompt = errors.New("prompt is empty")

// Config tunes the resolution pipeline.
type Config struct {
	// Strategy selects the primary matching strategy: "vector" (candidate
	// store retrieval with rank fallback) or "rank" (full-catalog ranking).
	Strategy string `yaml:"strategy"`

	// Collection is the candidate store collection holding the catalog.
	Collection string `yaml:"collection"`

	// TopK is the number of nearest candidates fetched for reranking.
	TopK int `yaml:"top_k"`

	// MinConfidence is the acceptance threshold (0-100) for ranked matches.
	MinConfidence int `yaml:"min_confidence"`

	// RowLimit bounds generated read queries.
	RowLimit int `yaml:"row_limit"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:      "rank",
		Collection:    "artifacts",
		TopK:          5,
		MinConfidence: 30,
		RowLimit:      safety.DefaultRowLimit,
	}
}

// Resolver drives the prompt-resolution pipeline.
type Resolver struct {
	client    llm.Client
	store     *store.Store // nil disables the vector strategy
	schemaDoc string
	cfg       Config
}

// New creates a resolver. store may be nil; schemaDoc is the rendered schema
// documentation injected into every prompt.
func New(client llm.Client, candidates *store.Store, schemaDoc string, cfg Config) *Resolver {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 30
	}
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = safety.DefaultRowLimit
	}
	if cfg.Collection == "" {
		cfg.Collection = "artifacts"
	}
	return &Resolver{
		client:    client,
		store:     candidates,
		schemaDoc: schemaDoc,
		cfg:       cfg,
	}
}

// boundQuery applies the row-limit guarantee with the configured bound.
func (r *Resolver) boundQuery(query string) string {
	if strings.TrimSpace(query) == "" {
		return query
	}
	return safety.EnsureQueryLimitN(query, r.cfg.RowLimit)
}
