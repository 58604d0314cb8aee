package types

// QuestionType buckets a user prompt by intent.
type QuestionType string

const (
	QuestionAnalytical   QuestionType = "analytical"
	QuestionModification QuestionType = "data_modification"
	QuestionGeneral      QuestionType = "general"
)

// Classification is the per-prompt intent result. Visualizations is empty
// unless the question is analytical. Produced fresh per prompt, never
// persisted.
type Classification struct {
	QuestionType   QuestionType `json:"question_type"`
	Visualizations []string     `json:"visualizations"`
	NeedsMultiple  bool         `json:"needs_multiple"`
}

// Resolution method tags.
const (
	MethodNone        = "none"
	MethodRank        = "match_rank"
	MethodVector      = "match_vector"
	MethodSynthesized = "synthesized"
	MethodMulti       = "synthesized_multi"
)

// Resolution is the outcome of resolving one prompt. Artifact is nil when
// nothing matched and nothing could be synthesized. Reasoning is diagnostic
// only and never load-bearing.
type Resolution struct {
	Artifact  *Artifact `json:"artifact,omitempty"`
	Reasoning string    `json:"reasoning,omitempty"`
	Method    string    `json:"method"`
	Modified  bool      `json:"modified,omitempty"`
	Changes   []string  `json:"changes,omitempty"`
}
