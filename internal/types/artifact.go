package types

// Visualization vocabulary. Synthesis may be constrained to one of these;
// matching heuristics map user intent onto them.
const (
	VizMetric     = "metric"     // single KPI value
	VizTimeSeries = "timeseries" // value over time
	VizBar        = "bar"        // categorical comparison
	VizPie        = "pie"        // proportion of a whole
	VizTable      = "table"      // tabular listing
	VizForm       = "form"       // data entry
	VizEditForm   = "edit_form"  // record editing
	VizDashboard  = "dashboard"  // composed overview
	VizContainer  = "container"  // ordered set of child artifacts
)

// VisualizationTypes lists the tags synthesis is allowed to produce.
var VisualizationTypes = []string{
	VizMetric, VizTimeSeries, VizBar, VizPie, VizTable,
	VizForm, VizEditForm, VizDashboard,
}

// Props holds the renderable parameters of an artifact. Config is shaped by
// the artifact type; for containers it carries "components" (ordered child
// artifacts) and "layout".
type Props struct {
	Query       string         `json:"query,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

// Artifact is a described, parameterized unit of visualization, either
// matched from the catalog or freshly synthesized. Synthesized artifacts get
// a generation-time id and category "dynamic". Containers are never nested
// more than one level deep.
type Artifact struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Props       Props    `json:"props"`
}

// SearchText renders the lexical surface used for embedding and ranking.
func (a *Artifact) SearchText() string {
	s := a.Name + " " + a.Description
	for _, kw := range a.Keywords {
		s += " " + kw
	}
	return s
}

// Catalog is an immutable snapshot of the known artifacts. Updates replace
// the whole snapshot (never merge) and bump Version; resolution calls hold
// the snapshot they started with.
type Catalog struct {
	Version   uint64
	Artifacts []Artifact
}

// Find returns the artifact with the given id, or nil.
func (c Catalog) Find(id string) *Artifact {
	for i := range c.Artifacts {
		if c.Artifacts[i].ID == id {
			return &c.Artifacts[i]
		}
	}
	return nil
}
