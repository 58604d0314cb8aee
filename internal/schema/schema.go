// Package schema describes the data source the agent answers questions
// about. The structured definition is rendered into documentation that the
// classifier and synthesis prompts consume.
package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Column describes one table column, with optional sample values to anchor
// the completion capability on real data shapes.
type Column struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	PrimaryKey bool     `yaml:"primary_key,omitempty"`
	References string   `yaml:"references,omitempty"` // "table.column"
	Samples    []string `yaml:"samples,omitempty"`
}

// Table describes one relational table.
type Table struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Columns     []Column `yaml:"columns"`
}

// Definition is a full data-source schema.
type Definition struct {
	Name   string  `yaml:"name"`
	Tables []Table `yaml:"tables"`
}

// Load reads a schema definition from a YAML file.
func Load(path string) (Definition, error) {
	var def Definition
	data, err := os.ReadFile(path)
	if err != nil {
		return def, fmt.Errorf("failed to read schema file: %w", err)
	}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, fmt.Errorf("failed to parse schema file: %w", err)
	}
	if len(def.Tables) == 0 {
		return def, fmt.Errorf("schema %q defines no tables", def.Name)
	}
	return def, nil
}
