package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeIncludesTablesAndColumns(t *testing.T) {
	doc := Describe(Default())

	for _, want := range []string{
		"Data source: commerce",
		"Table `orders`",
		"Table `customers`",
		"`customer_id` INTEGER (references customers.id)",
		"`id` INTEGER (primary key)",
		"(e.g. pending, shipped, cancelled)",
	} {
		assert.Contains(t, doc, want)
	}
	// Rendered docs stay plain ASCII.
	assert.NotContains(t, doc, "\u2014")
}

func TestDescribeOrderIsStable(t *testing.T) {
	a := Describe(Default())
	b := Describe(Default())
	assert.Equal(t, a, b)

	// Tables appear in definition order.
	custIdx := strings.Index(a, "Table `customers`")
	orderIdx := strings.Index(a, "Table `orders`")
	require.Greater(t, custIdx, -1)
	require.Greater(t, orderIdx, -1)
	assert.Less(t, custIdx, orderIdx)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	content := `
name: warehouse
tables:
  - name: events
    description: Raw event stream.
    columns:
      - name: id
        type: BIGINT
        primary_key: true
      - name: kind
        type: TEXT
        samples: ["click", "view"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	def, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warehouse", def.Name)
	require.Len(t, def.Tables, 1)
	assert.Equal(t, "events", def.Tables[0].Name)
	assert.True(t, def.Tables[0].Columns[0].PrimaryKey)
}

func TestLoadRejectsEmptySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: empty\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
