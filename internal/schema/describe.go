package schema

import (
	"fmt"
	"strings"
)

// Describe renders the definition into the human-readable documentation
// handed to classification and synthesis prompts. The format is stable
// markdown: one section per table, columns with type, keys, and samples.
func Describe(def Definition) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Data source: %s\n\n", def.Name)
	for _, table := range def.Tables {
		fmt.Fprintf(&b, "## Table `%s`\n", table.Name)
		if table.Description != "" {
			fmt.Fprintf(&b, "%s\n", table.Description)
		}
		b.WriteString("\n")
		for _, col := range table.Columns {
			fmt.Fprintf(&b, "- `%s` %s", col.Name, col.Type)
			if col.PrimaryKey {
				b.WriteString(" (primary key)")
			}
			if col.References != "" {
				fmt.Fprintf(&b, " (references %s)", col.References)
			}
			if len(col.Samples) > 0 {
				fmt.Fprintf(&b, " (e.g. %s)", strings.Join(col.Samples, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Default returns the built-in demo commerce schema used when no schema file
// is configured.
func Default() Definition {
	return Definition{
		Name: "commerce",
		Tables: []Table{
			{
				Name:        "customers",
				Description: "Registered customers.",
				Columns: []Column{
					{Name: "id", Type: "INTEGER", PrimaryKey: true},
					{Name: "name", Type: "TEXT", Samples: []string{"Ada Lovelace", "Grace Hopper"}},
					{Name: "email", Type: "TEXT"},
					{Name: "created_at", Type: "TIMESTAMP"},
				},
			},
			{
				Name:        "products",
				Description: "Sellable products.",
				Columns: []Column{
					{Name: "id", Type: "INTEGER", PrimaryKey: true},
					{Name: "name", Type: "TEXT", Samples: []string{"Widget", "Gadget"}},
					{Name: "price", Type: "NUMERIC"},
					{Name: "category", Type: "TEXT", Samples: []string{"tools", "parts"}},
				},
			},
			{
				Name:        "orders",
				Description: "Customer orders, one row per order.",
				Columns: []Column{
					{Name: "id", Type: "INTEGER", PrimaryKey: true},
					{Name: "customer_id", Type: "INTEGER", References: "customers.id"},
					{Name: "status", Type: "TEXT", Samples: []string{"pending", "shipped", "cancelled"}},
					{Name: "total", Type: "NUMERIC"},
					{Name: "created_at", Type: "TIMESTAMP"},
				},
			},
			{
				Name:        "order_items",
				Description: "Line items within an order.",
				Columns: []Column{
					{Name: "id", Type: "INTEGER", PrimaryKey: true},
					{Name: "order_id", Type: "INTEGER", References: "orders.id"},
					{Name: "product_id", Type: "INTEGER", References: "products.id"},
					{Name: "quantity", Type: "INTEGER"},
					{Name: "unit_price", Type: "NUMERIC"},
				},
			},
		},
	}
}
