package safety

import "testing"

func TestEnsureQueryLimit(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "plain select gets bound",
			query: "SELECT * FROM orders",
			want:  "SELECT * FROM orders LIMIT 50",
		},
		{
			name:  "trailing semicolon keeps terminator",
			query: "SELECT id FROM customers;",
			want:  "SELECT id FROM customers LIMIT 50;",
		},
		{
			name:  "existing limit untouched",
			query: "SELECT * FROM orders LIMIT 10",
			want:  "SELECT * FROM orders LIMIT 10",
		},
		{
			name:  "existing lowercase limit untouched",
			query: "select * from orders limit 5;",
			want:  "select * from orders limit 5;",
		},
		{
			name:  "cte select gets bound",
			query: "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent",
			want:  "WITH recent AS (SELECT * FROM orders) SELECT * FROM recent LIMIT 50",
		},
		{
			name:  "cte insert untouched",
			query: "WITH src AS (SELECT * FROM staging) INSERT INTO orders SELECT * FROM src",
			want:  "WITH src AS (SELECT * FROM staging) INSERT INTO orders SELECT * FROM src",
		},
		{
			name:  "insert untouched",
			query: "INSERT INTO orders (id) VALUES (1)",
			want:  "INSERT INTO orders (id) VALUES (1)",
		},
		{
			name:  "update untouched",
			query: "UPDATE orders SET status = 'done'",
			want:  "UPDATE orders SET status = 'done'",
		},
		{
			name:  "delete untouched",
			query: "DELETE FROM orders WHERE id = 1",
			want:  "DELETE FROM orders WHERE id = 1",
		},
		{
			name:  "ddl untouched",
			query: "CREATE TABLE t (id INTEGER)",
			want:  "CREATE TABLE t (id INTEGER)",
		},
		{
			name:  "empty string untouched",
			query: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EnsureQueryLimit(tt.query)
			if got != tt.want {
				t.Errorf("EnsureQueryLimit(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestEnsureQueryLimit_Idempotent(t *testing.T) {
	queries := []string{
		"SELECT * FROM orders",
		"SELECT * FROM orders;",
		"WITH r AS (SELECT 1) SELECT * FROM r",
		"UPDATE orders SET status = 'x'",
	}
	for _, q := range queries {
		once := EnsureQueryLimit(q)
		twice := EnsureQueryLimit(once)
		if once != twice {
			t.Errorf("not idempotent for %q: once=%q twice=%q", q, once, twice)
		}
	}
}

func TestEnsureQueryLimitN_CustomBound(t *testing.T) {
	got := EnsureQueryLimitN("SELECT * FROM t", 100)
	want := "SELECT * FROM t LIMIT 100"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
