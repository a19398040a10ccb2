package evaluator

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	perrors "github.com/ruchy-lang/ruchy/pkg/ruchy/errors"
)

func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	stmts := []string{
		"CREATE TABLE sales (region TEXT, units INTEGER, price REAL, note TEXT)",
		"INSERT INTO sales VALUES ('north', 3, 1.5, NULL)",
		"INSERT INTO sales VALUES ('south', 5, 2.0, 'promo')",
		"INSERT INTO sales VALUES ('north', 4, 1.5, NULL)",
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	return path
}

func TestReadSQL(t *testing.T) {
	path := seedSQLite(t)
	cache := newConnectionCache[*sql.DB](4, defaultDBCache.ttl, nil, func(db *sql.DB) error { return db.Close() })
	defer cache.closeAll()

	in := NewInterpreter(WithLogger(&captureLogger{}))
	in.env.rt.dbs = cache

	src := fmt.Sprintf(`let df = read_sql("sqlite", %q, "SELECT region, units, price, note FROM sales ORDER BY rowid")
df`, path)
	v, err := in.Eval(src)
	if err != nil {
		t.Fatal(err)
	}
	df, ok := v.(*DataFrame)
	if !ok {
		t.Fatalf("expected a DataFrame, got %s", v.Type())
	}
	if names := strings.Join(columnNamesOf(df), ","); names != "region,units,price,note" {
		t.Fatalf("columns = %s", names)
	}
	if df.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", df.Rows())
	}
	if units := inspectAll(df.Columns[1].Values); units != "3,5,4" {
		t.Errorf("units = %s", units)
	}
	if note := inspectAll(df.Columns[3].Values); note != `nil,"promo",nil` {
		t.Errorf("note = %s", note)
	}

	grouped, err := in.Eval(`groupby(df.select("region", "units"), "region").column("units_sum")`)
	if err != nil {
		t.Fatal(err)
	}
	if grouped.Inspect() != "[7, 5]" {
		t.Errorf("grouped = %s", grouped.Inspect())
	}

	// The second query reuses the cached pool.
	src = fmt.Sprintf(`read_sql("sqlite", %q, "SELECT COUNT(*) AS n FROM sales WHERE units > ?", [3]).column("n")`, path)
	v, err = in.Eval(src)
	if err != nil {
		t.Fatal(err)
	}
	if v.Inspect() != "[2]" {
		t.Errorf("count = %s", v.Inspect())
	}
	if cache.size() != 1 {
		t.Errorf("cache size = %d, want 1", cache.size())
	}
}

func TestReadSQLErrors(t *testing.T) {
	path := seedSQLite(t)
	cache := newConnectionCache[*sql.DB](4, defaultDBCache.ttl, nil, func(db *sql.DB) error { return db.Close() })
	defer cache.closeAll()

	tests := []struct {
		name string
		src  string
		code string
	}{
		{"unknown driver", `read_sql("oracle", "x", "SELECT 1")`, "DB-0001"},
		{"bad query", fmt.Sprintf(`read_sql("sqlite", %q, "SELECT * FROM nope")`, path), "DB-0003"},
		{"row cap", fmt.Sprintf(`read_sql("sqlite", %q, "SELECT * FROM sales")`, path), "DB-0004"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := NewInterpreter(WithLogger(&captureLogger{}), WithSQLMaxRows(2))
			in.env.rt.dbs = cache
			_, err := in.Eval(tt.src)
			var re *perrors.RuchyError
			if err == nil || !asRuchy(err, &re) {
				t.Fatalf("expected a RuchyError, got %v", err)
			}
			if re.Code != tt.code {
				t.Errorf("code = %s, want %s (%v)", re.Code, tt.code, err)
			}
			if re.Class != perrors.ClassDatabase {
				t.Errorf("class = %s, want database", re.Class)
			}
		})
	}
}

func asRuchy(err error, target **perrors.RuchyError) bool {
	re, ok := err.(*perrors.RuchyError)
	if ok {
		*target = re
	}
	return ok
}

func TestFromSQLValue(t *testing.T) {
	tests := []struct {
		in       any
		expected string
	}{
		{nil, "nil"},
		{int64(7), "7"},
		{3.5, "3.5"},
		{true, "true"},
		{[]byte("raw"), `"raw"`},
		{"text", `"text"`},
		{uint8(9), `"9"`},
	}
	for _, tt := range tests {
		if got := fromSQLValue(tt.in).Inspect(); got != tt.expected {
			t.Errorf("fromSQLValue(%#v) = %s, want %s", tt.in, got, tt.expected)
		}
	}
}
