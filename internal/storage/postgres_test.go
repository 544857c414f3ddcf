package storage

import (
	"regexp"
	"strings"
	"testing"
)

var placeholderRe = regexp.MustCompile(`\$\d+`)

func placeholderCount(sql string) int {
	seen := map[string]bool{}
	for _, p := range placeholderRe.FindAllString(sql, -1) {
		seen[p] = true
	}
	return len(seen)
}

func TestInsertStatements_InsertOrIgnore(t *testing.T) {
	for name, sql := range map[string]string{
		"payments": insertPayment,
		"charges":  insertCharge,
	} {
		if !strings.Contains(sql, "ON CONFLICT (natural_key) DO NOTHING") {
			t.Errorf("%s insert must be keyed on natural_key with DO NOTHING:\n%s", name, sql)
		}
	}
}

func TestInsertStatements_PlaceholderCounts(t *testing.T) {
	// Ingest queues one argument per placeholder; a mismatch here means a
	// silent column/argument drift.
	if got := placeholderCount(insertPayment); got != 7 {
		t.Errorf("payment insert placeholders: got %d, want 7", got)
	}
	if got := placeholderCount(insertCharge); got != 11 {
		t.Errorf("charge insert placeholders: got %d, want 11", got)
	}
}

func TestDDL_NaturalKeyUniqueness(t *testing.T) {
	if got := strings.Count(ddl, "natural_key     TEXT NOT NULL UNIQUE"); got != 2 {
		t.Errorf("both tables need a unique natural_key column, found %d", got)
	}
	for _, table := range []string{"expense.payments", "expense.transactions"} {
		if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("DDL missing table %s", table)
		}
	}
	if !strings.Contains(ddl, "CREATE SCHEMA IF NOT EXISTS expense") {
		t.Error("DDL missing expense schema")
	}
}

func TestDDL_Idempotent(t *testing.T) {
	// Init runs on every -ingest and server start, so all DDL must be
	// guarded with IF NOT EXISTS.
	for _, stmt := range strings.Split(ddl, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if !strings.Contains(stmt, "IF NOT EXISTS") {
			t.Errorf("DDL statement not idempotent:\n%s", stmt)
		}
	}
}
