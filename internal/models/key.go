package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NaturalKey derives the deduplication key for a record: the hex SHA-256 of
// its canonical fields joined with "|". Dates render as YYYY-MM-DD and the
// amount with exactly two decimal places, so byte-identical source
// documents always produce byte-identical keys. Category is part of the
// key for charges and empty for payments.
func NaturalKey(t Transaction) string {
	parts := []string{
		t.Source,
		t.StatementFile,
		string(t.Section),
		t.TransDate.String(),
		t.PostDate.String(),
		t.Description,
		t.Category,
		t.Amount.StringFixed(2),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
