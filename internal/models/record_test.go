package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDate_JSON(t *testing.T) {
	d := NewDate(2025, time.January, 3)

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `"2025-01-03"` {
		t.Errorf("marshal: got %s, want %q", data, "2025-01-03")
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.String() != "2025-01-03" {
		t.Errorf("round trip: got %s", back)
	}

	if err := json.Unmarshal([]byte(`"03/01/2025"`), &back); err == nil {
		t.Error("expected error for non ISO date, got nil")
	}
}

func TestSortTransactions(t *testing.T) {
	txns := []Transaction{
		{TransDate: NewDate(2025, time.January, 5), PostDate: NewDate(2025, time.January, 6), Description: "B"},
		{TransDate: NewDate(2024, time.December, 20), PostDate: NewDate(2024, time.December, 22), Description: "C"},
		{TransDate: NewDate(2025, time.January, 5), PostDate: NewDate(2025, time.January, 6), Description: "A"},
		{TransDate: NewDate(2025, time.January, 5), PostDate: NewDate(2025, time.January, 5), Description: "D"},
	}

	SortTransactions(txns)

	var got []string
	for _, txn := range txns {
		got = append(got, txn.Description)
	}
	want := []string{"C", "D", "A", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got %v, want %v", got, want)
		}
	}
}

func TestSortTransactions_StableForTies(t *testing.T) {
	txns := []Transaction{
		{TransDate: NewDate(2025, time.January, 5), PostDate: NewDate(2025, time.January, 6), Description: "SAME", City: "first"},
		{TransDate: NewDate(2025, time.January, 5), PostDate: NewDate(2025, time.January, 6), Description: "SAME", City: "second"},
	}

	SortTransactions(txns)

	if txns[0].City != "first" || txns[1].City != "second" {
		t.Errorf("tied rows reordered: %q, %q", txns[0].City, txns[1].City)
	}
}

func TestTransaction_JSON(t *testing.T) {
	txn := Transaction{
		TransDate:   NewDate(2025, time.January, 3),
		PostDate:    NewDate(2025, time.January, 5),
		Description: "TIM HORTONS #1234",
		Amount:      decimal.NewFromFloat(5.25),
		Section:     SectionCharge,
		Source:      "CIBC",
	}

	data, err := json.Marshal(txn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["transDate"] != "2025-01-03" {
		t.Errorf("transDate: got %v", m["transDate"])
	}
	if m["section"] != "charge" {
		t.Errorf("section: got %v", m["section"])
	}
	// Empty optional fields stay out of the payload.
	if _, present := m["city"]; present {
		t.Error("empty city should be omitted")
	}
	if _, present := m["category"]; present {
		t.Error("empty category should be omitted")
	}
}
