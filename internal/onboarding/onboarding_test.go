package onboarding

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dukerupert/larder/internal/model"
)

func TestParseYAMLDocument(t *testing.T) {
	doc := `
items:
  - name: Milk
  - name: olive oil
    status: running_low
  - name: birthday candles
    type: planned
    status: planned
    category: Party
`
	got, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Entry{
		{Name: "Milk", Status: model.StatusInStock, Type: model.ItemTypeStaple},
		{Name: "olive oil", Status: model.StatusRunningLow, Type: model.ItemTypeStaple},
		{Name: "birthday candles", Status: model.StatusPlanned, Type: model.ItemTypePlanned, Category: "Party"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJSONBareList(t *testing.T) {
	doc := `[{"name": "eggs", "status": "out_of_stock"}, {"name": "  rice  "}]`
	got, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []Entry{
		{Name: "eggs", Status: model.StatusOutOfStock, Type: model.ItemTypeStaple},
		{Name: "rice", Status: model.StatusInStock, Type: model.ItemTypeStaple},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty", ""},
		{"empty list", "[]"},
		{"empty items", "items: []"},
		{"scalar", "just some text"},
		{"missing name", "- status: in_stock"},
		{"bad status", "- name: milk\n  status: gone"},
		{"bad type", "- name: milk\n  type: weekly"},
		{"malformed", "items: [name: milk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.doc)); err == nil {
				t.Fatalf("expected error for %q", tt.doc)
			}
		})
	}
}

func TestParseEmptyIsSentinel(t *testing.T) {
	_, err := Parse(strings.NewReader("items: []"))
	if !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestParseTooManyEntries(t *testing.T) {
	var sb strings.Builder
	for i := 0; i <= MaxEntries; i++ {
		sb.WriteString("- name: item\n")
	}
	if _, err := Parse(strings.NewReader(sb.String())); err == nil {
		t.Fatal("expected error over the entry limit")
	}
}

func TestItems(t *testing.T) {
	uid := int64(7)
	entries := []Entry{
		{Name: "Whole  Milk", Status: model.StatusInStock, Type: model.ItemTypeStaple},
		{Name: "candles", Status: model.StatusPlanned, Type: model.ItemTypePlanned, Category: "Party"},
	}
	got := Items(3, &uid, entries)
	if len(got) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got))
	}
	if got[0].Name != "whole milk" {
		t.Errorf("expected normalized name, got %q", got[0].Name)
	}
	if got[0].Category != "Dairy" {
		t.Errorf("expected inferred category Dairy, got %q", got[0].Category)
	}
	if got[1].Category != "Party" {
		t.Errorf("expected explicit category kept, got %q", got[1].Category)
	}
	for _, item := range got {
		if item.HouseholdID != 3 {
			t.Errorf("expected household 3, got %d", item.HouseholdID)
		}
		if item.CreatedBy == nil || *item.CreatedBy != 7 {
			t.Errorf("expected created_by 7, got %v", item.CreatedBy)
		}
	}
}
