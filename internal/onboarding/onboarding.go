// Package onboarding parses the bulk pantry import document used to seed a
// new household.
package onboarding

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dukerupert/larder/internal/action"
	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
)

// MaxEntries bounds a single import document.
const MaxEntries = 1000

var ErrEmptyDocument = errors.New("import document has no items")

// Entry is one item in an import document. Status and Type default to
// in_stock and staple when omitted.
type Entry struct {
	Name     string             `yaml:"name" json:"name"`
	Status   model.PantryStatus `yaml:"status" json:"status"`
	Type     model.ItemType     `yaml:"type" json:"type"`
	Category string             `yaml:"category" json:"category,omitempty"`
}

type document struct {
	Items []Entry `yaml:"items"`
}

// Parse reads a YAML or JSON import document. Both a mapping with an items
// key and a bare list of entries are accepted.
func Parse(r io.Reader) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse import: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, ErrEmptyDocument
	}

	var entries []Entry
	switch node := root.Content[0]; node.Kind {
	case yaml.SequenceNode:
		if err := node.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
	case yaml.MappingNode:
		var doc document
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		entries = doc.Items
	default:
		return nil, fmt.Errorf("parse import: expected a list or an object with items, line %d", node.Line)
	}

	if len(entries) == 0 {
		return nil, ErrEmptyDocument
	}
	if len(entries) > MaxEntries {
		return nil, fmt.Errorf("import has %d items, limit is %d", len(entries), MaxEntries)
	}

	for i := range entries {
		if err := entries[i].normalize(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return entries, nil
}

func (e *Entry) normalize() error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return errors.New("name is required")
	}
	if e.Status == "" {
		e.Status = model.StatusInStock
	}
	if !e.Status.Valid() {
		return fmt.Errorf("invalid status %q", e.Status)
	}
	if e.Type == "" {
		e.Type = model.ItemTypeStaple
	}
	if !e.Type.Valid() {
		return fmt.Errorf("invalid type %q", e.Type)
	}
	e.Category = strings.TrimSpace(e.Category)
	return nil
}

// Items converts parsed entries into rows for householdID. Names are
// normalized the same way the executor matches them and a missing category
// is inferred from the name.
func Items(householdID int64, createdBy *int64, entries []Entry) []model.NewPantryItem {
	items := make([]model.NewPantryItem, 0, len(entries))
	for _, e := range entries {
		category := e.Category
		if category == "" {
			category = grocery.Categorize(e.Name)
		}
		items = append(items, model.NewPantryItem{
			HouseholdID: householdID,
			CreatedBy:   createdBy,
			Name:        action.NormalizeName(e.Name),
			Status:      e.Status,
			ItemType:    e.Type,
			Category:    category,
		})
	}
	return items
}
