// Package action defines the closed vocabulary of pantry changes that can be
// requested in natural language, and validates untrusted input into it.
//
// An Action is one of AddToPantry, UpdatePantryStatus or
// RemoveFromShoppingList. Callers switch on the concrete type; the set is
// sealed so a switch with those three cases is exhaustive.
package action

import (
	"encoding/json"
	"strings"

	"github.com/dukerupert/larder/internal/model"
)

// Type is the wire discriminator of an action.
type Type string

const (
	TypeAddToPantry            Type = "add_to_pantry"
	TypeUpdatePantryStatus     Type = "update_pantry_status"
	TypeRemoveFromShoppingList Type = "remove_from_shopping_list"
)

// Types lists every recognised action type.
var Types = []Type{TypeAddToPantry, TypeUpdatePantryStatus, TypeRemoveFromShoppingList}

// Valid reports whether t is a recognised action type.
func (t Type) Valid() bool {
	switch t {
	case TypeAddToPantry, TypeUpdatePantryStatus, TypeRemoveFromShoppingList:
		return true
	}
	return false
}

// Action is a single requested pantry change that has not been applied.
type Action interface {
	Type() Type
	// ItemName is the item as the caller wrote it. Use NormalizeName for matching.
	ItemName() string
	sealed()
}

// AddToPantry introduces an item, or converges on an existing one.
type AddToPantry struct {
	Item   string
	Status model.PantryStatus
}

// UpdatePantryStatus changes the stock state of an item.
type UpdatePantryStatus struct {
	Item   string
	Status model.PantryStatus
}

// RemoveFromShoppingList marks an item as back in stock.
type RemoveFromShoppingList struct {
	Item string
}

func (AddToPantry) Type() Type            { return TypeAddToPantry }
func (UpdatePantryStatus) Type() Type     { return TypeUpdatePantryStatus }
func (RemoveFromShoppingList) Type() Type { return TypeRemoveFromShoppingList }

func (a AddToPantry) ItemName() string            { return a.Item }
func (a UpdatePantryStatus) ItemName() string     { return a.Item }
func (a RemoveFromShoppingList) ItemName() string { return a.Item }

func (AddToPantry) sealed()            {}
func (UpdatePantryStatus) sealed()     {}
func (RemoveFromShoppingList) sealed() {}

// TargetStatus is the status an action leaves its item in.
func TargetStatus(a Action) model.PantryStatus {
	switch a := a.(type) {
	case AddToPantry:
		return a.Status
	case UpdatePantryStatus:
		return a.Status
	case RemoveFromShoppingList:
		return model.StatusInStock
	}
	return ""
}

// Wire is the JSON shape of an action.
type Wire struct {
	Type   Type               `json:"type"`
	Item   string             `json:"item"`
	Status model.PantryStatus `json:"status,omitempty"`
}

// ToWire converts an action to its JSON shape, preserving the item's casing.
func ToWire(a Action) Wire {
	switch a := a.(type) {
	case AddToPantry:
		return Wire{Type: TypeAddToPantry, Item: a.Item, Status: a.Status}
	case UpdatePantryStatus:
		return Wire{Type: TypeUpdatePantryStatus, Item: a.Item, Status: a.Status}
	case RemoveFromShoppingList:
		return Wire{Type: TypeRemoveFromShoppingList, Item: a.Item}
	}
	return Wire{}
}

// ToWireList converts a batch for JSON encoding. It never returns nil so an
// empty batch encodes as [].
func ToWireList(actions []Action) []Wire {
	out := make([]Wire, 0, len(actions))
	for _, a := range actions {
		if a == nil {
			continue
		}
		out = append(out, ToWire(a))
	}
	return out
}

func (a AddToPantry) MarshalJSON() ([]byte, error)            { return json.Marshal(ToWire(a)) }
func (a UpdatePantryStatus) MarshalJSON() ([]byte, error)     { return json.Marshal(ToWire(a)) }
func (a RemoveFromShoppingList) MarshalJSON() ([]byte, error) { return json.Marshal(ToWire(a)) }

// NormalizeName is the matching key for an item name: lowercase, trimmed,
// inner whitespace collapsed.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
