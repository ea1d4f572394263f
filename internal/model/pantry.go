package model

import "time"

// PantryStatus is the stock state of a tracked item.
type PantryStatus string

const (
	StatusInStock    PantryStatus = "in_stock"
	StatusRunningLow PantryStatus = "running_low"
	StatusOutOfStock PantryStatus = "out_of_stock"
	StatusPlanned    PantryStatus = "planned"
)

// Valid reports whether s is one of the known statuses.
func (s PantryStatus) Valid() bool {
	switch s {
	case StatusInStock, StatusRunningLow, StatusOutOfStock, StatusPlanned:
		return true
	}
	return false
}

// ItemType separates recurring staples from one-off shopping list entries.
type ItemType string

const (
	ItemTypeStaple  ItemType = "staple"
	ItemTypePlanned ItemType = "planned"
)

func (t ItemType) Valid() bool {
	return t == ItemTypeStaple || t == ItemTypePlanned
}

type PantryItem struct {
	ID          int64        `json:"id"`
	HouseholdID int64        `json:"household_id"`
	CreatedBy   *int64       `json:"created_by"`
	Name        string       `json:"name"`
	Status      PantryStatus `json:"status"`
	ItemType    ItemType     `json:"item_type"`
	Category    string       `json:"category"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	PurchasedAt *time.Time   `json:"purchased_at"`
}

// NewPantryItem carries the fields needed to insert a row.
type NewPantryItem struct {
	HouseholdID int64
	CreatedBy   *int64
	Name        string
	Status      PantryStatus
	ItemType    ItemType
	Category    string
}
