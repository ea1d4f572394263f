package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

type PantryStore struct {
	db *sql.DB
}

func NewPantryStore(db *sql.DB) *PantryStore {
	return &PantryStore{db: db}
}

func scanPantryItem(scanner interface{ Scan(...any) error }) (*model.PantryItem, error) {
	var item model.PantryItem
	var createdBy sql.NullInt64
	var purchasedAt sql.NullTime

	err := scanner.Scan(
		&item.ID, &item.HouseholdID, &createdBy, &item.Name, &item.Status,
		&item.ItemType, &item.Category, &item.CreatedAt, &item.UpdatedAt, &purchasedAt,
	)
	if err != nil {
		return nil, err
	}

	if createdBy.Valid {
		item.CreatedBy = &createdBy.Int64
	}
	if purchasedAt.Valid {
		item.PurchasedAt = &purchasedAt.Time
	}
	return &item, nil
}

const pantryItemCols = `id, household_id, created_by, name, status, item_type, category, created_at, updated_at, purchased_at`

// PantryFilter narrows List. Zero values match everything.
type PantryFilter struct {
	Status   model.PantryStatus
	ItemType model.ItemType
}

// PantryItemUpdate replaces the editable fields of an item.
type PantryItemUpdate struct {
	Name     string
	ItemType model.ItemType
	Category string
}

// FindByName returns the household's item with the given normalised name,
// or nil. When duplicates exist the oldest row wins.
func (s *PantryStore) FindByName(ctx context.Context, householdID int64, name string) (*model.PantryItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pantryItemCols+` FROM pantry_items WHERE household_id = ? AND name = ? ORDER BY id ASC LIMIT 1`,
		householdID, name,
	)
	item, err := scanPantryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pantry item by name: %w", err)
	}
	return item, nil
}

func (s *PantryStore) GetByID(ctx context.Context, householdID, id int64) (*model.PantryItem, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pantryItemCols+` FROM pantry_items WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	item, err := scanPantryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pantry item: %w", err)
	}
	return item, nil
}

func (s *PantryStore) getByID(ctx context.Context, id int64) (*model.PantryItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+pantryItemCols+` FROM pantry_items WHERE id = ?`, id)
	item, err := scanPantryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pantry item: %w", err)
	}
	return item, nil
}

func (s *PantryStore) Create(ctx context.Context, item model.NewPantryItem) (*model.PantryItem, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO pantry_items (household_id, created_by, name, status, item_type, category) VALUES (?, ?, ?, ?, ?, ?)`,
		item.HouseholdID, nullInt64(item.CreatedBy), item.Name, item.Status, item.ItemType, item.Category,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pantry item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.getByID(ctx, id)
}

// UpdateStatus sets the status and updated_at of an item. A nil purchasedAt
// leaves the stored purchase time untouched.
func (s *PantryStore) UpdateStatus(ctx context.Context, id int64, status model.PantryStatus, purchasedAt *time.Time, now time.Time) (*model.PantryItem, error) {
	var purchased any
	if purchasedAt != nil {
		purchased = purchasedAt.UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE pantry_items SET status = ?, updated_at = ?, purchased_at = COALESCE(?, purchased_at) WHERE id = ?`,
		status, now.UTC(), purchased, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update pantry item status: %w", err)
	}
	return s.getByID(ctx, id)
}

func (s *PantryStore) Update(ctx context.Context, householdID, id int64, upd PantryItemUpdate, now time.Time) (*model.PantryItem, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE pantry_items SET name = ?, item_type = ?, category = ?, updated_at = ? WHERE id = ? AND household_id = ?`,
		upd.Name, upd.ItemType, upd.Category, now.UTC(), id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("update pantry item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, nil
	}
	return s.getByID(ctx, id)
}

// Delete removes an item and reports whether it existed.
func (s *PantryStore) Delete(ctx context.Context, householdID, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM pantry_items WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return false, fmt.Errorf("delete pantry item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *PantryStore) List(ctx context.Context, householdID int64, f PantryFilter) ([]model.PantryItem, error) {
	where := []string{"household_id = ?"}
	args := []any{householdID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.ItemType != "" {
		where = append(where, "item_type = ?")
		args = append(args, f.ItemType)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pantryItemCols+` FROM pantry_items WHERE `+strings.Join(where, " AND ")+` ORDER BY name ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list pantry items: %w", err)
	}
	return collectPantryItems(rows)
}

// ListShopping returns items that need buying, grouped by category.
func (s *PantryStore) ListShopping(ctx context.Context, householdID int64) ([]model.PantryItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pantryItemCols+` FROM pantry_items
		 WHERE household_id = ? AND status != 'in_stock'
		 ORDER BY category ASC, name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	return collectPantryItems(rows)
}

func collectPantryItems(rows *sql.Rows) ([]model.PantryItem, error) {
	defer rows.Close()

	items := []model.PantryItem{}
	for rows.Next() {
		item, err := scanPantryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pantry item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// BulkCreate inserts items in a single transaction. Names that already exist
// in the household, or repeat earlier in the batch, are skipped.
func (s *PantryStore) BulkCreate(ctx context.Context, householdID int64, items []model.NewPantryItem) (created, skipped int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if seen[item.Name] {
			skipped++
			continue
		}
		seen[item.Name] = true

		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pantry_items WHERE household_id = ? AND name = ?`,
			householdID, item.Name,
		).Scan(&exists)
		if err != nil {
			return 0, 0, fmt.Errorf("check pantry item %q: %w", item.Name, err)
		}
		if exists > 0 {
			skipped++
			continue
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO pantry_items (household_id, created_by, name, status, item_type, category) VALUES (?, ?, ?, ?, ?, ?)`,
			householdID, nullInt64(item.CreatedBy), item.Name, item.Status, item.ItemType, item.Category,
		); err != nil {
			return 0, 0, fmt.Errorf("insert pantry item %q: %w", item.Name, err)
		}
		created++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return created, skipped, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
