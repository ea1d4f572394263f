// Package executor applies validated pantry actions to a household.
//
// It is the single source of truth for state changes: the command flow and
// the assistant's approved proposals both end here. Every action is attempted
// in order and counted exactly once as executed or failed; there is no
// cross-action transaction.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/larder/internal/action"
	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/metrics"
	"github.com/dukerupert/larder/internal/model"
)

// ErrNotTracked is recorded when remove_from_shopping_list names an item the
// household has never tracked.
var ErrNotTracked = errors.New("item is not tracked")

var errInvalidAction = errors.New("invalid action")

// Store is the pantry storage the executor needs.
type Store interface {
	FindByName(ctx context.Context, householdID int64, name string) (*model.PantryItem, error)
	Create(ctx context.Context, item model.NewPantryItem) (*model.PantryItem, error)
	UpdateStatus(ctx context.Context, id int64, status model.PantryStatus, purchasedAt *time.Time, now time.Time) (*model.PantryItem, error)
}

// Change describes one applied action, for notifying other clients.
type Change struct {
	HouseholdID int64
	Item        *model.PantryItem
	Created     bool
}

// Result tallies a batch. Executed + Failed always equals the batch size.
type Result struct {
	Executed int `json:"executed"`
	Failed   int `json:"failed"`
}

type Option func(*Executor)

func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) { e.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithNotifier registers a callback run after each successful change.
func WithNotifier(fn func(Change)) Option {
	return func(e *Executor) { e.notify = fn }
}

type Executor struct {
	store   Store
	now     func() time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
	notify  func(Change)
}

func New(store Store, opts ...Option) *Executor {
	e := &Executor{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "executor")
	return e
}

// Execute applies actions in order on behalf of userID. A nil entry stands
// for an action that failed validation and is counted as failed.
func (e *Executor) Execute(ctx context.Context, householdID, userID int64, actions []action.Action) Result {
	var res Result
	for i, a := range actions {
		change, err := e.apply(ctx, householdID, userID, a)
		typ := "invalid"
		if a != nil {
			typ = string(a.Type())
		}
		if err != nil {
			res.Failed++
			e.metrics.Action(typ, metrics.OutcomeFailed)
			level := slog.LevelWarn
			if errors.Is(err, ErrNotTracked) || errors.Is(err, errInvalidAction) {
				level = slog.LevelInfo
			}
			e.logger.Log(ctx, level, "action failed", "household_id", householdID, "index", i, "type", typ, "error", err)
			continue
		}
		res.Executed++
		e.metrics.Action(typ, metrics.OutcomeExecuted)
		if change != nil {
			e.publish(ctx, *change)
		}
	}
	return res
}

// publish hands a committed change to the notifier. The change is already
// stored, so a panicking notifier is logged and the batch carries on.
func (e *Executor) publish(ctx context.Context, c Change) {
	if e.notify == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "change notifier panicked", "household_id", c.HouseholdID, "panic", r)
		}
	}()
	e.notify(c)
}

// apply runs one action, converting a panic in the store into an error so
// the rest of the batch still runs.
func (e *Executor) apply(ctx context.Context, householdID, userID int64, a action.Action) (change *Change, err error) {
	defer func() {
		if r := recover(); r != nil {
			change, err = nil, fmt.Errorf("panic applying action: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch a := a.(type) {
	case action.AddToPantry:
		return e.upsert(ctx, householdID, userID, a.Item, a.Status)
	case action.UpdatePantryStatus:
		return e.upsert(ctx, householdID, userID, a.Item, a.Status)
	case action.RemoveFromShoppingList:
		return e.restock(ctx, householdID, a.Item)
	default:
		return nil, errInvalidAction
	}
}

// upsert creates the item if the household does not track it, otherwise sets
// its status. purchased_at is stamped only when the item comes back in stock.
func (e *Executor) upsert(ctx context.Context, householdID, userID int64, item string, status model.PantryStatus) (*Change, error) {
	if status == "" {
		status = model.StatusInStock
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status %q", errInvalidAction, status)
	}

	existing, err := e.find(ctx, householdID, item)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		name := action.NormalizeName(item)
		if name == "" {
			return nil, fmt.Errorf("%w: empty item", errInvalidAction)
		}
		created, err := e.store.Create(ctx, model.NewPantryItem{
			HouseholdID: householdID,
			CreatedBy:   createdBy(userID),
			Name:        name,
			Status:      status,
			ItemType:    model.ItemTypeStaple,
			Category:    grocery.Categorize(name),
		})
		if err != nil {
			return nil, fmt.Errorf("create %q: %w", name, err)
		}
		return &Change{HouseholdID: householdID, Item: created, Created: true}, nil
	}

	now := e.now()
	var purchasedAt *time.Time
	if status == model.StatusInStock && existing.Status != model.StatusInStock {
		purchasedAt = &now
	}
	updated, err := e.store.UpdateStatus(ctx, existing.ID, status, purchasedAt, now)
	if err != nil {
		return nil, fmt.Errorf("update %q: %w", existing.Name, err)
	}
	return &Change{HouseholdID: householdID, Item: updated}, nil
}

// restock marks a tracked item as bought. It never creates rows.
func (e *Executor) restock(ctx context.Context, householdID int64, item string) (*Change, error) {
	existing, err := e.find(ctx, householdID, item)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotTracked, item)
	}

	now := e.now()
	updated, err := e.store.UpdateStatus(ctx, existing.ID, model.StatusInStock, &now, now)
	if err != nil {
		return nil, fmt.Errorf("update %q: %w", existing.Name, err)
	}
	return &Change{HouseholdID: householdID, Item: updated}, nil
}

// find looks an item up by normalised name, then by its singular and plural
// forms so "apples" matches a tracked "apple".
func (e *Executor) find(ctx context.Context, householdID int64, item string) (*model.PantryItem, error) {
	name := action.NormalizeName(item)
	if name == "" {
		return nil, nil
	}
	for _, candidate := range append([]string{name}, grocery.NameVariants(name)...) {
		found, err := e.store.FindByName(ctx, householdID, candidate)
		if err != nil {
			return nil, fmt.Errorf("find %q: %w", candidate, err)
		}
		if found != nil {
			return found, nil
		}
	}
	return nil, nil
}

func createdBy(userID int64) *int64 {
	if userID == 0 {
		return nil
	}
	return &userID
}
