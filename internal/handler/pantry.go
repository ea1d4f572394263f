package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/action"
	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/onboarding"
	"github.com/dukerupert/larder/internal/store"
	ws "github.com/dukerupert/larder/internal/websocket"
)

const maxImportBytes = 4 << 20

type PantryHandler struct {
	pantryStore *store.PantryStore
	hub         Broadcaster
	logger      *slog.Logger
	now         func() time.Time
}

func NewPantryHandler(ps *store.PantryStore, hub Broadcaster, logger *slog.Logger) *PantryHandler {
	return &PantryHandler{pantryStore: ps, hub: hub, logger: logger, now: time.Now}
}

type pantryItemRequest struct {
	Name     string             `json:"name"`
	Status   model.PantryStatus `json:"status"`
	ItemType model.ItemType     `json:"item_type"`
	Category string             `json:"category"`
}

func (h *PantryHandler) broadcast(householdID int64, msg ws.Message) {
	if h.hub != nil {
		h.hub.BroadcastHousehold(householdID, msg)
	}
}

func (h *PantryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.PantryFilter{
		Status:   model.PantryStatus(q.Get("status")),
		ItemType: model.ItemType(q.Get("type")),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if filter.ItemType != "" && !filter.ItemType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid type")
		return
	}

	items, err := h.pantryStore.List(r.Context(), auth.HouseholdID(r.Context()), filter)
	if err != nil {
		h.logger.Error("failed to list pantry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pantry")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// ShoppingList returns every item that is not in stock, grouped by category.
func (h *PantryHandler) ShoppingList(w http.ResponseWriter, r *http.Request) {
	items, err := h.pantryStore.ListShopping(r.Context(), auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("failed to list shopping items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list shopping items")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *PantryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req pantryItemRequest
	if msg, ok := decodeJSON(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	name := action.NormalizeName(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Status == "" {
		req.Status = model.StatusInStock
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if req.ItemType == "" {
		req.ItemType = model.ItemTypeStaple
	}
	if !req.ItemType.Valid() {
		writeError(w, http.StatusBadRequest, "invalid item_type")
		return
	}
	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" {
		req.Category = grocery.Categorize(name)
	}

	ctx := r.Context()
	householdID := auth.HouseholdID(ctx)
	existing, err := h.pantryStore.FindByName(ctx, householdID, name)
	if err != nil {
		h.logger.Error("failed to look up pantry item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "item already tracked")
		return
	}

	var createdBy *int64
	if uid := auth.UserID(ctx); uid != 0 {
		createdBy = &uid
	}
	item, err := h.pantryStore.Create(ctx, model.NewPantryItem{
		HouseholdID: householdID,
		CreatedBy:   createdBy,
		Name:        name,
		Status:      req.Status,
		ItemType:    req.ItemType,
		Category:    req.Category,
	})
	if err != nil {
		h.logger.Error("failed to create pantry item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.broadcast(householdID, itemMessage(ws.ActionCreated, item))
	writeJSON(w, http.StatusCreated, item)
}

func (h *PantryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.pantryStore.GetByID(r.Context(), auth.HouseholdID(r.Context()), id)
	if err != nil {
		h.logger.Error("failed to get pantry item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Update edits the descriptive fields of an item. Status changes go through
// UpdateStatus so purchase times stay consistent.
func (h *PantryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req pantryItemRequest
	if msg, ok := decodeJSON(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	householdID := auth.HouseholdID(ctx)
	existing, err := h.pantryStore.GetByID(ctx, householdID, id)
	if err != nil {
		h.logger.Error("failed to get pantry item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	upd := store.PantryItemUpdate{
		Name:     existing.Name,
		ItemType: existing.ItemType,
		Category: existing.Category,
	}
	if req.Name != "" {
		upd.Name = action.NormalizeName(req.Name)
		if upd.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
	}
	if req.ItemType != "" {
		if !req.ItemType.Valid() {
			writeError(w, http.StatusBadRequest, "invalid item_type")
			return
		}
		upd.ItemType = req.ItemType
	}
	if c := strings.TrimSpace(req.Category); c != "" {
		upd.Category = c
	}

	if upd.Name != existing.Name {
		clash, err := h.pantryStore.FindByName(ctx, householdID, upd.Name)
		if err != nil {
			h.logger.Error("failed to look up pantry item", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update item")
			return
		}
		if clash != nil && clash.ID != id {
			writeError(w, http.StatusConflict, "item already tracked")
			return
		}
	}

	item, err := h.pantryStore.Update(ctx, householdID, id, upd, h.now())
	if err != nil {
		h.logger.Error("failed to update pantry item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.broadcast(householdID, itemMessage(ws.ActionUpdated, item))
	writeJSON(w, http.StatusOK, item)
}

func (h *PantryHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Status model.PantryStatus `json:"status"`
	}
	if msg, ok := decodeJSON(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid status")
		return
	}

	ctx := r.Context()
	householdID := auth.HouseholdID(ctx)
	existing, err := h.pantryStore.GetByID(ctx, householdID, id)
	if err != nil {
		h.logger.Error("failed to get pantry item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	now := h.now()
	var purchasedAt *time.Time
	if req.Status == model.StatusInStock && existing.Status != model.StatusInStock {
		purchasedAt = &now
	}
	item, err := h.pantryStore.UpdateStatus(ctx, id, req.Status, purchasedAt, now)
	if err != nil {
		h.logger.Error("failed to update pantry status", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	h.broadcast(householdID, itemMessage(ws.ActionUpdated, item))
	writeJSON(w, http.StatusOK, item)
}

func (h *PantryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	householdID := auth.HouseholdID(r.Context())
	deleted, err := h.pantryStore.Delete(r.Context(), householdID, id)
	if err != nil {
		h.logger.Error("failed to delete pantry item", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	h.broadcast(householdID, ws.NewMessage(ws.EntityPantryItem, ws.ActionDeleted, id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Import seeds the pantry from a YAML or JSON onboarding document.
func (h *PantryHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	entries, err := onboarding.Parse(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "import too large")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	householdID := auth.HouseholdID(ctx)
	var createdBy *int64
	if uid := auth.UserID(ctx); uid != 0 {
		createdBy = &uid
	}

	created, skipped, err := h.pantryStore.BulkCreate(ctx, householdID, onboarding.Items(householdID, createdBy, entries))
	if err != nil {
		h.logger.Error("failed to import pantry", "household_id", householdID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to import items")
		return
	}

	h.logger.Info("pantry imported", "household_id", householdID, "created", created, "skipped", skipped)
	if created > 0 {
		h.broadcast(householdID, ws.NewMessage(ws.EntityPantry, ws.ActionBulkImported, 0, map[string]any{
			"created": created,
		}))
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created, "skipped": skipped})
}
