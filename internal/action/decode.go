package action

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dukerupert/larder/internal/model"
)

var (
	ErrNotObject     = errors.New("action must be a JSON object")
	ErrUnknownType   = errors.New("unknown action type")
	ErrEmptyItem     = errors.New("item must be a non-empty string")
	ErrInvalidStatus = errors.New("invalid status")
	ErrMissingBatch  = errors.New(`expected an object with an "actions" array`)
)

// ValidationError reports which element of a batch was rejected.
type ValidationError struct {
	Index int
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("action %d: %v", e.Index, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// raw mirrors Wire but keeps every field loosely typed so that shape errors
// become validation errors instead of unmarshal failures.
type raw struct {
	Type   json.RawMessage `json:"type"`
	Item   json.RawMessage `json:"item"`
	Status json.RawMessage `json:"status"`
}

// Decode validates a single untrusted action.
func Decode(data json.RawMessage) (Action, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	var r raw
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, ErrNotObject
	}

	typ, ok := stringField(r.Type)
	if !ok || !Type(typ).Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, describe(r.Type))
	}

	item, ok := stringField(r.Item)
	if !ok || strings.TrimSpace(item) == "" {
		return nil, ErrEmptyItem
	}
	item = strings.TrimSpace(item)

	switch Type(typ) {
	case TypeAddToPantry:
		status, err := statusField(r.Status, true)
		if err != nil {
			return nil, err
		}
		return AddToPantry{Item: item, Status: status}, nil
	case TypeUpdatePantryStatus:
		status, err := statusField(r.Status, false)
		if err != nil {
			return nil, err
		}
		return UpdatePantryStatus{Item: item, Status: status}, nil
	default:
		// remove_from_shopping_list ignores any supplied status.
		return RemoveFromShoppingList{Item: item}, nil
	}
}

// DecodeBatch validates an {"actions": [...]} document. Any invalid element
// rejects the whole batch with a *ValidationError.
func DecodeBatch(data []byte) ([]Action, error) {
	var doc struct {
		Actions *[]json.RawMessage `json:"actions"`
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrMissingBatch
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil || doc.Actions == nil {
		return nil, ErrMissingBatch
	}
	return DecodeList(*doc.Actions)
}

// DecodeList validates every element of an already-split array, failing on
// the first invalid one.
func DecodeList(raws []json.RawMessage) ([]Action, error) {
	actions := make([]Action, 0, len(raws))
	for i, r := range raws {
		a, err := Decode(r)
		if err != nil {
			return nil, &ValidationError{Index: i, Err: err}
		}
		actions = append(actions, a)
	}
	return actions, nil
}

// DecodeLenient validates each element independently. The returned slice has
// the same length as raws; rejected elements are nil and their error is
// recorded at the same index of errs.
func DecodeLenient(raws []json.RawMessage) ([]Action, []error) {
	actions := make([]Action, len(raws))
	errs := make([]error, len(raws))
	for i, r := range raws {
		actions[i], errs[i] = Decode(r)
	}
	return actions, errs
}

func stringField(v json.RawMessage) (string, bool) {
	if len(v) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", false
	}
	return s, true
}

// statusField parses an optional status. When optional, a missing or null
// value defaults to in_stock.
func statusField(v json.RawMessage, optional bool) (model.PantryStatus, error) {
	if len(v) == 0 || string(v) == "null" {
		if optional {
			return model.StatusInStock, nil
		}
		return "", fmt.Errorf("%w: status is required", ErrInvalidStatus)
	}
	s, ok := stringField(v)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, describe(v))
	}
	status := model.PantryStatus(strings.TrimSpace(s))
	if status == "" && optional {
		return model.StatusInStock, nil
	}
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

func describe(v json.RawMessage) string {
	if len(v) == 0 {
		return "missing"
	}
	const limit = 40
	s := string(v)
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	return s
}
