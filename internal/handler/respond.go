package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dukerupert/larder/internal/executor"
	"github.com/dukerupert/larder/internal/model"
	ws "github.com/dukerupert/larder/internal/websocket"
)

// maxBodyBytes caps JSON request bodies. Imports get their own, larger cap.
const maxBodyBytes = 1 << 20

// Broadcaster fans change notifications out to a household's clients.
type Broadcaster interface {
	BroadcastHousehold(householdID int64, msg ws.Message)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// decodeJSON reads a bounded JSON body into v. The returned message is safe
// to show to the caller.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "request body too large", false
		}
		return "invalid JSON", false
	}
	return "", true
}

func itemMessage(action string, item *model.PantryItem) ws.Message {
	msg := ws.NewMessage(ws.EntityPantryItem, action, item.ID, nil)
	msg.Item = item
	return msg
}

// NotifyChange adapts a Broadcaster into an executor notifier so command
// executions reach other open clients.
func NotifyChange(b Broadcaster) func(executor.Change) {
	return func(c executor.Change) {
		if b == nil || c.Item == nil {
			return
		}
		act := ws.ActionUpdated
		if c.Created {
			act = ws.ActionCreated
		}
		b.BroadcastHousehold(c.HouseholdID, itemMessage(act, c.Item))
	}
}
