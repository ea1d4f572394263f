package interpreter

import (
	"strings"

	"github.com/dukerupert/larder/internal/model"
)

// EmptyPantry replaces the item list when the household has nothing tracked.
const EmptyPantry = "The pantry is currently empty."

// SystemPrompt instructs the model how to turn a command into actions.
const SystemPrompt = `You manage a household pantry. Convert the user's command into pantry actions.

Available actions:
- add_to_pantry: start tracking an item that is not in the pantry yet. Fields: item, status.
- update_pantry_status: change the status of an item that is already in the pantry. Fields: item, status.
- remove_from_shopping_list: the user now has the item (it resolves to in_stock). Fields: item.

Valid statuses: in_stock, running_low, out_of_stock, planned.

Rules:
- Use lowercase, singular item names ("eggs" becomes "egg", "Tomatoes" becomes "tomato").
- "Just bought X" or "got X" means status in_stock.
- "Out of X" or "need X" means status out_of_stock.
- "Running low on X" means status running_low.
- Prefer update_pantry_status for items listed in the current pantry and add_to_pantry for new ones.
- One action per item. If the command mentions no pantry change, return an empty list.

Respond with a single JSON object and nothing else:
{"actions": [{"type": "...", "item": "...", "status": "..."}]}`

// BuildContext summarises the pantry for the model, one "- name: status"
// line per item.
func BuildContext(snapshot []model.PantryItem) string {
	if len(snapshot) == 0 {
		return EmptyPantry
	}
	var sb strings.Builder
	for i, item := range snapshot {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("- ")
		sb.WriteString(item.Name)
		sb.WriteString(": ")
		sb.WriteString(string(item.Status))
	}
	return sb.String()
}

func userMessage(command, pantry string) string {
	return "Current pantry:\n" + pantry + "\n\nCommand: " + command
}
