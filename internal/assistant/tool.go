package assistant

import (
	"github.com/dukerupert/larder/internal/action"
	"github.com/dukerupert/larder/internal/interpreter"
	"github.com/dukerupert/larder/internal/llm"
	"github.com/dukerupert/larder/internal/model"
)

const ProposalToolName = "propose_pantry_actions"

const systemPrompt = `You are a friendly kitchen assistant for a household pantry app.
Help the user plan meals, keep track of groceries and decide what to buy.

When the user wants to change the pantry (they bought something, ran out,
need something), call the propose_pantry_actions tool with the actions and a
short summary. The user reviews the proposal before anything changes, so
never claim the pantry has already been updated.

Use lowercase, singular item names. Prefer update_pantry_status for items
already in the pantry and add_to_pantry for new ones. remove_from_shopping_list
means the user now has the item.

Current pantry:
`

// ProposalTool describes the function the model calls to propose changes.
func ProposalTool() llm.Tool {
	types := make([]string, len(action.Types))
	for i, t := range action.Types {
		types[i] = string(t)
	}
	statuses := []string{
		string(model.StatusInStock),
		string(model.StatusRunningLow),
		string(model.StatusOutOfStock),
		string(model.StatusPlanned),
	}

	return llm.Tool{
		Name:        ProposalToolName,
		Description: "Propose pantry changes for the user to approve. Nothing is applied until they accept.",
		Parameters: &llm.Schema{
			Type: "object",
			Properties: map[string]*llm.Schema{
				"actions": {
					Type:        "array",
					Description: "The pantry changes to propose.",
					Items: &llm.Schema{
						Type: "object",
						Properties: map[string]*llm.Schema{
							"type":   {Type: "string", Enum: types},
							"item":   {Type: "string", Description: "Lowercase singular item name."},
							"status": {Type: "string", Enum: statuses, Description: "Required for add_to_pantry and update_pantry_status."},
						},
						Required: []string{"type", "item"},
					},
				},
				"summary": {
					Type:        "string",
					Description: "One sentence describing the proposed changes.",
				},
			},
			Required: []string{"actions", "summary"},
		},
	}
}

func buildSystemPrompt(snapshot []model.PantryItem) string {
	return systemPrompt + interpreter.BuildContext(snapshot)
}
