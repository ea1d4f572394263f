package grocery

import (
	"sort"
	"strings"
)

// Other is the fallback category.
const Other = "Other"

// Categorize returns the aisle category for an item name. Matching is
// case-insensitive: the singular form is looked up exactly first, then the
// longest keyword contained in the name wins.
func Categorize(itemName string) string {
	name := strings.Join(strings.Fields(strings.ToLower(itemName)), " ")
	if name == "" {
		return Other
	}

	if cat, ok := exact[name]; ok {
		return cat
	}
	if cat, ok := exact[Singular(name)]; ok {
		return cat
	}

	for _, kw := range byLength {
		if strings.Contains(name, kw.word) {
			return kw.category
		}
	}
	return Other
}

// Categories lists the known categories in display order.
func Categories() []string {
	out := make([]string, 0, len(catalog)+1)
	for _, c := range catalog {
		out = append(out, c.category)
	}
	return append(out, Other)
}

type keyword struct {
	word     string
	category string
}

var (
	exact    = map[string]string{}
	byLength []keyword
)

func init() {
	for _, c := range catalog {
		for _, w := range c.words {
			exact[w] = c.category
			byLength = append(byLength, keyword{word: w, category: c.category})
		}
	}
	// Longer keywords are more specific: "peanut butter" must beat "butter",
	// "steak" must beat "tea".
	sort.SliceStable(byLength, func(i, j int) bool {
		if len(byLength[i].word) != len(byLength[j].word) {
			return len(byLength[i].word) > len(byLength[j].word)
		}
		return byLength[i].word < byLength[j].word
	})
}

// Keywords are singular; plural input is handled by Singular and by
// substring matching.
var catalog = []struct {
	category string
	words    []string
}{
	{"Produce", []string{
		"apple", "banana", "orange", "lemon", "lime", "avocado", "tomato",
		"potato", "sweet potato", "onion", "garlic", "lettuce", "spinach", "kale",
		"broccoli", "carrot", "celery", "cucumber", "pepper", "bell pepper",
		"mushroom", "corn", "grape", "strawberry", "blueberry", "raspberry",
		"watermelon", "pineapple", "mango", "peach", "pear", "cilantro", "basil",
		"parsley", "ginger", "zucchini", "asparagus", "green bean", "cabbage",
		"cauliflower", "berries", "herb", "salad",
	}},
	{"Dairy", []string{
		"milk", "egg", "butter", "cheese", "yogurt", "cream", "sour cream",
		"heavy cream", "half and half", "cottage cheese", "cream cheese",
		"mozzarella", "cheddar", "parmesan",
	}},
	{"Meat & Seafood", []string{
		"chicken", "beef", "pork", "turkey", "bacon", "sausage", "ham", "steak",
		"salmon", "shrimp", "tuna", "fish", "ground beef", "hot dog", "deli meat",
		"lamb", "crab", "tilapia", "meatball",
	}},
	{"Bakery", []string{
		"bread", "bagel", "tortilla", "roll", "bun", "muffin", "croissant",
		"pita", "baguette", "sourdough",
	}},
	{"Pantry", []string{
		"rice", "pasta", "flour", "sugar", "salt", "oil", "olive oil", "vinegar",
		"soy sauce", "ketchup", "mustard", "mayonnaise", "honey",
		"peanut butter", "jam", "jelly", "cereal", "oatmeal", "oat", "soup",
		"broth", "stock", "bean", "lentil", "nut", "almond", "spaghetti",
		"noodle", "maple syrup", "hot sauce", "salsa", "sauce", "spice",
		"seasoning", "canned", "granola", "baking soda", "baking powder",
		"chickpea", "tomato sauce",
	}},
	{"Frozen", []string{
		"frozen", "ice cream", "popsicle", "frozen pizza", "frozen vegetable",
		"frozen fruit", "waffle",
	}},
	{"Beverages", []string{
		"water", "sparkling water", "juice", "orange juice", "coffee", "tea",
		"soda", "beer", "wine", "kombucha", "lemonade", "drink",
	}},
	{"Snacks", []string{
		"chip", "cracker", "cookie", "popcorn", "pretzel", "granola bar",
		"trail mix", "candy", "chocolate", "fruit snack", "snack",
	}},
	{"Household", []string{
		"paper towel", "toilet paper", "trash bag", "garbage bag", "dish soap",
		"laundry", "detergent", "cleaner", "sponge", "foil", "aluminum foil",
		"plastic wrap", "battery", "light bulb", "dishwasher tablet",
	}},
	{"Personal Care", []string{
		"shampoo", "conditioner", "toothpaste", "toothbrush", "deodorant",
		"lotion", "sunscreen", "razor", "tissue", "body wash", "band-aid", "soap",
	}},
}
