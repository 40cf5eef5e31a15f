package models

// Categories is the fixed set of meal categories a feed document must cover,
// in publication order.
var Categories = []string{"breakfast", "lunch", "dinner"}

// RequiredNutritionKeys are the nutrition entries every item should carry by
// the time it reaches publication.
var RequiredNutritionKeys = []string{"calories", "protein", "carbs", "fat", "fiber", "sugar", "sodium"}

// SignificanceMarker must appear in every item description. The mobile app
// splits the description on it to render the health-significance block.
const SignificanceMarker = "Significance:"

// FeedDocument maps a meal category to its section. A complete document has
// exactly the keys in Categories.
type FeedDocument map[string]MealSection

// MealSection holds the items of one meal category, keyed by item id.
type MealSection struct {
	Items map[string]FoodItem `json:"items"`
}

// FoodItem is one curated dish record.
type FoodItem struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Keywords         []string          `json:"keywords"`
	Allergens        []string          `json:"allergens"`
	GoodForDiseases  []string          `json:"goodForDiseases"`
	BadForDiseases   []string          `json:"badForDiseases"`
	HealthBenefit    string            `json:"healthBenefit"`
	Category         string            `json:"category"`
	ImagePlaceholder string            `json:"imagePlaceholder"`
	Ingredients      []string          `json:"ingredients"`
	Instructions     []string          `json:"instructions"`
	Nutrition        map[string]string `json:"nutrition"`
}

// ValidCategory reports whether name is one of the fixed meal categories.
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
