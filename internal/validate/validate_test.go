package validate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trkd-health/feed-backend/internal/models"
	"github.com/trkd-health/feed-backend/internal/validate"
)

func validItem(category string) models.FoodItem {
	return models.FoodItem{
		Title:            "Masala Oats with Vegetables",
		Description:      "Oats cooked with spices and vegetables. Significance: beta-glucan fiber lowers cholesterol.",
		Keywords:         []string{"veg", "high_fiber", "heart_healthy"},
		Allergens:        []string{"gluten"},
		GoodForDiseases:  []string{"diabetes", "heart_disease"},
		BadForDiseases:   []string{"celiac"},
		HealthBenefit:    "Sustained energy and digestive health",
		Category:         category,
		ImagePlaceholder: "assets/food/placeholder.jpg",
		Ingredients:      []string{"rolled oats", "onions", "tomatoes", "green peas", "carrots", "turmeric", "cumin seeds", "salt"},
		Instructions:     []string{"Heat oil", "Add cumin", "Saute onions", "Add tomatoes", "Add vegetables", "Add oats", "Add water", "Simmer until creamy"},
		Nutrition: map[string]string{
			"calories": "280 kcal", "protein": "12g", "carbs": "45g",
			"fat": "6g", "fiber": "8g", "sugar": "8g", "sodium": "300mg",
		},
	}
}

func validDocument() models.FeedDocument {
	doc := models.FeedDocument{}
	for _, category := range models.Categories {
		doc[category] = models.MealSection{
			Items: map[string]models.FoodItem{
				"item001": validItem(category),
				"item002": validItem(category),
			},
		}
	}
	return doc
}

func TestDocumentValid(t *testing.T) {
	report := validate.Document(validDocument(), models.Categories)
	require.Empty(t, report.Errors)
	require.Empty(t, report.Warnings)
	require.True(t, report.Valid())
}

func TestDocumentMissingCategory(t *testing.T) {
	doc := validDocument()
	delete(doc, "dinner")

	report := validate.Document(doc, models.Categories)
	require.False(t, report.Valid())
	require.Contains(t, report.Errors, "missing category: dinner")
}

func TestDocumentUnexpectedRootKey(t *testing.T) {
	doc := validDocument()
	doc["snacks"] = models.MealSection{Items: map[string]models.FoodItem{}}

	report := validate.Document(doc, models.Categories)
	require.False(t, report.Valid())
	require.Len(t, report.Errors, 1)
	require.Contains(t, report.Errors[0], "snacks")
}

func TestDocumentMissingItems(t *testing.T) {
	doc := validDocument()
	doc["lunch"] = models.MealSection{}

	report := validate.Document(doc, models.Categories)
	require.Contains(t, report.Errors, "lunch missing 'items' key")
}

func TestCategoryMismatchWarning(t *testing.T) {
	doc := validDocument()
	item := validItem("lunch")
	doc["breakfast"].Items["item001"] = item

	report := validate.Document(doc, models.Categories)
	require.Empty(t, report.Errors)
	require.Len(t, report.Warnings, 1)
	require.Equal(t, "breakfast/item001 category mismatch: lunch should be breakfast", report.Warnings[0])
}

func TestDiseaseOverlapWarning(t *testing.T) {
	item := validItem("dinner")
	item.BadForDiseases = append(item.BadForDiseases, "diabetes")

	report := validate.Section("dinner", map[string]models.FoodItem{"item007": item})
	require.Empty(t, report.Errors)
	require.Len(t, report.Warnings, 1)
	require.Equal(t, "dinner/item007 disease sets overlap: diabetes", report.Warnings[0])
}

func TestMissingFieldsWarning(t *testing.T) {
	item := validItem("lunch")
	item.Title = ""
	item.HealthBenefit = ""

	report := validate.Section("lunch", map[string]models.FoodItem{"item003": item})
	require.Empty(t, report.Errors)
	require.Len(t, report.Warnings, 1)
	require.Contains(t, report.Warnings[0], "lunch/item003 missing fields:")
	require.Contains(t, report.Warnings[0], "title")
	require.Contains(t, report.Warnings[0], "healthBenefit")
}

func TestMissingNutritionWarning(t *testing.T) {
	item := validItem("breakfast")
	delete(item.Nutrition, "sodium")
	delete(item.Nutrition, "sugar")

	report := validate.Section("breakfast", map[string]models.FoodItem{"item001": item})
	require.Empty(t, report.Errors)
	require.Len(t, report.Warnings, 1)
	require.Equal(t, "breakfast/item001 missing nutrition fields: sugar, sodium", report.Warnings[0])
}

func TestMissingSignificanceWarning(t *testing.T) {
	item := validItem("dinner")
	item.Description = "A plain description without the marker."

	report := validate.Section("dinner", map[string]models.FoodItem{"item001": item})
	require.Empty(t, report.Errors)
	require.Len(t, report.Warnings, 1)
	require.Contains(t, report.Warnings[0], `missing "Significance:" marker`)
}

func TestSectionNilItems(t *testing.T) {
	report := validate.Section("lunch", nil)
	require.Contains(t, report.Errors, "lunch missing 'items' key")
}

func TestValidationDoesNotMutate(t *testing.T) {
	doc := validDocument()
	item := doc["breakfast"].Items["item001"]
	validate.Document(doc, models.Categories)
	require.Equal(t, item, doc["breakfast"].Items["item001"])
	require.Len(t, doc, 3)
}
