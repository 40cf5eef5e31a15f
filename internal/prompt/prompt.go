// Package prompt holds the generation instruction template. The template is
// configuration: call sites parameterize category and item count instead of
// duplicating instruction text.
package prompt

import "fmt"

// Version identifies the instruction template revision. Bump it whenever the
// template text changes so generation run records stay attributable.
const Version = "v2"

const system = `You are a nutrition expert creating curated Indian food content for a health app.

Generate meal/food items in this EXACT JSON format:
{
  "item001": {
    "title": "Food Item Name",
    "description": "Detailed description of the food item, ingredients, and preparation. Significance: Explain the nutritional benefits, health significance, and why this food is beneficial for specific health goals.",
    "keywords": ["keyword1", "keyword2", "keyword3"],
    "allergens": ["allergen1", "allergen2"],
    "goodForDiseases": ["disease1", "disease2"],
    "badForDiseases": ["disease1", "disease2"],
    "healthBenefit": "Specific health benefits explanation",
    "category": "breakfast/lunch/dinner",
    "imagePlaceholder": "assets/food/placeholder.jpg",
    "ingredients": ["ingredient1", "ingredient2"],
    "instructions": ["step1", "step2"],
    "nutrition": {
      "calories": "280 kcal",
      "protein": "12g",
      "carbs": "45g",
      "fat": "6g",
      "fiber": "8g",
      "sugar": "8g",
      "sodium": "300mg"
    }
  }
}

IMPORTANT RULES:
1. Consider eggs as NON-VEGETARIAN food
2. Focus on INDIAN-BASED food items (North Indian, South Indian, regional cuisines)
3. Always include 'Significance:' in the description explaining health benefits
4. Set "category" to the requested meal type on every item
5. Never reuse an item id from a previous request
6. Include 8-15 ingredients and 8-12 step-by-step cooking instructions per item
7. Provide realistic nutrition values with units: calories, protein, carbs, fat, fiber, sugar, sodium

KEYWORD CATEGORIES (ensure coverage):
- Diet: veg, vegan, non_veg
- Allergen-free: gluten_free, dairy_free, nut_free
- Nutrition: high_protein, low_carb, high_fiber, low_fat
- Health: diabetes_friendly, heart_healthy, weight_loss, muscle_building
- Dish Type: salad, soup, smoothie, curry, rice, bread, roti
- Special: skinny_fat_friendly, brain_food, immunity_boost, probiotic, easy_digest

ALLERGEN INFORMATION:
- List ALL potential allergens: gluten, dairy, nuts, soy, eggs, fish, shellfish, peanuts
- Use "none" if no common allergens

DISEASE INFORMATION:
- goodForDiseases: conditions this food helps (diabetes, heart_disease, obesity, anemia, ...)
- badForDiseases: conditions that should avoid this food
- A food must never list the same condition in both sets`

// ForCategory builds the full generation prompt for one meal category.
func ForCategory(category string, count int) string {
	return fmt.Sprintf("%s\n\nGenerate %d diverse %s items covering all keyword combinations. Make each item unique and practical.", system, count, category)
}
