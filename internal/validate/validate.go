package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/trkd-health/feed-backend/internal/models"
)

// Report separates fatal findings from advisory ones. Errors block
// publication; warnings are reported and publication proceeds. Missing-field
// findings are deliberately warnings: the mobile clients tolerate optional
// fields, so availability wins over strict schema compliance. Only the
// structural root-key and items-presence checks are hard errors.
type Report struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether the document may be published.
func (r Report) Valid() bool {
	return len(r.Errors) == 0
}

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Document checks a full feed document against the expected category set.
// The input is never mutated.
func Document(doc models.FeedDocument, categories []string) Report {
	var report Report

	expected := make(map[string]bool, len(categories))
	for _, c := range categories {
		expected[c] = true
	}

	extras := make([]string, 0)
	for key := range doc {
		if !expected[key] {
			extras = append(extras, key)
		}
	}
	sort.Strings(extras)
	for _, key := range extras {
		report.errorf("unexpected root key %q, expected one of %s", key, strings.Join(categories, ", "))
	}

	for _, category := range categories {
		section, ok := doc[category]
		if !ok {
			report.errorf("missing category: %s", category)
			continue
		}
		if section.Items == nil {
			report.errorf("%s missing 'items' key", category)
			continue
		}
		checkItems(&report, category, section.Items)
	}

	return report
}

// Section checks a single category's item set, as produced by one
// generation call.
func Section(category string, items map[string]models.FoodItem) Report {
	var report Report
	if items == nil {
		report.errorf("%s missing 'items' key", category)
		return report
	}
	checkItems(&report, category, items)
	return report
}

func checkItems(report *Report, category string, items map[string]models.FoodItem) {
	ids := make([]string, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		checkItem(report, category, id, items[id])
	}
}

func checkItem(report *Report, category, id string, item models.FoodItem) {
	if missing := missingFields(item); len(missing) > 0 {
		report.warnf("%s/%s missing fields: %s", category, id, strings.Join(missing, ", "))
	}

	if item.Category != "" && item.Category != category {
		report.warnf("%s/%s category mismatch: %s should be %s", category, id, item.Category, category)
	}

	if item.Description != "" && !strings.Contains(item.Description, models.SignificanceMarker) {
		report.warnf("%s/%s description missing %q marker", category, id, models.SignificanceMarker)
	}

	if shared := sharedElements(item.GoodForDiseases, item.BadForDiseases); len(shared) > 0 {
		report.warnf("%s/%s disease sets overlap: %s", category, id, strings.Join(shared, ", "))
	}

	if item.Nutrition != nil {
		var missing []string
		for _, key := range models.RequiredNutritionKeys {
			if _, ok := item.Nutrition[key]; !ok {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			report.warnf("%s/%s missing nutrition fields: %s", category, id, strings.Join(missing, ", "))
		}
	}
}

func missingFields(item models.FoodItem) []string {
	var missing []string
	if item.Title == "" {
		missing = append(missing, "title")
	}
	if item.Description == "" {
		missing = append(missing, "description")
	}
	if len(item.Keywords) == 0 {
		missing = append(missing, "keywords")
	}
	if len(item.Allergens) == 0 {
		missing = append(missing, "allergens")
	}
	if item.HealthBenefit == "" {
		missing = append(missing, "healthBenefit")
	}
	if item.Category == "" {
		missing = append(missing, "category")
	}
	if item.ImagePlaceholder == "" {
		missing = append(missing, "imagePlaceholder")
	}
	if len(item.Ingredients) == 0 {
		missing = append(missing, "ingredients")
	}
	if len(item.Instructions) == 0 {
		missing = append(missing, "instructions")
	}
	if item.Nutrition == nil {
		missing = append(missing, "nutrition")
	}
	return missing
}

func sharedElements(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inA := make(map[string]bool, len(a))
	for _, v := range a {
		inA[v] = true
	}
	var shared []string
	for _, v := range b {
		if inA[v] {
			shared = append(shared, v)
			inA[v] = false
		}
	}
	sort.Strings(shared)
	return shared
}
