package extract

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/trkd-health/feed-backend/internal/models"
)

// ErrNoStructure is returned when no parseable JSON object can be recovered
// from a model response. Callers must treat it as a generation failure, not
// as an empty result.
var ErrNoStructure = errors.New("no JSON structure found in response")

// Items recovers an item-id -> FoodItem mapping from raw model output. The
// text may be wrapped in markdown fences or surrounded by prose. Recovery is
// attempted in a fixed order: strip fences and trim, direct parse, balanced
// object scan, greedy first-{-to-last-} slice. The greedy slice can
// mis-extract when string values themselves contain braces; the balanced
// scan runs first so it is only ever a last resort.
func Items(raw string) (map[string]models.FoodItem, error) {
	cleaned := StripFences(raw)

	if items, ok := decodeItems(cleaned); ok {
		return items, nil
	}

	if candidate, ok := balancedObject(cleaned); ok {
		if items, ok := decodeItems(candidate); ok {
			return items, nil
		}
	}

	if candidate, ok := greedyObject(cleaned); ok {
		if items, ok := decodeItems(candidate); ok {
			return items, nil
		}
	}

	return nil, ErrNoStructure
}

// Document recovers a full feed document from raw text, with the same
// recovery order as Items.
func Document(raw string) (models.FeedDocument, error) {
	cleaned := StripFences(raw)

	if doc, ok := decodeDocument(cleaned); ok {
		return doc, nil
	}

	if candidate, ok := balancedObject(cleaned); ok {
		if doc, ok := decodeDocument(candidate); ok {
			return doc, nil
		}
	}

	return nil, ErrNoStructure
}

// decodeItems rejects JSON null along with malformed input: a nil map would
// read as a successful zero-item result, and extraction must fail explicitly
// instead.
func decodeItems(s string) (map[string]models.FoodItem, bool) {
	var items map[string]models.FoodItem
	if err := json.Unmarshal([]byte(s), &items); err != nil || items == nil {
		return nil, false
	}
	return items, true
}

func decodeDocument(s string) (models.FeedDocument, bool) {
	var doc models.FeedDocument
	if err := json.Unmarshal([]byte(s), &doc); err != nil || doc == nil {
		return nil, false
	}
	return doc, true
}

// StripFences removes markdown code fence lines (``` or ```json and the
// like) wherever they appear and trims surrounding whitespace. Fence
// contents are left untouched.
func StripFences(raw string) string {
	if !strings.Contains(raw, "```") {
		return strings.TrimSpace(raw)
	}

	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// balancedObject scans from the first '{' tracking brace depth, string
// boundaries, and escapes, and returns the first balanced object substring.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// greedyObject slices from the first '{' to the last '}'.
func greedyObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
