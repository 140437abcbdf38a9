// Package template renders {{key}} placeholders for report generation.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([\w.]+)\s*\}\}`)

// Render substitutes every {{key}} placeholder in templateStr with the
// matching value from data. Dotted keys walk nested maps; unresolved keys
// render as the empty string.
func Render(templateStr string, data map[string]any) string {
	return placeholderPattern.ReplaceAllStringFunc(templateStr, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := lookup(data, key)
		if !ok {
			return ""
		}

		return formatValue(value)
	})
}

func lookup(data map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	current := any(data)

	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}
