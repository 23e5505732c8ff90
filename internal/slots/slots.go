// Package slots implements the placeholder contract shared by candidate
// generation, compliance validation and final rendering. A slot is a name of
// alphanumerics/underscore inside a single pair of curly braces, e.g.
// {product_name}. All functions are pure.
package slots

import (
	"regexp"
	"sort"
)

var slotPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Extract returns the set of placeholder names in body. Duplicates collapse.
func Extract(body string) map[string]struct{} {
	found := make(map[string]struct{})
	for _, m := range slotPattern.FindAllStringSubmatch(body, -1) {
		found[m[1]] = struct{}{}
	}
	return found
}

// Found returns the placeholder names in body, sorted, for reporting.
func Found(body string) []string {
	set := Extract(body)
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MissingRequired returns the members of required absent from body, in
// schema order.
func MissingRequired(body string, required []string) []string {
	present := Extract(body)
	missing := []string{}
	for _, name := range required {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Render substitutes every placeholder that has an entry in values. A
// placeholder with no entry is left verbatim, braces included, so a
// partially-populated template stays inspectable instead of crashing the
// pipeline.
func Render(body string, values map[string]string) string {
	return slotPattern.ReplaceAllStringFunc(body, func(token string) string {
		name := token[1 : len(token)-1]
		if v, ok := values[name]; ok {
			return v
		}
		return token
	})
}
