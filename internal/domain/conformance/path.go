package conformance

import "strings"

// valuesAt walks a dotted path through decoded JSON, flattening arrays at
// every step the way FHIRPath navigation does.
func valuesAt(node interface{}, path string) []interface{} {
	current := flatten(node)
	for _, name := range strings.Split(path, ".") {
		var next []interface{}
		for _, n := range current {
			m, ok := n.(map[string]interface{})
			if !ok {
				continue
			}
			if child, ok := m[name]; ok {
				next = append(next, flatten(child)...)
			}
		}
		current = next
	}
	return current
}

func flatten(v interface{}) []interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return t
	default:
		return []interface{}{t}
	}
}

func stringsAt(node interface{}, path string) []string {
	var out []string
	for _, v := range valuesAt(node, path) {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringAt(node interface{}, path string) string {
	if s := stringsAt(node, path); len(s) > 0 {
		return s[0]
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
