package onetest

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// ParseTemplate reads a flat template in the control plane's syntax:
// one KEY="value" (or KEY=value) per line. Keys are upper-cased. Vector
// attributes (KEY=[...]) are not supported.
func ParseTemplate(s string) (map[string]string, error) {
	out := make(map[string]string)
	for i, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '='", i+1)
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			return nil, fmt.Errorf("line %d: empty attribute name", i+1)
		}
		val = strings.TrimSpace(val)
		if strings.HasPrefix(val, "[") {
			return nil, fmt.Errorf("line %d: vector attribute %s not supported", i+1, key)
		}
		if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
			val = val[1 : len(val)-1]
		}
		out[key] = val
	}
	return out, nil
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
