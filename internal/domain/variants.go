package domain

import (
	"fmt"
	"sort"
	"strings"
)

// NormalizeVariantValues converts a decoded JSON object into the
// canonical VariantValues form. Numeric-looking values arrive from
// clients as JSON numbers while the store holds strings; rendering
// everything through fmt guards the comparison against that mismatch.
func NormalizeVariantValues(raw map[string]any) VariantValues {
	if len(raw) == 0 {
		return nil
	}
	out := make(VariantValues, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[strings.TrimSpace(k)] = strings.TrimSpace(t)
		case float64:
			if t == float64(int64(t)) {
				out[strings.TrimSpace(k)] = fmt.Sprintf("%d", int64(t))
			} else {
				out[strings.TrimSpace(k)] = fmt.Sprint(t)
			}
		default:
			out[strings.TrimSpace(k)] = strings.TrimSpace(fmt.Sprint(t))
		}
	}
	return out
}

// String renders the selection deterministically, e.g. "Color: Blue, Size: L".
func (v VariantValues) String() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + v[k]
	}
	return strings.Join(parts, ", ")
}

// Equal reports exact-selection equality: identical key sets and every
// value matching under case-insensitive string comparison.
func (v VariantValues) Equal(other VariantValues) bool {
	if len(v) != len(other) {
		return false
	}
	for k, a := range v {
		b, ok := other[k]
		if !ok || !strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
			return false
		}
	}
	return true
}
