package datasource

import (
	"sort"
	"strings"
)

// TagPredicate is one required tag. A bare token matches anywhere in the
// dimension keys and values; key=value must match a single dimension pair.
type TagPredicate struct {
	Raw   string
	Key   string
	Value string
	Bare  bool
}

// ParseTagPredicates lowercases and splits raw tags. Blank tags are dropped.
func ParseTagPredicates(tags []string) []TagPredicate {
	preds := make([]TagPredicate, 0, len(tags))
	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}

		eq := strings.Index(tag, "=")
		if eq <= 0 {
			preds = append(preds, TagPredicate{Raw: raw, Value: tag, Bare: true})
			continue
		}
		preds = append(preds, TagPredicate{
			Raw:   raw,
			Key:   strings.TrimSpace(tag[:eq]),
			Value: strings.TrimSpace(tag[eq+1:]),
		})
	}
	return preds
}

// MatchTags reports whether every predicate matches the dimension map
func MatchTags(dims map[string]string, preds []TagPredicate) bool {
	if len(preds) == 0 {
		return true
	}

	keys := sortedKeys(dims)
	lowerKeys := make([]string, len(keys))
	lowerValues := make([]string, len(keys))
	for i, k := range keys {
		lowerKeys[i] = strings.ToLower(k)
		lowerValues[i] = strings.ToLower(dims[k])
	}
	blob := strings.Join(lowerKeys, " ") + " " + strings.Join(lowerValues, " ")

	for _, p := range preds {
		if !p.matches(lowerKeys, lowerValues, blob) {
			return false
		}
	}
	return true
}

func (p TagPredicate) matches(keys, values []string, blob string) bool {
	if p.Bare {
		return strings.Contains(blob, p.Value)
	}
	// "team=" or "=x" style halves never match
	if p.Key == "" || p.Value == "" {
		return false
	}
	for i := range keys {
		if strings.Contains(keys[i], p.Key) && strings.Contains(values[i], p.Value) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
