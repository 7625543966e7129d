package model

import "sort"

// Partition groups rows by key. Keys are returned ascending; each group keeps input order.
func Partition[T any](rows []T, key func(T) string) ([]string, map[string][]T) {
	groups := make(map[string][]T)
	for _, r := range rows {
		k := key(r)
		groups[k] = append(groups[k], r)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}
