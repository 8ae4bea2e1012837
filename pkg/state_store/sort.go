package state_store

import "golang.org/x/exp/slices"

func dedupSorted(keys []string) []string {
	slices.Sort(keys)
	return slices.Compact(keys)
}
