package chat

import "sort"

// reconcileKeys diffs the desired set of watch keys against the active set and
// returns which keys to add and which to remove, both sorted. It is the pure
// core of the per-user profile subscription bookkeeping: the directory derives
// the desired set from the visible sessions and adjusts its live watches to
// match.
func reconcileKeys(desired, active map[string]struct{}) (add, remove []string) {
	for key := range desired {
		if _, ok := active[key]; !ok {
			add = append(add, key)
		}
	}
	for key := range active {
		if _, ok := desired[key]; !ok {
			remove = append(remove, key)
		}
	}
	sort.Strings(add)
	sort.Strings(remove)
	return add, remove
}
