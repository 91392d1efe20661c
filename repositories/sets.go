package repositories

import "github.com/samber/lo"

// Set-field mutation primitives. They back the same contract Mongo's
// $addToSet/$pull gave the original platform, applied inside a single
// badger transaction by the repository methods and the service closures
// that call them.

// AddToSet appends id unless present. Reports whether the set changed.
func AddToSet(set []string, id string) ([]string, bool) {
	if lo.Contains(set, id) {
		return set, false
	}
	return append(set, id), true
}

// RemoveFromSet removes every occurrence of id. Reports whether the set
// changed.
func RemoveFromSet(set []string, id string) ([]string, bool) {
	if !lo.Contains(set, id) {
		return set, false
	}
	return lo.Without(set, id), true
}

// ToggleInSet flips membership of id and returns the new membership state.
func ToggleInSet(set []string, id string) ([]string, bool) {
	if lo.Contains(set, id) {
		return lo.Without(set, id), false
	}
	return append(set, id), true
}
