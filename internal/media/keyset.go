package media

import "sort"

// KeyDiff compares a supplied key list with the stored key set.
type KeyDiff struct {
	Missing    []string `json:"missing,omitempty"`
	Unknown    []string `json:"unknown,omitempty"`
	Duplicates []string `json:"duplicates,omitempty"`
}

// IsPermutation reports whether the supplied list matched the stored set exactly.
func (d KeyDiff) IsPermutation() bool {
	return len(d.Missing) == 0 && len(d.Unknown) == 0 && len(d.Duplicates) == 0
}

// DiffKeys reports keys present in current but absent from supplied, keys
// supplied but unknown, and keys supplied more than once.
func DiffKeys(current, supplied []string) KeyDiff {
	currentSet := dedupe(current)
	suppliedSet := make(map[string]struct{}, len(supplied))
	dupSet := map[string]struct{}{}
	for _, key := range supplied {
		if _, seen := suppliedSet[key]; seen {
			dupSet[key] = struct{}{}
			continue
		}
		suppliedSet[key] = struct{}{}
	}
	return KeyDiff{
		Missing:    sortedKeys(difference(currentSet, suppliedSet)),
		Unknown:    sortedKeys(difference(suppliedSet, currentSet)),
		Duplicates: sortedKeys(dupSet),
	}
}

// Unreferenced returns stored keys not present in referenced.
func Unreferenced(stored, referenced []string) []string {
	return sortedKeys(difference(dedupe(stored), dedupe(referenced)))
}

func dedupe(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		set[key] = struct{}{}
	}
	return set
}

func difference(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for key := range a {
		if _, ok := b[key]; !ok {
			out[key] = struct{}{}
		}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
