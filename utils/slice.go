package utils

// UniqueUint removes duplicate values from a slice of uints, keeping first occurrences.
func UniqueUint(slice []uint) []uint {
	seen := make(map[uint]struct{}, len(slice))
	list := make([]uint, 0, len(slice))
	for _, entry := range slice {
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		list = append(list, entry)
	}
	return list
}

// SubsetUint reports whether every element of sub is in set.
func SubsetUint(sub, set []uint) bool {
	have := make(map[uint]struct{}, len(set))
	for _, v := range set {
		have[v] = struct{}{}
	}
	for _, v := range sub {
		if _, ok := have[v]; !ok {
			return false
		}
	}
	return true
}
