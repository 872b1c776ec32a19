package detector

import "sort"

// suppressPerClass runs suppress once per class so boxes of different classes never
// suppress each other. suppress receives indices of one class and returns the ones to
// keep; the result is the kept indices in ascending order.
func suppressPerClass(classes []int, suppress func(members []int) []int) []int {
	groups := map[int][]int{}
	for i, c := range classes {
		groups[c] = append(groups[c], i)
	}

	keep := make([]int, 0, len(classes))
	for _, members := range groups {
		keep = append(keep, suppress(members)...)
	}
	sort.Ints(keep)
	return keep
}
