package generic

import (
	"sort"

	"golang.org/x/exp/constraints"
)

// SortSliceFunc sorts the slice using the three-way comparison function cmp.
// Equal elements keep their original order.
func SortSliceFunc[T any](arr []T, cmp func(a, b T) int) {
	sort.SliceStable(arr, func(i, j int) bool {
		return cmp(arr[i], arr[j]) < 0
	})
}

func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}

	return b
}

func Abs[T constraints.Signed](v T) T {
	if v < 0 {
		return -v
	}

	return v
}
