package set

import "github.com/maxpoletaev/gms/internal/generic"

type Set[T comparable] map[T]struct{}

func (s Set[T]) Add(val T) {
	s[val] = struct{}{}
}

func (s Set[T]) Remove(val T) {
	delete(s, val)
}

func (s Set[T]) Values() []T {
	return generic.MapKeys(s)
}

func (s Set[T]) Has(val T) bool {
	_, ok := s[val]
	return ok
}

func (s Set[T]) Len() int {
	return len(s)
}

// Without returns a copy of the set with the given values excluded.
func (s Set[T]) Without(vals ...T) Set[T] {
	newset := make(Set[T], len(s))
	generic.MapCopy(s, newset)

	for _, val := range vals {
		delete(newset, val)
	}

	return newset
}

func (s Set[T]) Equals(ss Set[T]) bool {
	if len(s) != len(ss) {
		return false
	}

	for k := range s {
		if !ss.Has(k) {
			return false
		}
	}

	return true
}

func New[T comparable](sl ...T) Set[T] {
	set := make(Set[T], len(sl))
	for _, val := range sl {
		set.Add(val)
	}
	return set
}
