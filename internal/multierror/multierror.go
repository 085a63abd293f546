package multierror

import (
	"fmt"
	"strings"
	"sync"
)

// Error combines multiple errors, each identified by a key, into one. Keys
// are reported in the order they were first added.
type Error[T comparable] struct {
	mu     sync.Mutex
	keys   []T
	errors map[T]error
}

// New creates a new Error.
func New[T comparable]() *Error[T] {
	return &Error[T]{
		errors: make(map[T]error),
	}
}

// Error returns a string representation of the error.
func (m *Error[T]) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder

	for i, k := range m.keys {
		if i > 0 {
			sb.WriteString("; ")
		}

		fmt.Fprintf(&sb, "%v: %s", k, m.errors[k])
	}

	return sb.String()
}

// Unwrap returns the combined errors, so that errors.Is and errors.As look
// through all of them.
func (m *Error[T]) Unwrap() []error {
	m.mu.Lock()
	defer m.mu.Unlock()

	errs := make([]error, 0, len(m.keys))
	for _, k := range m.keys {
		errs = append(errs, m.errors[k])
	}

	return errs
}

// Len returns the number of errors.
func (m *Error[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.keys)
}

// Add adds an error under the given key, replacing the previous one.
func (m *Error[T]) Add(key T, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.errors[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.errors[key] = err
}

// Get returns an error by key.
func (m *Error[T]) Get(key T) (error, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err, ok := m.errors[key]

	return err, ok
}

// Keys returns the keys of the errors in insertion order.
func (m *Error[T]) Keys() []T {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]T, len(m.keys))
	copy(keys, m.keys)

	return keys
}

// Combined returns the Error if it contains any errors, nil otherwise.
func (m *Error[T]) Combined() error {
	if m.Len() == 0 {
		return nil
	}

	return m
}
