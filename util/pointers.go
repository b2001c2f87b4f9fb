package util

// Ptr returns a pointer to v, for optional sampling parameters.
func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *p, or the zero value if p is nil.
func Deref[T any](p *T) T {
	if p != nil {
		return *p
	}
	var zero T
	return zero
}

// FirstSet returns the first non-nil pointer, or nil.
func FirstSet[T any](ptrs ...*T) *T {
	for _, p := range ptrs {
		if p != nil {
			return p
		}
	}
	return nil
}

// Coalesce returns the first non-zero value.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
