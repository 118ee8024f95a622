package domain

type fieldState uint8

const (
	fieldUnchanged fieldState = iota
	fieldSet
	fieldCleared
)

// Field is a three-state value for partial updates: unchanged (the zero
// value), set to a value, or cleared to null.
type Field[T any] struct {
	state fieldState
	value T
}

// Set returns a field that assigns v.
func Set[T any](v T) Field[T] {
	return Field[T]{state: fieldSet, value: v}
}

// Clear returns a field that nulls the column.
func Clear[T any]() Field[T] {
	return Field[T]{state: fieldCleared}
}

// FromPtr maps nil to unchanged and a non-nil pointer to Set(*p).
func FromPtr[T any](p *T) Field[T] {
	if p == nil {
		return Field[T]{}
	}
	return Set(*p)
}

func (f Field[T]) IsUnchanged() bool { return f.state == fieldUnchanged }
func (f Field[T]) IsSet() bool       { return f.state == fieldSet }
func (f Field[T]) IsCleared() bool   { return f.state == fieldCleared }

// Value returns the assigned value and whether the field is set.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.state == fieldSet
}
