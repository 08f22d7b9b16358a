package structured

import "errors"

// ValidatorInterface checks a parsed value beyond what unmarshalling
// enforces, for example required fields or cross-field constraints.
type ValidatorInterface[T any] interface {
	Validate(data *T) error
}

// ValidatorFunc adapts a plain function to ValidatorInterface
type ValidatorFunc[T any] func(data *T) error

func (f ValidatorFunc[T]) Validate(data *T) error {
	return f(data)
}

// NoOpValidator accepts any non-nil value
type NoOpValidator[T any] struct{}

// NewNoOpValidator returns the validator used when a node declares no
// domain checks of its own
func NewNoOpValidator[T any]() *NoOpValidator[T] {
	return &NoOpValidator[T]{}
}

func (v *NoOpValidator[T]) Validate(data *T) error {
	if data == nil {
		return errors.New("data cannot be nil")
	}
	return nil
}
