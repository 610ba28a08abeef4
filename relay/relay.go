// Package relay is the runtime half of relaygen: the provider contract consumed by
// generated Create methods and the helpers those methods call.
package relay

import (
	"errors"
	"fmt"
	"reflect"
)

// Provider resolves services by runtime type.
type Provider interface {
	// Required returns the service registered for t or an error wrapping ErrNoService.
	Required(t reflect.Type) (any, error)
	// All returns a cursor over every service registered for t.
	All(t reflect.Type) Cursor
}

// Cursor walks a sequence of service instances. It starts before the first instance.
type Cursor interface {
	Next() bool
	Value() any
	Reset()
}

var (
	ErrNoService         = errors.New("no service registered")
	ErrNilProvider       = errors.New("relay: nil provider")
	ErrServiceType       = errors.New("relay: service has unexpected type")
	ErrInterceptorResult = errors.New("relay: interceptor returned an incompatible value")
)

// NoServiceError reports a missing service. It matches ErrNoService with errors.Is.
type NoServiceError struct {
	Type reflect.Type
}

func (e *NoServiceError) Error() string {
	return fmt.Sprintf("no service for type '%s' has been registered", e.Type)
}

func (e *NoServiceError) Is(target error) bool {
	return target == ErrNoService
}

// TypeOf returns the reflect.Type of T, interface types included.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Required resolves exactly one T.
func Required[T any](p Provider) (T, error) {
	var zero T
	if p == nil {
		return zero, ErrNilProvider
	}
	t := TypeOf[T]()
	v, err := p.Required(t)
	if err != nil {
		return zero, err
	}
	return cast[T](v, t)
}

// Cyclic resolves n values of T for n parameters sharing one service type.
// The first slot fails when nothing is registered; later slots restart the
// cursor from the first instance once the distinct instances run out.
func Cyclic[T any](p Provider, n int) ([]T, error) {
	if p == nil {
		return nil, ErrNilProvider
	}
	t := TypeOf[T]()
	cur := p.All(t)
	out := make([]T, 0, n)

	st := Start()
	for i := 0; i < n; i++ {
		next, reset, err := st.Advance(cur.Next())
		if err != nil {
			return nil, &NoServiceError{Type: t}
		}
		if reset {
			cur.Reset()
			if !cur.Next() {
				return nil, &NoServiceError{Type: t}
			}
		}
		st = next

		v, err := cast[T](cur.Value(), t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// As converts an interceptor result back to the produced type.
func As[T any](v any) (T, error) {
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: got %T, want %s", ErrInterceptorResult, v, TypeOf[T]())
	}
	return out, nil
}

func cast[T any](v any, t reflect.Type) (T, error) {
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: got %T, want %s", ErrServiceType, v, t)
	}
	return out, nil
}
