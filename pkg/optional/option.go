// Copyright 2021 Taiki Kawakami (a.k.a. moznion) https://moznion.net
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of this software and associated documentation files (the "Software"), to deal in the Software without restriction, including without limitation the rights to use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of the Software, and to permit persons to whom the Software is furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package optional

import "fmt"

// Option is a data type that must be Some (i.e. having a value) or None (i.e. doesn't have a value).
type Option[T any] struct {
	value  T
	exists bool
}

// Some is a function to make an Option type instance with the actual value.
func Some[T any](v T) Option[T] {
	return Option[T]{
		value:  v,
		exists: true,
	}
}

// None is a function to make an Option type value that doesn't have a value.
func None[T any]() Option[T] {
	return Option[T]{}
}

// IsNone returns whether the Option doesn't have a value or not.
func (o Option[T]) IsNone() bool {
	return !o.exists
}

// IsSome returns whether the Option has a value or not.
func (o Option[T]) IsSome() bool {
	return o.exists
}

// Unwrap returns the value regardless of Some/None status.
// If the Option value is Some, this method returns the actual value.
// On the other hand, if the Option value is None, this method returns the *default* value according to the type.
func (o Option[T]) Unwrap() T {
	return o.value
}

// Take takes the contained value in Option.
// If the Option value is Some, this returns the value and true.
// If the Option value is None, this returns the default value and false.
func (o Option[T]) Take() (T, bool) {
	return o.value, o.exists
}

// TakeOr returns the actual value if the Option has a value.
// Otherwise, this returns fallbackValue.
func (o Option[T]) TakeOr(fallbackValue T) T {
	if o.exists {
		return o.value
	}
	return fallbackValue
}

// TakeOrElse returns the actual value if the Option has a value.
// Otherwise, this executes fallbackFunc and returns its result.
func (o Option[T]) TakeOrElse(fallbackFunc func() T) T {
	if o.exists {
		return o.value
	}
	return fallbackFunc()
}

// Filter returns the Option itself if the Option has a value and the value matches the predicate.
// Otherwise, this returns the None value.
func (o Option[T]) Filter(predicate func(v T) bool) Option[T] {
	if o.exists && predicate(o.value) {
		return o
	}
	return None[T]()
}

// Map converts the given Option value to another Option value according to the mapper function.
// If the given Option value is None, this returns the None value of the mapped type.
func Map[T, U any](option Option[T], mapper func(v T) U) Option[U] {
	if option.IsNone() {
		return None[U]()
	}
	return Some(mapper(option.value))
}

// MapOr converts the given Option value to another value according to the mapper function.
// If the given Option value is None, this returns fallbackValue.
func MapOr[T, U any](option Option[T], fallbackValue U, mapper func(v T) U) U {
	if option.IsNone() {
		return fallbackValue
	}
	return mapper(option.value)
}

var _ = fmt.Stringer(Option[int]{})

func (o Option[T]) String() string {
	if o.exists {
		return fmt.Sprintf("Some[%v]", o.value)
	}
	return "None[]"
}
