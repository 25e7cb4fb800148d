// Package utils holds small nil-safe pointer helpers used for optional
// request fields (PATCH bodies send only the fields being changed).
package utils

func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}

func Ptr[T any](v T) *T {
	return &v
}
