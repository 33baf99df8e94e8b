package util

import (
	"math"
	"time"
)

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// PtrOrNil returns nil for the zero value of T.
func PtrOrNil[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

// Round Method to round to 2 decimals
func Round(f float64) float64 {
	return math.Round(f*100) / 100
}

// Seconds converts a duration to seconds rounded to 2 decimals.
func Seconds(d time.Duration) float64 {
	return Round(d.Seconds())
}

// Percent returns part/total as a percentage rounded to 2 decimals. A zero total gives 0.
func Percent[T ~int | ~int64 | ~float64](part, total T) float64 {
	if total == 0 {
		return 0
	}
	return Round(float64(part) / float64(total) * 100)
}
