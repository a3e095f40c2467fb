// Package clock provides an injectable source of the current instant.
package clock

import "time"

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Func adapts a function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// Fixed always reports the same instant.
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}
