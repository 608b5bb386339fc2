// Package cause reifies why a computation did not produce a value.
//
// A Cause is a closed sum: a typed failure, a defect (recovered panic), an
// interruption, or a sequential / parallel composition of causes. Every
// Cause is an error, so it travels through ordinary Go error returns and can
// be recovered losslessly with FromError.
package cause

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Cause is implemented only by the types of this package.
type Cause interface {
	error
	sealedCause()
}

// Fail is an expected, typed failure.
type Fail struct {
	Err error
}

func (c Fail) Error() string { return c.Err.Error() }
func (c Fail) Unwrap() error { return c.Err }
func (Fail) sealedCause()    {}

// Die is a defect: a panic recovered while running a computation.
type Die struct {
	Value any
	Stack []byte
}

func (c Die) Error() string { return fmt.Sprintf("panic: %v", c.Value) }

// Unwrap exposes the panic value when it is an error.
func (c Die) Unwrap() error {
	if err, ok := c.Value.(error); ok {
		return err
	}
	return nil
}
func (Die) sealedCause() {}

// Interrupt records that a fiber was interrupted.
type Interrupt struct {
	FiberID uuid.UUID
}

func (c Interrupt) Error() string {
	if c.FiberID == uuid.Nil {
		return "interrupted"
	}
	return "interrupted: fiber " + c.FiberID.String()
}

// Is makes errors.Is(c, context.Canceled) hold for interruptions.
func (Interrupt) Is(target error) bool { return target == context.Canceled }
func (Interrupt) sealedCause()         {}

// Then is Left followed by Right, e.g. a failure and then a failing finalizer.
type Then struct {
	Left, Right Cause
}

func (c Then) Error() string   { return c.Left.Error() + "; then " + c.Right.Error() }
func (c Then) Unwrap() []error { return []error{c.Left, c.Right} }
func (Then) sealedCause()      {}

// Both is Left and Right happening concurrently.
type Both struct {
	Left, Right Cause
}

func (c Both) Error() string   { return multierr.Combine(c.Left, c.Right).Error() }
func (c Both) Unwrap() []error { return []error{c.Left, c.Right} }
func (Both) sealedCause()      {}

// FromError converts err into a Cause. Causes pass through unchanged,
// context.Canceled becomes an Interrupt, anything else becomes a Fail.
// FromError(nil) is nil.
func FromError(err error) Cause {
	if err == nil {
		return nil
	}
	if c, ok := err.(Cause); ok {
		return c
	}
	if errors.Is(err, context.Canceled) {
		return Interrupt{}
	}
	return Fail{Err: err}
}

// InterruptedBy returns the interruption cause of a fiber.
func InterruptedBy(id uuid.UUID) Cause {
	return Interrupt{FiberID: id}
}

// FromPanic builds a Die from a recovered value, capturing the current stack.
func FromPanic(r any) Cause {
	return Die{Value: r, Stack: debug.Stack()}
}

// Catch runs f, returning a panic in f as a Die.
func Catch[A any](f func() (A, error)) (a A, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = FromPanic(r)
		}
	}()
	return f()
}

// Sequential composes two causes; nil operands are dropped.
func Sequential(left, right Cause) Cause {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	default:
		return Then{Left: left, Right: right}
	}
}

// Parallel composes two concurrent causes; nil operands are dropped.
func Parallel(left, right Cause) Cause {
	switch {
	case left == nil:
		return right
	case right == nil:
		return left
	default:
		return Both{Left: left, Right: right}
	}
}

// Leaves flattens c into its Fail, Die and Interrupt components, left to right.
func Leaves(c Cause) []Cause {
	var out []Cause
	var walk func(Cause)
	walk = func(c Cause) {
		switch c := c.(type) {
		case nil:
		case Then:
			walk(c.Left)
			walk(c.Right)
		case Both:
			walk(c.Left)
			walk(c.Right)
		default:
			out = append(out, c)
		}
	}
	walk(c)
	return out
}

// Failures returns the typed failures contained in c.
func Failures(c Cause) []error {
	var out []error
	for _, leaf := range Leaves(c) {
		if f, ok := leaf.(Fail); ok {
			out = append(out, f.Err)
		}
	}
	return out
}

// Interrupted reports whether c contains an interruption.
func Interrupted(c Cause) bool {
	for _, leaf := range Leaves(c) {
		if _, ok := leaf.(Interrupt); ok {
			return true
		}
	}
	return false
}

// IsInterruptedOnly reports whether every component of c is an interruption.
// Siblings cancelled because someone else failed have such causes.
func IsInterruptedOnly(c Cause) bool {
	leaves := Leaves(c)
	if len(leaves) == 0 {
		return false
	}
	for _, leaf := range leaves {
		if _, ok := leaf.(Interrupt); !ok {
			return false
		}
	}
	return true
}

// Squash picks the most relevant error of c: the first typed failure, else
// the first defect, else the interruption.
func Squash(c Cause) error {
	if c == nil {
		return nil
	}
	if fs := Failures(c); len(fs) > 0 {
		return fs[0]
	}
	leaves := Leaves(c)
	for _, leaf := range leaves {
		if _, ok := leaf.(Die); ok {
			return leaf
		}
	}
	return leaves[0]
}
