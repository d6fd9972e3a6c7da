/*
Copyright 2013 The Camlistore Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package merr defines the error taxonomy shared across the data-tree
// engine packages. Every exported constructor returns a *merr.Error whose
// Kind can be checked with Is(err, k), or with errors.Is against a bare
// &Error{Kind: k} probe.
package merr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for programmatic handling by callers, per the
// error taxonomy each engine package surfaces.
type Kind int

const (
	_ Kind = iota
	// InvalidArgument means the caller passed a malformed request: bad
	// lexicoder config, empty bytes where not allowed, tuple arity
	// mismatch, or both a record- and field-merger supplied.
	InvalidArgument
	// InvariantViolation means two pieces of data the caller handed the
	// engine don't fit together: overlapping tablet/partition join,
	// out-of-range split, or an unrecognized node type encountered
	// during traversal.
	InvariantViolation
	// MissingNode means a child link could not be resolved in the block
	// store. Fatal when encountered on a write path.
	MissingNode
	// NameConflict means a database or table name already exists at
	// creation, or a rename target already exists.
	NameConflict
	// NoSuchTable means an operation targeted a table that does not
	// exist.
	NoSuchTable
	// SpecViolation means a node about to be written fails the
	// structural invariants (child-count bounds, sortedness, aggregate
	// mismatch) it is required to hold.
	SpecViolation
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid-argument"
	case InvariantViolation:
		return "invariant-violation"
	case MissingNode:
		return "missing-node"
	case NameConflict:
		return "name-conflict"
	case NoSuchTable:
		return "no-such-table"
	case SpecViolation:
		return "spec-violation"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned across package boundaries in
// this module. It is never used for ordinary, expected control flow inside
// a single package.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // optional wrapped cause
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two *Error values by Kind alone when the target
// is a bare Kind probe, and by Kind and message otherwise.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Err == nil && t.Msg == "" {
		// A bare Kind probe, e.g. &Error{Kind: InvalidArgument}.
		return e.Kind == t.Kind
	}
	return e.Kind == t.Kind && e.Msg == t.Msg
}

func newf(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func wrapf(k Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Err: err}
}

// InvalidArgumentf builds an InvalidArgument error.
func InvalidArgumentf(format string, args ...interface{}) *Error {
	return newf(InvalidArgument, format, args...)
}

// InvariantViolationf builds an InvariantViolation error.
func InvariantViolationf(format string, args ...interface{}) *Error {
	return newf(InvariantViolation, format, args...)
}

// MissingNodef builds a MissingNode error, annotated with the parent id
// and target hash.
func MissingNodef(format string, args ...interface{}) *Error {
	return newf(MissingNode, format, args...)
}

// WrapMissingNode wraps a lower-level lookup error (e.g. from a Store) as a
// MissingNode error annotated with the parent/target context.
func WrapMissingNode(err error, format string, args ...interface{}) *Error {
	return wrapf(MissingNode, err, format, args...)
}

// NameConflictf builds a NameConflict error.
func NameConflictf(format string, args ...interface{}) *Error {
	return newf(NameConflict, format, args...)
}

// NoSuchTablef builds a NoSuchTable error.
func NoSuchTablef(format string, args ...interface{}) *Error {
	return newf(NoSuchTable, format, args...)
}

// SpecViolationf builds a SpecViolation error.
func SpecViolationf(format string, args ...interface{}) *Error {
	return newf(SpecViolation, format, args...)
}

// Is reports whether err or anything it wraps is a *merr.Error of the
// given kind. It is the normal way callers check the taxonomy, e.g.
// merr.Is(err, merr.MissingNode).
func Is(err error, k Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == k
}
