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

package merr

import (
	"errors"
	"testing"
)

func TestKindString(t *testing.T) {
	cases := []struct {
		k    Kind
		want string
	}{
		{InvalidArgument, "invalid-argument"},
		{InvariantViolation, "invariant-violation"},
		{MissingNode, "missing-node"},
		{NameConflict, "name-conflict"},
		{NoSuchTable, "no-such-table"},
		{SpecViolation, "spec-violation"},
		{Kind(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.k.String(); got != c.want {
			t.Errorf("Kind(%d).String() = %q, want %q", c.k, got, c.want)
		}
	}
}

func TestConstructorsSetKind(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{InvalidArgumentf("bad %s", "arg"), InvalidArgument},
		{InvariantViolationf("nope"), InvariantViolation},
		{MissingNodef("gone"), MissingNode},
		{NameConflictf("dup"), NameConflict},
		{NoSuchTablef("t"), NoSuchTable},
		{SpecViolationf("broke"), SpecViolation},
	}
	for _, c := range cases {
		if !Is(c.err, c.kind) {
			t.Errorf("Is(%v, %v) = false, want true", c.err, c.kind)
		}
	}
}

func TestWrapMissingNodeUnwraps(t *testing.T) {
	cause := errors.New("not found")
	err := WrapMissingNode(cause, "loading %s", "x")
	if !Is(err, MissingNode) {
		t.Fatalf("expected MissingNode kind, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
}

func TestErrorIsMatchesBareKindProbe(t *testing.T) {
	err := InvalidArgumentf("whatever: %d", 1)
	if !errors.Is(err, &Error{Kind: InvalidArgument}) {
		t.Fatalf("expected errors.Is to match a bare Kind probe")
	}
	if errors.Is(err, &Error{Kind: MissingNode}) {
		t.Fatalf("expected errors.Is to reject a different Kind probe")
	}
}

func TestIsRejectsNonMerrError(t *testing.T) {
	if Is(errors.New("plain"), InvalidArgument) {
		t.Fatalf("Is should return false for a non-*Error")
	}
}
