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

package store

import "testing"

func TestSumIsDeterministicAndContentAddressed(t *testing.T) {
	h1 := Sum([]byte("hello"))
	h2 := Sum([]byte("hello"))
	h3 := Sum([]byte("world"))
	if !h1.Equal(h2) {
		t.Fatalf("Sum of identical data produced different hashes")
	}
	if h1.Equal(h3) {
		t.Fatalf("Sum of different data produced equal hashes")
	}
	if !h1.Valid() {
		t.Fatalf("Sum result should be Valid")
	}
}

func TestZeroHashIsInvalid(t *testing.T) {
	var h Hash
	if h.Valid() {
		t.Fatalf("zero Hash should not be Valid")
	}
	if h.String() != "<invalid-hash>" {
		t.Errorf("String() on zero Hash = %q", h.String())
	}
}

func TestParseRoundTrip(t *testing.T) {
	h := Sum([]byte("round trip me"))
	s := h.String()
	got, err := Parse(s)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !got.Equal(h) {
		t.Fatalf("Parse(String()) did not reproduce the original hash")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	h := Sum([]byte("json me"))
	b, err := h.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var got Hash
	if err := got.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if !got.Equal(h) {
		t.Fatalf("JSON round trip mismatch")
	}

	var zero Hash
	b, err = zero.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON(zero): %v", err)
	}
	var got2 Hash
	if err := got2.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON(zero): %v", err)
	}
	if got2.Valid() {
		t.Fatalf("round-tripped zero Hash should remain invalid")
	}
}
