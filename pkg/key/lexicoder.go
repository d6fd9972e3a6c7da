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

package key

import "merkledb.io/pkg/merr"

// Lexicoder produces an order-preserving byte encoding for values of one
// type: for any lexicoder c and values a, b, bytes.Compare(c.Encode(a),
// c.Encode(b)) must have the same sign as the domain order of a and b, and
// Decode(Encode(v)) must equal v.
type Lexicoder interface {
	Encode(v any) ([]byte, error)
	Decode(b []byte) (any, error)
}

// BytesLexicoder is the identity coder: bytes encode as themselves. Empty
// byte slices are rejected.
type BytesLexicoder struct{}

func (BytesLexicoder) Encode(v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, merr.InvalidArgumentf("bytes lexicoder: value %T is not []byte", v)
	}
	if len(b) == 0 {
		return nil, merr.InvalidArgumentf("bytes lexicoder: empty bytes are not allowed")
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (BytesLexicoder) Decode(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, merr.InvalidArgumentf("bytes lexicoder: empty encoding")
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
