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

// Package key implements ordered keys and the order-preserving lexicoder
// family used to turn typed record values into comparable byte strings.
package key

import "bytes"

// Key is an opaque, immutable, totally ordered byte sequence. Two keys
// compare byte-by-byte unsigned; when one is a prefix of the other, the
// shorter one ranks first.
type Key []byte

// Compare returns <0, 0 or >0 the way bytes.Compare does.
func (k Key) Compare(other Key) int {
	return bytes.Compare(k, other)
}

// Less reports whether k sorts strictly before other.
func (k Key) Less(other Key) bool {
	return k.Compare(other) < 0
}

// Equal reports whether k and other are byte-identical.
func (k Key) Equal(other Key) bool {
	return bytes.Equal(k, other)
}

// Clone returns a copy of k that shares no backing array with it.
func (k Key) Clone() Key {
	if k == nil {
		return nil
	}
	out := make(Key, len(k))
	copy(out, k)
	return out
}

// Compare is a free function form of Key.Compare, handy as a cmp argument
// to internal/seq.MergeSorted and sort.Slice.
func Compare(a, b Key) int {
	return bytes.Compare(a, b)
}
