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

import (
	"math"

	"merkledb.io/pkg/merr"
)

// FloatLexicoder encodes binary64 floats so that byte order matches numeric
// order: negative values have all bits inverted, non-negative values
// have their sign bit flipped, so that (as unsigned big-endian integers)
// every negative encoding sorts before every non-negative one and each
// group sorts internally in numeric order. NaN is rejected.
type FloatLexicoder struct{}

func (FloatLexicoder) Encode(v any) ([]byte, error) {
	f, ok := asFloat64(v)
	if !ok {
		return nil, merr.InvalidArgumentf("float lexicoder: value %T is not a float", v)
	}
	if math.IsNaN(f) {
		return nil, merr.InvalidArgumentf("float lexicoder: NaN is not allowed")
	}
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	out := make([]byte, 8)
	putBigEndian(out, bits)
	return out, nil
}

func (FloatLexicoder) Decode(b []byte) (any, error) {
	if len(b) != 8 {
		return nil, merr.InvalidArgumentf("float lexicoder: encoding must be 8 bytes, got %d", len(b))
	}
	bits := getBigEndian(b)
	if bits&(1<<63) != 0 {
		bits &^= 1 << 63
	} else {
		bits = ^bits
	}
	return math.Float64frombits(bits), nil
}

func asFloat64(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case float32:
		return float64(f), true
	default:
		return 0, false
	}
}
