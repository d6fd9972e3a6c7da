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
	"merkledb.io/pkg/merr"
)

// escape rewrites 0x00 -> 0x01 0x01 and 0x01 -> 0x01 0x02 within an
// element's encoding, so that a raw 0x00 can be used unambiguously as the
// separator between elements of a sequence or tuple.
func escape(b []byte) []byte {
	var out []byte
	for _, c := range b {
		switch c {
		case 0x00:
			out = append(out, 0x01, 0x01)
		case 0x01:
			out = append(out, 0x01, 0x02)
		default:
			out = append(out, c)
		}
	}
	return out
}

// splitElements reverses escape and splits on unescaped 0x00 separators.
func splitElements(b []byte) ([][]byte, error) {
	var elems [][]byte
	var cur []byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c == 0x00:
			elems = append(elems, cur)
			cur = nil
		case c == 0x01:
			if i+1 >= len(b) {
				return nil, merr.InvalidArgumentf("composite lexicoder: dangling escape byte")
			}
			i++
			switch b[i] {
			case 0x01:
				cur = append(cur, 0x00)
			case 0x02:
				cur = append(cur, 0x01)
			default:
				return nil, merr.InvalidArgumentf("composite lexicoder: invalid escape sequence 0x01 0x%02x", b[i])
			}
		default:
			cur = append(cur, c)
		}
	}
	elems = append(elems, cur)
	return elems, nil
}

func joinElements(elems [][]byte) []byte {
	var out []byte
	for i, e := range elems {
		if i > 0 {
			out = append(out, 0x00)
		}
		out = append(out, escape(e)...)
	}
	return out
}

// SeqLexicoder encodes a homogeneous sequence of values of one element
// type.
type SeqLexicoder struct {
	Elem Lexicoder
}

func (c SeqLexicoder) Encode(v any) ([]byte, error) {
	vals, err := toAnySlice(v)
	if err != nil {
		return nil, merr.InvalidArgumentf("sequence lexicoder: %v", err)
	}
	elems := make([][]byte, len(vals))
	for i, e := range vals {
		b, err := c.Elem.Encode(e)
		if err != nil {
			return nil, err
		}
		elems[i] = b
	}
	return joinElements(elems), nil
}

func (c SeqLexicoder) Decode(b []byte) (any, error) {
	parts, err := splitElements(b)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		v, err := c.Elem.Decode(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// TupleLexicoder encodes a fixed-arity heterogeneous tuple.
type TupleLexicoder struct {
	Elems []Lexicoder
}

func (c TupleLexicoder) Encode(v any) ([]byte, error) {
	vals, err := toAnySlice(v)
	if err != nil {
		return nil, merr.InvalidArgumentf("tuple lexicoder: %v", err)
	}
	if len(vals) != len(c.Elems) {
		return nil, merr.InvalidArgumentf("tuple lexicoder: expected %d elements, got %d", len(c.Elems), len(vals))
	}
	elems := make([][]byte, len(vals))
	for i, e := range vals {
		b, err := c.Elems[i].Encode(e)
		if err != nil {
			return nil, err
		}
		elems[i] = b
	}
	return joinElements(elems), nil
}

func (c TupleLexicoder) Decode(b []byte) (any, error) {
	parts, err := splitElements(b)
	if err != nil {
		return nil, err
	}
	if len(parts) != len(c.Elems) {
		return nil, merr.InvalidArgumentf("tuple lexicoder: arity mismatch, expected %d elements, got %d", len(c.Elems), len(parts))
	}
	out := make([]any, len(parts))
	for i, p := range parts {
		v, err := c.Elems[i].Decode(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ReverseLexicoder inverts the inner lexicoder's encoding byte-by-byte,
// turning an ascending order into a descending one.
type ReverseLexicoder struct {
	Inner Lexicoder
}

func (c ReverseLexicoder) Encode(v any) ([]byte, error) {
	b, err := c.Inner.Encode(v)
	if err != nil {
		return nil, err
	}
	return invert(b), nil
}

func (c ReverseLexicoder) Decode(b []byte) (any, error) {
	return c.Inner.Decode(invert(b))
}

func invert(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = 255 - c
	}
	return out
}

func toAnySlice(v any) ([]any, error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case [][]byte:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	case []int64:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out, nil
	default:
		return nil, merr.InvalidArgumentf("value %T is not a supported sequence/tuple type", v)
	}
}
