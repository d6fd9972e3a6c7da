/*
Copyright 2011 Google Inc.

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

// ParseConfig parses the tagged lexicoder configuration form:
//
//	simple:        "bytes" | "string" | "integer" | "float" | "instant"
//	parameterized: ["string", charset] | ["seq", inner] |
//	               ["tuple", t1, t2, ...] | ["reverse", inner]
//
// Composites recurse. Unknown tags are rejected at parse time: the result
// is a closed set of coder types, not a mutable registry keyed by tag.
func ParseConfig(v any) (Lexicoder, error) {
	switch cfg := v.(type) {
	case string:
		return parseSimple(cfg)
	case []any:
		return parseParameterized(cfg)
	default:
		return nil, merr.InvalidArgumentf("lexicoder config: unsupported shape %T", v)
	}
}

func parseSimple(tag string) (Lexicoder, error) {
	switch tag {
	case "bytes":
		return BytesLexicoder{}, nil
	case "string":
		return StringLexicoder{}, nil
	case "integer":
		return IntegerLexicoder{}, nil
	case "float":
		return FloatLexicoder{}, nil
	case "instant":
		return InstantLexicoder{}, nil
	default:
		return nil, merr.InvalidArgumentf("lexicoder config: unknown tag %q", tag)
	}
}

func parseParameterized(cfg []any) (Lexicoder, error) {
	if len(cfg) == 0 {
		return nil, merr.InvalidArgumentf("lexicoder config: empty parameterized form")
	}
	tag, ok := cfg[0].(string)
	if !ok {
		return nil, merr.InvalidArgumentf("lexicoder config: tag must be a string, got %T", cfg[0])
	}
	switch tag {
	case "string":
		if len(cfg) != 2 {
			return nil, merr.InvalidArgumentf("lexicoder config: [string, charset] takes exactly one parameter")
		}
		charset, ok := cfg[1].(string)
		if !ok {
			return nil, merr.InvalidArgumentf("lexicoder config: charset must be a string, got %T", cfg[1])
		}
		return StringLexicoder{Charset: charset}, nil
	case "seq":
		if len(cfg) != 2 {
			return nil, merr.InvalidArgumentf("lexicoder config: [seq, inner] takes exactly one parameter")
		}
		inner, err := ParseConfig(cfg[1])
		if err != nil {
			return nil, err
		}
		return SeqLexicoder{Elem: inner}, nil
	case "tuple":
		if len(cfg) < 2 {
			return nil, merr.InvalidArgumentf("lexicoder config: [tuple, t1, t2, ...] takes at least one parameter")
		}
		elems := make([]Lexicoder, len(cfg)-1)
		for i, sub := range cfg[1:] {
			c, err := ParseConfig(sub)
			if err != nil {
				return nil, err
			}
			elems[i] = c
		}
		return TupleLexicoder{Elems: elems}, nil
	case "reverse":
		if len(cfg) != 2 {
			return nil, merr.InvalidArgumentf("lexicoder config: [reverse, inner] takes exactly one parameter")
		}
		inner, err := ParseConfig(cfg[1])
		if err != nil {
			return nil, err
		}
		return ReverseLexicoder{Inner: inner}, nil
	default:
		return nil, merr.InvalidArgumentf("lexicoder config: unknown parameterized tag %q", tag)
	}
}
