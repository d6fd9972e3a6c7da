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
	"unicode/utf8"

	"merkledb.io/pkg/merr"
)

// StringLexicoder encodes strings in a fixed character set. UTF-8's byte
// encoding preserves code-point order, which is what makes it safe to use
// here unmodified; "ascii" is accepted as a stricter charset that rejects
// any non-ASCII rune.
type StringLexicoder struct {
	Charset string // "utf-8" (default) or "ascii"
}

func (c StringLexicoder) charset() string {
	if c.Charset == "" {
		return "utf-8"
	}
	return c.Charset
}

func (c StringLexicoder) Encode(v any) ([]byte, error) {
	s, ok := v.(string)
	if !ok {
		return nil, merr.InvalidArgumentf("string lexicoder: value %T is not a string", v)
	}
	if s == "" {
		return nil, merr.InvalidArgumentf("string lexicoder: empty strings are not allowed")
	}
	switch c.charset() {
	case "utf-8":
		if !utf8.ValidString(s) {
			return nil, merr.InvalidArgumentf("string lexicoder: %q is not valid utf-8", s)
		}
	case "ascii":
		for _, r := range s {
			if r > 127 {
				return nil, merr.InvalidArgumentf("string lexicoder: %q contains a non-ascii rune", s)
			}
		}
	default:
		return nil, merr.InvalidArgumentf("string lexicoder: unknown charset %q", c.Charset)
	}
	return []byte(s), nil
}

func (c StringLexicoder) Decode(b []byte) (any, error) {
	if len(b) == 0 {
		return nil, merr.InvalidArgumentf("string lexicoder: empty encoding")
	}
	return string(b), nil
}
