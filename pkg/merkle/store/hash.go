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

// Package store defines the external collaborators the data-tree engine
// depends on but does not implement: the content-addressed block store,
// the serialization codec, and the reference tracker. Hash and Link are
// built directly on multiformats/go-multihash and ipfs/go-cid rather than
// a hand-rolled digest type.
package store

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Hash identifies a block by the content address of its encoded payload.
// It is a value type: equality, map keys and the == operator all work as
// expected.
type Hash struct {
	c cid.Cid
}

// Sum hashes data (the codec-encoded bytes of a Payload) into a Hash. It
// panics only if the underlying hashing primitive itself fails, which
// cannot happen for the fixed SHA2-256 algorithm used here.
func Sum(data []byte) Hash {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		panic(fmt.Sprintf("store: hashing payload: %v", err))
	}
	return Hash{c: cid.NewCidV1(cid.Raw, mh)}
}

// Valid reports whether h was constructed through Sum or Parse, as opposed
// to being the zero value.
func (h Hash) Valid() bool {
	return h.c.Defined()
}

// CID returns the underlying content identifier.
func (h Hash) CID() cid.Cid {
	return h.c
}

// String returns the canonical textual form of h, suitable for debug
// output.
func (h Hash) String() string {
	if !h.Valid() {
		return "<invalid-hash>"
	}
	return h.c.String()
}

// Bytes returns the binary form of h, suitable for persisting as a link
// target.
func (h Hash) Bytes() []byte {
	return h.c.Bytes()
}

// Parse parses the textual form produced by String.
func Parse(s string) (Hash, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return Hash{}, fmt.Errorf("store: parsing hash %q: %w", s, err)
	}
	return Hash{c: c}, nil
}

// Equal reports whether h and other identify the same content.
func (h Hash) Equal(other Hash) bool {
	return h.c.Equals(other.c)
}

// MarshalJSON encodes h as its canonical string form, so Payloads holding
// Links can round-trip through internal/merkletest's JSONCodec.
func (h Hash) MarshalJSON() ([]byte, error) {
	if !h.Valid() {
		return []byte(`""`), nil
	}
	return []byte(`"` + h.c.String() + `"`), nil
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (h *Hash) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 {
		return fmt.Errorf("store: invalid hash JSON %q", s)
	}
	s = s[1 : len(s)-1]
	if s == "" {
		*h = Hash{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
