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

package tablet

import (
	"context"
	"encoding/hex"

	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merr"
	"merkledb.io/pkg/merkle/store"
)

// TypeTag is the persisted node type tag for a tablet block.
const TypeTag = "tablet"

// ToPayload serializes t for storage. Keys are hex-encoded since a
// Payload's Data travels through a generic map[string]any codec that
// cannot be trusted to round-trip raw []byte values losslessly (e.g. the
// JSON codec in internal/merkletest writes a []byte as a base64 string
// and, decoding into an any, reads it back as that string).
func (t *Tablet) ToPayload() store.Payload {
	records := make([]any, 0, t.Len())
	for _, e := range t.ReadAll() {
		records = append(records, map[string]any{
			"key":    hex.EncodeToString(e.Key),
			"fields": e.Fields,
		})
	}
	return store.Payload{TypeTag: TypeTag, Data: map[string]any{"records": records}}
}

// FromPayload is the inverse of ToPayload.
func FromPayload(p store.Payload) (*Tablet, error) {
	if p.TypeTag != TypeTag {
		return nil, merr.SpecViolationf("tablet: expected type tag %q, got %q", TypeTag, p.TypeTag)
	}
	raw, _ := p.Data["records"].([]any)
	entries := make([]Entry, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, merr.SpecViolationf("tablet: malformed record entry %T", r)
		}
		keyHex, _ := m["key"].(string)
		kb, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, merr.SpecViolationf("tablet: malformed key hex %q: %v", keyHex, err)
		}
		fields, _ := m["fields"].(map[string]any)
		entries = append(entries, Entry{Key: key.Key(kb), Fields: fields})
	}
	return New(entries), nil
}

// Put stores t and returns its Hash.
func Put(ctx context.Context, st store.Store, t *Tablet) (store.Hash, error) {
	return st.Put(ctx, t.ToPayload())
}

// Get loads the tablet at h.
func Get(ctx context.Context, st store.Store, h store.Hash) (*Tablet, error) {
	p, err := st.Get(ctx, h)
	if err != nil {
		return nil, merr.WrapMissingNode(err, "tablet: loading %s", h)
	}
	return FromPayload(p)
}
