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

// Package patch implements the write-amortizing overlay attached to a
// table root: an unsorted-on-write, sorted-on-flush buffer of
// (key -> record-or-tombstone) changes that a read must overlay on top of
// the data tree.
package patch

import (
	"context"
	"encoding/hex"
	"sort"

	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/store"
	"merkledb.io/pkg/merr"
)

// Change is one buffered write: either a record upsert, or a tombstone
// marking key for deletion. Tombstone is a bool flag rather than a
// sentinel map value so the zero Change can never be mistaken for a
// tombstone.
type Change struct {
	Key       key.Key
	Record    map[string]any
	Tombstone bool
}

// Tablet is the sorted, serializable form of the patch once flushed to a
// block.
type Tablet struct {
	changes []Change
}

// New builds a Tablet from changes, sorted and deduplicated by key. The
// last write for a given key, in input order, wins: the caller is
// expected to pass patch-tablet entries before pending entries so that
// pending wins on duplicates.
func New(changes []Change) *Tablet {
	byKey := make(map[string]Change, len(changes))
	order := make([]key.Key, 0, len(changes))
	for _, c := range changes {
		ks := string(c.Key)
		if _, ok := byKey[ks]; !ok {
			order = append(order, c.Key)
		}
		byKey[ks] = c
	}
	sort.Slice(order, func(i, j int) bool { return order[i].Less(order[j]) })
	out := make([]Change, len(order))
	for i, k := range order {
		out[i] = byKey[string(k)]
	}
	return &Tablet{changes: out}
}

// Len returns the number of buffered changes.
func (t *Tablet) Len() int {
	if t == nil {
		return 0
	}
	return len(t.changes)
}

// ReadAll returns every change, in key order.
func (t *Tablet) ReadAll() []Change {
	if t == nil {
		return nil
	}
	return t.changes
}

// Lookup returns the change for k, if any.
func (t *Tablet) Lookup(k key.Key) (Change, bool) {
	if t == nil {
		return Change{}, false
	}
	i := sort.Search(len(t.changes), func(i int) bool { return !t.changes[i].Key.Less(k) })
	if i < len(t.changes) && t.changes[i].Key.Equal(k) {
		return t.changes[i], true
	}
	return Change{}, false
}

// ReadRange returns the changes with key in [min, max] inclusive, a nil
// bound being open on that side.
func (t *Tablet) ReadRange(min, max key.Key) []Change {
	if t.Len() == 0 {
		return nil
	}
	start := 0
	if min != nil {
		start = sort.Search(len(t.changes), func(i int) bool { return !t.changes[i].Key.Less(min) })
	}
	end := len(t.changes)
	if max != nil {
		end = sort.Search(len(t.changes), func(i int) bool { return key.Compare(t.changes[i].Key, max) > 0 })
	}
	if start >= end {
		return nil
	}
	out := make([]Change, end-start)
	copy(out, t.changes[start:end])
	return out
}

// Pending is the in-memory map a table handle keeps between flushes: the
// portion of the patch not yet even written as a patch tablet block.
// Keyed by the hex form of the key so it is comparable as a map
// key without losing byte-for-byte fidelity.
type Pending map[string]Change

// Put records an upsert or tombstone in the pending map.
func (p Pending) Put(c Change) {
	p[hex.EncodeToString(c.Key)] = c
}

// Lookup returns the pending change for k, if any.
func (p Pending) Lookup(k key.Key) (Change, bool) {
	c, ok := p[hex.EncodeToString(k)]
	return c, ok
}

// Changes returns every pending change, unsorted.
func (p Pending) Changes() []Change {
	out := make([]Change, 0, len(p))
	for _, c := range p {
		out = append(out, c)
	}
	return out
}

// TypeTag is the persisted node type tag for a patch tablet block.
const TypeTag = "patch"

func (t *Tablet) ToPayload() store.Payload {
	changes := make([]any, 0, t.Len())
	for _, c := range t.ReadAll() {
		changes = append(changes, map[string]any{
			"key":       hex.EncodeToString(c.Key),
			"record":    c.Record,
			"tombstone": c.Tombstone,
		})
	}
	return store.Payload{TypeTag: TypeTag, Data: map[string]any{"changes": changes}}
}

func FromPayload(p store.Payload) (*Tablet, error) {
	if p.TypeTag != TypeTag {
		return nil, merr.SpecViolationf("patch: expected type tag %q, got %q", TypeTag, p.TypeTag)
	}
	raw, _ := p.Data["changes"].([]any)
	changes := make([]Change, 0, len(raw))
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, merr.SpecViolationf("patch: malformed change entry %T", r)
		}
		kb, err := hex.DecodeString(asString(m["key"]))
		if err != nil {
			return nil, merr.SpecViolationf("patch: malformed key hex: %v", err)
		}
		record, _ := m["record"].(map[string]any)
		tomb, _ := m["tombstone"].(bool)
		changes = append(changes, Change{Key: key.Key(kb), Record: record, Tombstone: tomb})
	}
	return New(changes), nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// Put stores t and returns its Hash.
func Put(ctx context.Context, st store.Store, t *Tablet) (store.Hash, error) {
	return st.Put(ctx, t.ToPayload())
}

// Get loads the patch tablet at h.
func Get(ctx context.Context, st store.Store, h store.Hash) (*Tablet, error) {
	p, err := st.Get(ctx, h)
	if err != nil {
		return nil, merr.WrapMissingNode(err, "patch: loading %s", h)
	}
	return FromPayload(p)
}
