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

// Package tablet implements the leaf serialization unit of a partition: a
// sorted vector of (key, field-map) entries for one field family. A
// tablet never links to any further node; it is the bottom of the
// content-addressed graph.
package tablet

import (
	"sort"

	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merr"
)

// Entry is one (key, field-map) record within a tablet.
type Entry struct {
	Key    key.Key
	Fields map[string]any
}

func (e Entry) clone() Entry {
	fields := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		fields[k] = v
	}
	return Entry{Key: e.Key.Clone(), Fields: fields}
}

// Tablet is an immutable, strictly key-sorted sequence of entries.
type Tablet struct {
	entries []Entry
}

// New builds a Tablet from entries, sorting a defensive copy by key. It
// does not deduplicate: callers (pkg/merkle/partition) are responsible for
// passing already-deduplicated entries.
func New(entries []Entry) *Tablet {
	cp := make([]Entry, len(entries))
	for i, e := range entries {
		cp[i] = e.clone()
	}
	sort.Slice(cp, func(i, j int) bool { return cp[i].Key.Less(cp[j].Key) })
	return &Tablet{entries: cp}
}

// Len returns the number of entries.
func (t *Tablet) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// FirstKey and LastKey return the boundary keys of a non-empty tablet.
func (t *Tablet) FirstKey() key.Key {
	if t.Len() == 0 {
		return nil
	}
	return t.entries[0].Key
}

func (t *Tablet) LastKey() key.Key {
	if t.Len() == 0 {
		return nil
	}
	return t.entries[len(t.entries)-1].Key
}

// ReadAll returns the full entry list, in key order.
func (t *Tablet) ReadAll() []Entry {
	if t == nil {
		return nil
	}
	return t.entries
}

func (t *Tablet) search(k key.Key) int {
	return sort.Search(len(t.entries), func(i int) bool {
		return !t.entries[i].Key.Less(k)
	})
}

// ReadBatch returns the entries whose key is in keys, in tablet order (not
// input order).
func (t *Tablet) ReadBatch(keys []key.Key) []Entry {
	if t == nil || len(keys) == 0 {
		return nil
	}
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[string(k)] = true
	}
	var out []Entry
	for _, e := range t.entries {
		if want[string(e.Key)] {
			out = append(out, e)
		}
	}
	return out
}

// ReadRange returns entries with key in [min, max] inclusive. A nil bound
// is open on that side.
func (t *Tablet) ReadRange(min, max key.Key) []Entry {
	if t == nil {
		return nil
	}
	start := 0
	if min != nil {
		start = t.search(min)
	}
	end := len(t.entries)
	if max != nil {
		end = sort.Search(len(t.entries), func(i int) bool {
			return key.Compare(t.entries[i].Key, max) > 0
		})
	}
	if start >= end {
		return nil
	}
	out := make([]Entry, end-start)
	copy(out, t.entries[start:end])
	return out
}

// Update returns a new tablet with additions merged in (overwriting any
// existing entry at the same key) and deletions removed. It returns nil
// if the result is empty.
func (t *Tablet) Update(additions []Entry, deletions []key.Key) *Tablet {
	byKey := make(map[string]Entry, t.Len()+len(additions))
	order := make([]string, 0, t.Len()+len(additions))
	for _, e := range t.ReadAll() {
		ks := string(e.Key)
		byKey[ks] = e
		order = append(order, ks)
	}
	for _, e := range additions {
		ks := string(e.Key)
		if _, existed := byKey[ks]; !existed {
			order = append(order, ks)
		}
		byKey[ks] = e
	}
	for _, k := range deletions {
		delete(byKey, string(k))
	}
	out := make([]Entry, 0, len(order))
	for _, ks := range order {
		if e, ok := byKey[ks]; ok {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return New(out)
}

// Prune drops entries with an empty field-map, used for non-base family
// tablets.
func (t *Tablet) Prune() *Tablet {
	if t.Len() == 0 {
		return nil
	}
	out := make([]Entry, 0, t.Len())
	for _, e := range t.ReadAll() {
		if len(e.Fields) > 0 {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return New(out)
}

// Join concatenates left and right, which must be strictly non-overlapping
// in key order. It fails with an invariant-violation error if
// last-key(left) >= first-key(right).
func Join(left, right *Tablet) (*Tablet, error) {
	if left.Len() == 0 {
		return right, nil
	}
	if right.Len() == 0 {
		return left, nil
	}
	if key.Compare(left.LastKey(), right.FirstKey()) >= 0 {
		return nil, merr.InvariantViolationf("tablet: join requires last-key(left) < first-key(right), got %x >= %x", left.LastKey(), right.FirstKey())
	}
	out := make([]Entry, 0, left.Len()+right.Len())
	out = append(out, left.ReadAll()...)
	out = append(out, right.ReadAll()...)
	return New(out), nil
}
