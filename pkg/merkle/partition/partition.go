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

// Package partition implements the leaf of the data tree: a metadata
// block plus a base tablet holding every key in the partition and
// optional per-family tablets.
package partition

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"merkledb.io/pkg/bloom"
	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/family"
	"merkledb.io/pkg/merkle/store"
	"merkledb.io/pkg/merkle/tablet"
	"merkledb.io/pkg/merr"
)

// Record is one logical (key, full field-map) pair as seen by callers
// above the partition layer.
type Record struct {
	Key    key.Key
	Fields map[string]any
}

// Params carries the table-level configuration a partition needs to
// rebuild itself: the family layout and the partition-limit p.
type Params struct {
	Families family.Spec
	Limit    int
	// BloomRate is the target false-positive rate for the membership
	// filter; zero selects bloom.NewWithRate's 1% default.
	BloomRate float64
}

// Partition is the leaf block of the tree.
type Partition struct {
	Count    int64
	FirstKey key.Key
	LastKey  key.Key
	Filter   *bloom.Filter
	Tablets  map[string]store.Link // family name ("base" included) -> tablet link
	Limit    int
}

// FromRecords groups records by family (base receives every key with the
// residual map; non-base tablets contain only their own fields and drop
// keys whose residual there is empty), writes each tablet, builds the
// membership filter over every key, and returns the partition block.
func FromRecords(ctx context.Context, st store.Store, p Params, records []Record) (*Partition, error) {
	if len(records) == 0 {
		return nil, nil
	}
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key.Less(sorted[j].Key) })

	baseEntries := make([]tablet.Entry, 0, len(sorted))
	famEntries := make(map[string][]tablet.Entry, len(p.Families))
	for _, fam := range p.Families.Families() {
		famEntries[fam] = nil
	}
	filter := bloom.NewWithRate(len(sorted), p.BloomRate)
	for _, r := range sorted {
		filter.Insert(r.Key)
		baseEntries = append(baseEntries, tablet.Entry{Key: r.Key, Fields: p.Families.Select(family.Base, r.Fields)})
		for _, fam := range p.Families.Families() {
			sub := p.Families.Select(fam, r.Fields)
			if len(sub) == 0 {
				continue
			}
			famEntries[fam] = append(famEntries[fam], tablet.Entry{Key: r.Key, Fields: sub})
		}
	}

	links := make(map[string]store.Link, len(famEntries)+1)
	// Every family tablet (base included) is written independently of the
	// others, so the Puts run concurrently under an errgroup.Group rather
	// than serially.
	var mu sync.Mutex
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		h, err := tablet.Put(gctx, st, tablet.New(baseEntries))
		if err != nil {
			return err
		}
		mu.Lock()
		links[family.Base] = store.Link{Name: family.Base, Target: h, Size: int64(len(baseEntries))}
		mu.Unlock()
		return nil
	})
	for fam, entries := range famEntries {
		if len(entries) == 0 {
			continue
		}
		fam, entries := fam, entries
		grp.Go(func() error {
			h, err := tablet.Put(gctx, st, tablet.New(entries))
			if err != nil {
				return err
			}
			mu.Lock()
			links[fam] = store.Link{Name: fam, Target: h, Size: int64(len(entries))}
			mu.Unlock()
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return &Partition{
		Count:    int64(len(sorted)),
		FirstKey: sorted[0].Key,
		LastKey:  sorted[len(sorted)-1].Key,
		Filter:   filter,
		Tablets:  links,
		Limit:    p.Limit,
	}, nil
}

func (part *Partition) loadFamily(ctx context.Context, st store.Store, fam string) (*tablet.Tablet, error) {
	link, ok := part.Tablets[fam]
	if !ok {
		return nil, nil
	}
	return tablet.Get(ctx, st, link.Target)
}

// tabletsToLoad returns the family names whose tablets must be read to
// satisfy a projection onto fields (nil/empty means every field).
func tabletsToLoad(families family.Spec, fields map[string]bool) []string {
	if len(fields) == 0 {
		all := append([]string{family.Base}, families.Families()...)
		return all
	}
	fams := make(map[string]bool)
	for f := range fields {
		fams[families.FamilyOf(f)] = true
	}
	if !families.FamiliesCovering(fields) {
		fams[family.Base] = true
	}
	out := make([]string, 0, len(fams))
	for f := range fams {
		out = append(out, f)
	}
	return out
}

func project(fields map[string]bool, m map[string]any) map[string]any {
	if len(fields) == 0 {
		return m
	}
	out := make(map[string]any, len(fields))
	for f := range fields {
		if v, ok := m[f]; ok {
			out[f] = v
		}
	}
	return out
}

// mergeRecords merges the selected tablets' entries by key, last tablet
// loaded wins per field — used because only base guarantees full key
// coverage and callers pass fields split across disjoint families, so in
// practice no field ever comes from two tablets for the same key.
func mergeRecords(tablets map[string][]tablet.Entry, order []string) []Record {
	byKey := make(map[string]map[string]any)
	keys := make([]key.Key, 0)
	for _, fam := range order {
		for _, e := range tablets[fam] {
			ks := string(e.Key)
			m, ok := byKey[ks]
			if !ok {
				m = make(map[string]any)
				byKey[ks] = m
				keys = append(keys, e.Key)
			}
			for k, v := range e.Fields {
				m[k] = v
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, Record{Key: k, Fields: byKey[string(k)]})
	}
	return out
}

// ReadAll selects tablets for fields, merges their entries by key and
// projects to fields.
func (part *Partition) ReadAll(ctx context.Context, st store.Store, families family.Spec, fields map[string]bool) ([]Record, error) {
	fams := tabletsToLoad(families, fields)
	loaded := make(map[string][]tablet.Entry, len(fams))
	for _, fam := range fams {
		t, err := part.loadFamily(ctx, st, fam)
		if err != nil {
			return nil, err
		}
		loaded[fam] = t.ReadAll()
	}
	records := mergeRecords(loaded, fams)
	for i := range records {
		records[i].Fields = project(fields, records[i].Fields)
	}
	return records, nil
}

// ReadBatch consults the membership filter to short-circuit definite
// misses, then reads the chosen tablets restricted to keys and merges.
func (part *Partition) ReadBatch(ctx context.Context, st store.Store, families family.Spec, fields map[string]bool, keys []key.Key) ([]Record, error) {
	var candidates []key.Key
	for _, k := range keys {
		if part.Filter == nil || part.Filter.Contains(k) {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	fams := tabletsToLoad(families, fields)
	loaded := make(map[string][]tablet.Entry, len(fams))
	for _, fam := range fams {
		t, err := part.loadFamily(ctx, st, fam)
		if err != nil {
			return nil, err
		}
		loaded[fam] = t.ReadBatch(candidates)
	}
	records := mergeRecords(loaded, fams)
	for i := range records {
		records[i].Fields = project(fields, records[i].Fields)
	}
	return records, nil
}

// ReadRange is ReadAll bounded by [min, max].
func (part *Partition) ReadRange(ctx context.Context, st store.Store, families family.Spec, fields map[string]bool, min, max key.Key) ([]Record, error) {
	fams := tabletsToLoad(families, fields)
	loaded := make(map[string][]tablet.Entry, len(fams))
	for _, fam := range fams {
		t, err := part.loadFamily(ctx, st, fam)
		if err != nil {
			return nil, err
		}
		loaded[fam] = t.ReadRange(min, max)
	}
	records := mergeRecords(loaded, fams)
	for i := range records {
		records[i].Fields = project(fields, records[i].Fields)
	}
	return records, nil
}

// Update applies additions and deletions to every affected family tablet,
// writes new tablets and recomputes metadata. It returns nil if the
// partition becomes empty.
func (part *Partition) Update(ctx context.Context, st store.Store, p Params, additions []Record, deletions []key.Key) (*Partition, error) {
	existing, err := part.ReadAll(ctx, st, p.Families, nil)
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]map[string]any, len(existing)+len(additions))
	order := make([]key.Key, 0, len(existing)+len(additions))
	for _, r := range existing {
		ks := string(r.Key)
		if _, ok := byKey[ks]; !ok {
			order = append(order, r.Key)
		}
		byKey[ks] = r.Fields
	}
	for _, r := range additions {
		ks := string(r.Key)
		if _, ok := byKey[ks]; !ok {
			order = append(order, r.Key)
		}
		byKey[ks] = r.Fields
	}
	del := make(map[string]bool, len(deletions))
	for _, k := range deletions {
		del[string(k)] = true
	}
	records := make([]Record, 0, len(order))
	for _, k := range order {
		if del[string(k)] {
			continue
		}
		records = append(records, Record{Key: k, Fields: byKey[string(k)]})
	}
	if len(records) == 0 {
		return nil, nil
	}
	return FromRecords(ctx, st, p, records)
}

// Split divides the partition at splitKey: every key < splitKey goes
// left. Both halves re-derive their metadata from scratch.
func (part *Partition) Split(ctx context.Context, st store.Store, p Params, splitKey key.Key) (left, right *Partition, err error) {
	all, err := part.ReadAll(ctx, st, p.Families, nil)
	if err != nil {
		return nil, nil, err
	}
	var leftRecords, rightRecords []Record
	for _, r := range all {
		if r.Key.Less(splitKey) {
			leftRecords = append(leftRecords, r)
		} else {
			rightRecords = append(rightRecords, r)
		}
	}
	if len(leftRecords) == 0 || len(rightRecords) == 0 {
		return nil, nil, merr.InvariantViolationf("partition: split key %x out of range [%x,%x]", splitKey, part.FirstKey, part.LastKey)
	}
	left, err = FromRecords(ctx, st, p, leftRecords)
	if err != nil {
		return nil, nil, err
	}
	right, err = FromRecords(ctx, st, p, rightRecords)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}
