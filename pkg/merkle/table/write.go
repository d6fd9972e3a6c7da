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

package table

import (
	"context"

	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/merge"
	"merkledb.io/pkg/merkle/patch"
	"merkledb.io/pkg/merkle/store"
	"merkledb.io/pkg/merkle/update"
)

// Insert buffers upserts into pending. Every Insert replaces the table's
// merger with the one opts.Record/Field/Fields resolves to (the default
// merger when none is set); future flushes apply it when reconciling all
// buffered writes against whatever is already on disk.
func (t *Table) Insert(records []Record, opts InsertOptions) error {
	merger, err := merge.Resolve(opts.Options)
	if err != nil {
		return err
	}
	t.merger = merger
	for _, r := range records {
		k, err := t.keyOf(r.Fields)
		if err != nil {
			return err
		}
		t.pending.Put(patch.Change{Key: k, Record: r.Fields})
	}
	if len(records) > 0 {
		t.dirty = true
	}
	return nil
}

// Delete buffers tombstones for ids into pending.
func (t *Table) Delete(ids []any) error {
	for _, id := range ids {
		k, err := t.encodeID(id)
		if err != nil {
			return err
		}
		t.pending.Put(patch.Change{Key: k, Tombstone: true})
	}
	if len(ids) > 0 {
		t.dirty = true
	}
	return nil
}

// Flush reconciles the accumulated changes and returns the resulting
// table value. t itself is left untouched; callers that want the flushed
// value must use the return value, matching "writes produce a new table
// value sharing almost all structure with the previous one."
func (t *Table) Flush(ctx context.Context, opts FlushOptions) (*Table, error) {
	if !t.dirty {
		return t, nil
	}

	var changeSet []patch.Change
	if t.root.Patch != nil {
		tablet, err := patch.Get(ctx, t.store, t.root.Patch.Target)
		if err != nil {
			return nil, err
		}
		changeSet = append(changeSet, tablet.ReadAll()...)
	}
	changeSet = append(changeSet, t.pending.Changes()...)
	merged := patch.New(changeSet)
	changes := merged.ReadAll()

	next := &Table{
		root:    t.root,
		pending: make(patch.Pending),
		merger:  t.merger,
		store:   t.store,
		codec:   t.codec,
	}

	switch {
	case len(changes) == 0:
		next.root.Patch = nil

	case len(changes) > t.root.PatchLimit || opts.ApplyPatch:
		height, _, err := treeMeta(ctx, t.store, t.root.Data)
		if err != nil {
			return nil, err
		}
		cfg := update.Config{
			FanOut:         t.root.FanOut,
			PartitionLimit: t.root.PartitionLimit,
			Families:       t.root.Families,
		}
		result, err := update.Apply(ctx, t.store, t.root.Data, height, changes, cfg, t.merger)
		if err != nil {
			return nil, err
		}
		next.root.Data = result.Link
		next.root.Patch = nil
		next.root.Count = result.Count

	default:
		h, err := patch.Put(ctx, t.store, merged)
		if err != nil {
			return nil, err
		}
		link := store.Link{Name: "patch", Target: h, Size: int64(len(changes))}
		next.root.Patch = &link

		// The data tree itself is untouched, but the logical count
		// still needs the net new-vs-overwrite-vs-delete delta
		// folded in, computed against the tree's own authoritative
		// count rather than accumulated onto t.root.Count, so repeated
		// patch-only flushes never compound drift.
		_, baseCount, err := treeMeta(ctx, t.store, t.root.Data)
		if err != nil {
			return nil, err
		}
		keys := make([]key.Key, len(changes))
		for i, c := range changes {
			keys[i] = c.Key
		}
		existing, err := t.treeReadBatch(ctx, nil, keys)
		if err != nil {
			return nil, err
		}
		exists := make(map[string]bool, len(existing))
		for _, r := range existing {
			exists[string(r.Key)] = true
		}
		count := baseCount
		for _, c := range changes {
			switch {
			case c.Tombstone && exists[string(c.Key)]:
				count--
			case !c.Tombstone && !exists[string(c.Key)]:
				count++
			}
		}
		next.root.Count = count
	}

	next.dirty = false
	return next, nil
}
