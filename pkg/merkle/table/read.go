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
	"sort"

	"merkledb.io/internal/seq"
	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/index"
	"merkledb.io/pkg/merkle/partition"
	"merkledb.io/pkg/merkle/patch"
	"merkledb.io/pkg/merkle/store"
)

// loadPatchOverlay returns the (key, change) view the patch layer
// contributes over [min, max]: patch-tablet entries first, pending
// entries second, deduplicated by patch.New so pending wins on a
// duplicate key.
func (t *Table) loadPatchOverlay(ctx context.Context, min, max key.Key) ([]patch.Change, error) {
	var fromTablet []patch.Change
	if t.root.Patch != nil {
		tab, err := patch.Get(ctx, t.store, t.root.Patch.Target)
		if err != nil {
			return nil, err
		}
		fromTablet = tab.ReadRange(min, max)
	}
	var fromPending []patch.Change
	for _, c := range t.pending.Changes() {
		if min != nil && c.Key.Less(min) {
			continue
		}
		if max != nil && key.Compare(c.Key, max) > 0 {
			continue
		}
		fromPending = append(fromPending, c)
	}
	return patch.New(append(fromTablet, fromPending...)).ReadAll(), nil
}

// treeReadRange reads [min, max] from the data tree, dispatching to the
// partition or index reader depending on the root link's height, the
// same childHeight==0 dispatch pkg/merkle/index uses one level down.
func (t *Table) treeReadRange(ctx context.Context, fields map[string]bool, min, max key.Key) ([]partition.Record, error) {
	if t.root.Data == nil {
		return nil, nil
	}
	height, err := treeHeight(ctx, t.store, t.root.Data)
	if err != nil {
		return nil, err
	}
	if height == 0 {
		p, err := partition.Get(ctx, t.store, t.root.Data.Target)
		if err != nil {
			return nil, err
		}
		return p.ReadRange(ctx, t.store, t.root.Families, fields, min, max)
	}
	node, err := index.Get(ctx, t.store, t.root.Data.Target)
	if err != nil {
		return nil, err
	}
	return node.ReadRange(ctx, t.store, t.root.Families, fields, min, max)
}

// treeReadBatch reads exactly keys from the data tree.
func (t *Table) treeReadBatch(ctx context.Context, fields map[string]bool, keys []key.Key) ([]partition.Record, error) {
	if t.root.Data == nil || len(keys) == 0 {
		return nil, nil
	}
	height, err := treeHeight(ctx, t.store, t.root.Data)
	if err != nil {
		return nil, err
	}
	if height == 0 {
		p, err := partition.Get(ctx, t.store, t.root.Data.Target)
		if err != nil {
			return nil, err
		}
		return p.ReadBatch(ctx, t.store, t.root.Families, fields, keys)
	}
	node, err := index.Get(ctx, t.store, t.root.Data.Target)
	if err != nil {
		return nil, err
	}
	return node.ReadBatch(ctx, t.store, t.root.Families, fields, keys)
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

// overlay merges the tree records for [opts.MinKey, opts.MaxKey] with the
// patch overlay covering the same range: a patch record replaces the
// tree's wholesale, a tombstone drops it, and neither merges field-by-field
// — that reconciliation happens only inside Flush's batch update.
func (t *Table) overlay(ctx context.Context, opts Options) ([]partition.Record, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	treeRecords, err := t.treeReadRange(ctx, opts.Fields, opts.MinKey, opts.MaxKey)
	if err != nil {
		return nil, err
	}
	changes, err := t.loadPatchOverlay(ctx, opts.MinKey, opts.MaxKey)
	if err != nil {
		return nil, err
	}

	byKey := make(map[string]partition.Record, len(treeRecords)+len(changes))
	order := make([]key.Key, 0, len(treeRecords)+len(changes))
	for _, r := range treeRecords {
		ks := string(r.Key)
		byKey[ks] = r
		order = append(order, r.Key)
	}
	for _, c := range changes {
		ks := string(c.Key)
		if c.Tombstone {
			delete(byKey, ks)
			continue
		}
		if _, ok := byKey[ks]; !ok {
			order = append(order, c.Key)
		}
		byKey[ks] = partition.Record{Key: c.Key, Fields: project(opts.Fields, c.Record)}
	}

	seen := make(map[string]bool, len(order))
	final := make([]partition.Record, 0, len(order))
	for _, k := range order {
		ks := string(k)
		if seen[ks] {
			continue
		}
		seen[ks] = true
		if r, ok := byKey[ks]; ok {
			final = append(final, r)
		}
	}
	sort.Slice(final, func(i, j int) bool { return final[i].Key.Less(final[j].Key) })
	return final, nil
}

// windowed applies Offset/Limit client-side over the merged result.
// Pushing the offset down into subtrees to skip reads would save I/O on
// large offsets; until that exists, the window is a plain drop/take over
// the stream.
func windowed[T any](items []T, offset, limit int) []T {
	s := seq.Slice(items)
	if offset > 0 {
		s = seq.Drop(s, offset)
	}
	if limit > 0 {
		s = seq.Take(s, limit)
	}
	out, _ := seq.Collect(s) // slice-backed Seq never errors
	return out
}

// Scan returns every record in [opts.MinKey, opts.MaxKey], patch-overlaid
// onto the data tree, projected to opts.Fields and windowed by
// opts.Offset/opts.Limit.
func (t *Table) Scan(ctx context.Context, opts Options) ([]Record, error) {
	recs, err := t.overlay(ctx, opts)
	if err != nil {
		return nil, err
	}
	recs = windowed(recs, opts.Offset, opts.Limit)
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = Record{Fields: r.Fields}
	}
	return out, nil
}

// Keys is Scan restricted to just the key column.
func (t *Table) Keys(ctx context.Context, opts Options) ([]key.Key, error) {
	recs, err := t.overlay(ctx, opts)
	if err != nil {
		return nil, err
	}
	recs = windowed(recs, opts.Offset, opts.Limit)
	out := make([]key.Key, len(recs))
	for i, r := range recs {
		out[i] = r.Key
	}
	return out, nil
}

// Read looks up exactly ids, consulting pending then the patch tablet
// then the data tree for whichever ids neither resolves. Ids not found anywhere, or found as a tombstone,
// are simply omitted from the result.
func (t *Table) Read(ctx context.Context, ids []any, opts Options) ([]Record, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	var treeKeys []key.Key
	byKey := make(map[string]partition.Record, len(ids))
	order := make([]key.Key, 0, len(ids))

	for _, id := range ids {
		k, err := t.encodeID(id)
		if err != nil {
			return nil, err
		}
		order = append(order, k)
		ks := string(k)
		if c, ok := t.pending.Lookup(k); ok {
			if !c.Tombstone {
				byKey[ks] = partition.Record{Key: k, Fields: project(opts.Fields, c.Record)}
			}
			continue
		}
		if t.root.Patch != nil {
			tab, err := patch.Get(ctx, t.store, t.root.Patch.Target)
			if err != nil {
				return nil, err
			}
			if c, ok := tab.Lookup(k); ok {
				if !c.Tombstone {
					byKey[ks] = partition.Record{Key: k, Fields: project(opts.Fields, c.Record)}
				}
				continue
			}
		}
		treeKeys = append(treeKeys, k)
	}

	treeRecords, err := t.treeReadBatch(ctx, opts.Fields, treeKeys)
	if err != nil {
		return nil, err
	}
	for _, r := range treeRecords {
		byKey[string(r.Key)] = r
	}

	out := make([]Record, 0, len(order))
	for _, k := range order {
		if r, ok := byKey[string(k)]; ok {
			out = append(out, Record{Fields: r.Fields})
		}
	}
	return out, nil
}

// ListPartitions enumerates every partition-level link reachable from
// the data tree's root, in key order.
func (t *Table) ListPartitions(ctx context.Context) ([]store.Link, error) {
	if t.root.Data == nil {
		return nil, nil
	}
	height, err := treeHeight(ctx, t.store, t.root.Data)
	if err != nil {
		return nil, err
	}
	if height == 0 {
		return []store.Link{*t.root.Data}, nil
	}
	node, err := index.Get(ctx, t.store, t.root.Data.Target)
	if err != nil {
		return nil, err
	}
	return listPartitionLinks(ctx, t.store, node)
}

func listPartitionLinks(ctx context.Context, st store.Store, node *index.Node) ([]store.Link, error) {
	if node.ChildHeight() == 0 {
		return append([]store.Link(nil), node.Children...), nil
	}
	var out []store.Link
	for i := range node.Children {
		child, err := index.Get(ctx, st, node.Children[i].Target)
		if err != nil {
			return nil, err
		}
		sub, err := listPartitionLinks(ctx, st, child)
		if err != nil {
			return nil, err
		}
		out = append(out, sub...)
	}
	return out, nil
}

// ReadPartition loads the partition at link and projects it to fields.
func (t *Table) ReadPartition(ctx context.Context, link store.Link, fields map[string]bool) ([]Record, error) {
	p, err := partition.Get(ctx, t.store, link.Target)
	if err != nil {
		return nil, err
	}
	recs, err := p.ReadAll(ctx, t.store, t.root.Families, fields)
	if err != nil {
		return nil, err
	}
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = Record{Fields: r.Fields}
	}
	return out, nil
}
