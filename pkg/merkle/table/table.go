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

// Package table implements the engine's outward-facing handle: it
// coordinates reads and writes across the patch buffer and the data
// tree, and runs the flush/commit state machine over a committed
// persistent root plus an in-memory delta.
package table

import (
	"context"

	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/family"
	"merkledb.io/pkg/merkle/index"
	"merkledb.io/pkg/merkle/merge"
	"merkledb.io/pkg/merkle/partition"
	"merkledb.io/pkg/merkle/patch"
	"merkledb.io/pkg/merkle/store"
	"merkledb.io/pkg/merr"
)

// Table is a handle onto one table value: a committed root plus the
// pending writes layered on top of it. A Table is owned by a single
// writer at a time; Flush produces a new Table sharing every untouched
// node with the old one rather than mutating in place.
type Table struct {
	root    Root
	pending patch.Pending
	dirty   bool
	merger  merge.Merger
	store   store.Store
	codec   store.Codec
}

// Record is one logical (primary-key value, field map) pair as seen by
// callers of Insert, Read and the scan APIs.
type Record struct {
	Fields map[string]any
}

// New creates an empty table with the given configuration. Callers pass
// the KeyCoder and Families explicitly; they are table-level config that
// stays constant across the table's lifetime.
func New(st store.Store, codec store.Codec, root Root) (*Table, error) {
	if err := root.validate(); err != nil {
		return nil, err
	}
	root.Data = nil
	root.Patch = nil
	root.Count = 0
	return &Table{
		root:    root,
		pending: make(patch.Pending),
		store:   st,
		codec:   codec,
	}, nil
}

// Open loads a previously committed table root by hash. coder and
// families are supplied by the caller.
func Open(ctx context.Context, st store.Store, codec store.Codec, h store.Hash, coder key.Lexicoder, families family.Spec) (*Table, error) {
	p, err := st.Get(ctx, h)
	if err != nil {
		return nil, merr.WrapMissingNode(err, "table: loading root %s", h)
	}
	root, err := FromPayload(p, coder, families)
	if err != nil {
		return nil, err
	}
	return &Table{root: root, pending: make(patch.Pending), store: st, codec: codec}, nil
}

// Dirty reports whether Insert or Delete has buffered writes into t since
// it was opened or last flushed.
func (t *Table) Dirty() bool {
	return t.dirty
}

// Count returns the record count as of the last flush. Pending writes
// are not reflected until Flush runs.
func (t *Table) Count() int64 {
	return t.root.Count
}

// RootHash persists t.root's current payload and returns its hash,
// without touching pending writes or the dirty flag. Commit (in
// commit.go) calls this after a successful Flush.
func (t *Table) RootHash(ctx context.Context) (store.Hash, error) {
	return t.store.Put(ctx, t.root.ToPayload())
}

// Bytes re-encodes t.root's payload through the table's codec, exposing
// the exact bytes a Store would hash — handy for out-of-band hash
// verification or debugging.
func (t *Table) Bytes() ([]byte, error) {
	return t.codec.Encode(t.root.ToPayload())
}

// keyOf encodes the primary-key value found in fields through the
// table's configured KeyCoder.
func (t *Table) keyOf(fields map[string]any) (key.Key, error) {
	v, ok := fields[t.root.PrimaryKey]
	if !ok {
		return nil, merr.InvalidArgumentf("table: record missing primary-key field %q", t.root.PrimaryKey)
	}
	b, err := t.root.KeyCoder.Encode(v)
	if err != nil {
		return nil, err
	}
	return key.Key(b), nil
}

// encodeID encodes a bare primary-key value (as passed to Read/Delete)
// rather than a field extracted from a record map.
func (t *Table) encodeID(id any) (key.Key, error) {
	b, err := t.root.KeyCoder.Encode(id)
	if err != nil {
		return nil, err
	}
	return key.Key(b), nil
}

// treeHeight returns the height of the node link points to: 0 for a bare
// partition, the node's own Height field for an index node, by peeking
// at the persisted type tag rather than caching height at the root
// (root.go's Root doc comment explains why).
func treeHeight(ctx context.Context, st store.Store, link *store.Link) (int, error) {
	height, _, err := treeMeta(ctx, st, link)
	return height, err
}

// treeMeta returns both the height and the authoritative record count of
// the node link points to, reading the node once. The count is the
// tree's own aggregate (partition.Count or index.Node.Count), always in
// sync with the tree's actual structure regardless of how many
// patch-only flushes have run since the tree last changed — the
// baseline write.go's Flush adds its patch-only delta onto.
func treeMeta(ctx context.Context, st store.Store, link *store.Link) (height int, count int64, err error) {
	if link == nil {
		return 0, 0, nil
	}
	p, err := st.Get(ctx, link.Target)
	if err != nil {
		return 0, 0, merr.WrapMissingNode(err, "table: loading tree root %s", link.Target)
	}
	switch p.TypeTag {
	case partition.TypeTag:
		return 0, int64(asInt(p.Data["count"])), nil
	case index.TypeTag:
		return asInt(p.Data["height"]), int64(asInt(p.Data["count"])), nil
	default:
		return 0, 0, merr.InvariantViolationf("table: unknown data-tree node type tag %q", p.TypeTag)
	}
}
