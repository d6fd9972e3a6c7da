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

// Package index implements the internal B+-style node of the data tree
// and the three tree-read algorithms: read-all, read-batch and
// read-range, all pruning recursion to only the children that can
// possibly hold a requested key.
package index

import (
	"context"
	"sort"

	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/family"
	"merkledb.io/pkg/merkle/partition"
	"merkledb.io/pkg/merkle/store"
	"merkledb.io/pkg/merr"
)

// Node is an internal tree node: height >= 1, n separator keys, n+1 child
// links, and aggregates folded over the whole subtree.
type Node struct {
	Height   int
	Keys     []key.Key
	Children []store.Link
	Count    int64
	First    key.Key
	Last     key.Key
}

// TypeTag is the persisted node type tag.
const TypeTag = "index"

// childHeight is the height of every child of n (0 means the children are
// partitions, the implicit height-0 leaf).
func (n *Node) childHeight() int { return n.Height - 1 }

// childIndex returns the index of the child whose range covers k, via
// binary search over the separator keys (k0 = -inf, kn+1 = +inf).
func (n *Node) childIndex(k key.Key) int {
	return sort.Search(len(n.Keys), func(i int) bool { return key.Compare(n.Keys[i], k) > 0 })
}

// ChildIndex is the exported form of childIndex, used by
// pkg/merkle/update to divide a change stream by separator key.
func (n *Node) ChildIndex(k key.Key) int { return n.childIndex(k) }

// ChildHeight is the exported form of childHeight.
func (n *Node) ChildHeight() int { return n.childHeight() }

func (n *Node) readChildAll(ctx context.Context, st store.Store, families family.Spec, fields map[string]bool, i int) ([]partition.Record, error) {
	link := n.Children[i]
	if n.childHeight() == 0 {
		p, err := partition.Get(ctx, st, link.Target)
		if err != nil {
			return nil, annotateMissing(err, link)
		}
		return p.ReadAll(ctx, st, families, fields)
	}
	child, err := Get(ctx, st, link.Target)
	if err != nil {
		return nil, annotateMissing(err, link)
	}
	return child.ReadAll(ctx, st, families, fields)
}

func annotateMissing(err error, link store.Link) error {
	if merr.Is(err, merr.MissingNode) {
		return merr.MissingNodef("index: broken link %q -> %s: %v", link.Name, link.Target, err)
	}
	return err
}

// ReadAll recurses into every child in order and concatenates the
// results.
func (n *Node) ReadAll(ctx context.Context, st store.Store, families family.Spec, fields map[string]bool) ([]partition.Record, error) {
	var out []partition.Record
	for i := range n.Children {
		recs, err := n.readChildAll(ctx, st, families, fields, i)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (n *Node) readChildBatch(ctx context.Context, st store.Store, families family.Spec, fields map[string]bool, i int, keys []key.Key) ([]partition.Record, error) {
	link := n.Children[i]
	if n.childHeight() == 0 {
		p, err := partition.Get(ctx, st, link.Target)
		if err != nil {
			return nil, annotateMissing(err, link)
		}
		return p.ReadBatch(ctx, st, families, fields, keys)
	}
	child, err := Get(ctx, st, link.Target)
	if err != nil {
		return nil, annotateMissing(err, link)
	}
	return child.ReadBatch(ctx, st, families, fields, keys)
}

// ReadBatch assigns keys to children by binary search over the separator
// vector and recurses only into children with a non-empty assignment.
func (n *Node) ReadBatch(ctx context.Context, st store.Store, families family.Spec, fields map[string]bool, keys []key.Key) ([]partition.Record, error) {
	byChild := make(map[int][]key.Key, len(n.Children))
	for _, k := range keys {
		ci := n.childIndex(k)
		byChild[ci] = append(byChild[ci], k)
	}
	var out []partition.Record
	for i := range n.Children {
		assigned := byChild[i]
		if len(assigned) == 0 {
			continue
		}
		recs, err := n.readChildBatch(ctx, st, families, fields, i, assigned)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (n *Node) readChildRange(ctx context.Context, st store.Store, families family.Spec, fields map[string]bool, i int, min, max key.Key) ([]partition.Record, error) {
	link := n.Children[i]
	if n.childHeight() == 0 {
		p, err := partition.Get(ctx, st, link.Target)
		if err != nil {
			return nil, annotateMissing(err, link)
		}
		return p.ReadRange(ctx, st, families, fields, min, max)
	}
	child, err := Get(ctx, st, link.Target)
	if err != nil {
		return nil, annotateMissing(err, link)
	}
	return child.ReadRange(ctx, st, families, fields, min, max)
}

// ReadRange computes each child's leading/trailing bound from the
// surrounding separators and includes the child iff
// child.leading <= max (or leading is -inf) and
// child.trailing >= min (or trailing is +inf), recursing in key order.
func (n *Node) ReadRange(ctx context.Context, st store.Store, families family.Spec, fields map[string]bool, min, max key.Key) ([]partition.Record, error) {
	if min != nil && max != nil && key.Compare(min, max) > 0 {
		return nil, nil
	}
	var out []partition.Record
	for i := range n.Children {
		var leading, trailing key.Key // nil leading = -inf, nil trailing = +inf
		if i > 0 {
			leading = n.Keys[i-1]
		}
		if i < len(n.Keys) {
			trailing = n.Keys[i]
		}
		if max != nil && leading != nil && key.Compare(leading, max) > 0 {
			continue
		}
		if min != nil && trailing != nil && key.Compare(trailing, min) < 0 {
			continue
		}
		recs, err := n.readChildRange(ctx, st, families, fields, i, min, max)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}
