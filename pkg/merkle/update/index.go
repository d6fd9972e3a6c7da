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

package update

import (
	"context"

	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/index"
	"merkledb.io/pkg/merkle/merge"
	"merkledb.io/pkg/merkle/patch"
	"merkledb.io/pkg/merkle/store"
)

// updateNode dispatches to partitionUpdate or updateIndex depending on
// whether this child slot's height is 0 (a partition) or positive (a
// nested index node).
func updateNode(ctx context.Context, st store.Store, link *store.Link, height int, changes []patch.Change, in *carry, cfg Config, merger merge.Merger) (*carry, error) {
	if height == 0 {
		return partitionUpdate(ctx, st, link, changes, in, cfg, merger)
	}
	return updateIndex(ctx, st, link, height, changes, in, cfg, merger)
}

// updateIndex rewrites one index node: divide the changes across its
// children, adopt any carry from an adjacent sibling, recurse in key
// order, fold unabsorbed carries back into the last rebuilt child, and
// regroup the surviving children into valid nodes at this height.
func updateIndex(ctx context.Context, st store.Store, link *store.Link, height int, changes []patch.Change, in *carry, cfg Config, merger merge.Merger) (*carry, error) {
	if len(changes) == 0 && in == nil {
		// Untouched subtree: keep the stored node as-is.
		node, err := index.Get(ctx, st, link.Target)
		if err != nil {
			return nil, err
		}
		return &carry{height: node.Height, elements: []linkElem{{link: *link, count: node.Count, first: node.First, last: node.Last}}}, nil
	}
	node, err := index.Get(ctx, st, link.Target)
	if err != nil {
		return nil, err
	}
	childHeight := node.ChildHeight()

	// Divide changes by child via the separator keys.
	byChild := make([][]patch.Change, len(node.Children))
	for _, c := range changes {
		ci := node.ChildIndex(c.Key)
		byChild[ci] = append(byChild[ci], c)
	}

	// Adopt an arriving carry. A carry always comes from an adjacent
	// sibling, so its keys sit entirely before this node's range (the
	// usual left-to-right hand-off) or entirely after it (a carry-back
	// from a parent folding its tail). Adopt on the matching side: a
	// before-carry at child height joins the output head, a shorter one
	// descends into the first child; the after-carry cases are handled
	// past the loop, once the last child's own result is known.
	var acc []linkElem
	var adoptAfter []linkElem
	var foldAfter *carry
	var carryDown *carry
	if in != nil {
		after := key.Compare(in.firstKey(), node.First) > 0
		switch {
		case in.height == childHeight && after:
			adoptAfter = in.elements
		case in.height == childHeight:
			acc = append(acc, in.elements...)
		case after:
			foldAfter = in
		default:
			carryDown = in
		}
	}

	// Recurse child-by-child in key order, holding a shorter carry over
	// to the next child rather than appending it.
	var pending *carry
	for i := range node.Children {
		var childIn *carry
		if i == 0 {
			childIn = carryDown
		} else {
			childIn = pending
			pending = nil
		}
		result, err := updateNode(ctx, st, &node.Children[i], childHeight, byChild[i], childIn, cfg, merger)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		if result.height == childHeight {
			acc = append(acc, result.elements...)
		} else {
			pending = result
		}
	}

	// Carry-back: fold the last child's own unabsorbed carry into the
	// tail of the output, then the adopted after-carries in key order.
	acc, pending, err = foldBack(ctx, st, cfg, merger, childHeight, acc, pending)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		acc = append(acc, adoptAfter...)
		if foldAfter != nil {
			acc, pending, err = foldBack(ctx, st, cfg, merger, childHeight, acc, foldAfter)
			if err != nil {
				return nil, err
			}
		}
	}
	if pending != nil {
		// Nothing left at this level to absorb into; bubble the carry to
		// the grandparent unchanged.
		return pending, nil
	}

	// Rebuild into valid index nodes at this height, or return a shorter
	// carry if too few children remain.
	return rebuild(ctx, st, cfg, childHeight, acc)
}

// foldBack absorbs a too-short carry into the tail of acc by re-running
// the last accumulated child's update with the carry as its input,
// repeating until the carry is absorbed or acc is exhausted. It returns
// the updated acc and whatever carry could not be absorbed.
func foldBack(ctx context.Context, st store.Store, cfg Config, merger merge.Merger, childHeight int, acc []linkElem, pending *carry) ([]linkElem, *carry, error) {
	for pending != nil && len(acc) > 0 {
		last := acc[len(acc)-1]
		acc = acc[:len(acc)-1]
		back, err := updateNode(ctx, st, &last.link, childHeight, nil, pending, cfg, merger)
		if err != nil {
			return nil, nil, err
		}
		if back == nil {
			pending = nil
			continue
		}
		if back.height == childHeight {
			acc = append(acc, back.elements...)
			pending = nil
		} else {
			pending = back
		}
	}
	return acc, pending, nil
}
