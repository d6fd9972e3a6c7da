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

	"merkledb.io/pkg/merkle/merge"
	"merkledb.io/pkg/merkle/patch"
	"merkledb.io/pkg/merkle/store"
)

// Result is the new data-tree root produced by Apply: either an empty
// tree (Link == nil) or a link at Height (0 meaning the root is a bare
// partition, >0 meaning the root is an index node of that height).
type Result struct {
	Link   *store.Link
	Height int
	Count  int64
}

// Apply runs one batch update: it divides changes across the existing
// tree rooted at data (nil meaning an empty tree), recurses, and promotes
// whatever remains into a new single root.
func Apply(ctx context.Context, st store.Store, data *store.Link, height int, changes []patch.Change, cfg Config, merger merge.Merger) (Result, error) {
	result, err := updateNode(ctx, st, data, height, changes, nil, cfg, merger)
	if err != nil {
		return Result{}, err
	}
	return promoteRoot(ctx, st, cfg, result)
}

// promoteRoot turns the outermost carry into a root. nil means the tree
// is empty; a negative height means bare records that must become a
// single partition, allowed to underflow since it is the root; a single
// element at any height becomes the new root as-is; otherwise index
// layers are built repeatedly over the remaining elements (without the
// half-full floor, since only the root may hold as few as 2 children)
// until one root remains.
func promoteRoot(ctx context.Context, st store.Store, cfg Config, result *carry) (Result, error) {
	if result == nil {
		return Result{}, nil
	}
	if result.height < 0 {
		elem, err := putPartition(ctx, st, cfg, result.records)
		if err != nil {
			return Result{}, err
		}
		return Result{Link: &elem.link, Height: 0, Count: elem.count}, nil
	}
	elements := result.elements
	height := result.height
	for len(elements) > 1 {
		sizes := splitSizes(len(elements), cfg.FanOut, 2)
		var err error
		elements, err = buildIndexNodes(ctx, st, height+1, elements, sizes)
		if err != nil {
			return Result{}, err
		}
		height++
	}
	root := elements[0]
	return Result{Link: &root.link, Height: height, Count: root.count}, nil
}
