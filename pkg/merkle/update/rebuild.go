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

	"golang.org/x/sync/errgroup"

	"merkledb.io/pkg/merkle/index"
	"merkledb.io/pkg/merkle/store"
)

// splitSizes divides n elements into groups of size in [half, b],
// approximately equal, maximizing fullness. It assumes
// n >= half (the caller only groups once that threshold is met).
func splitSizes(n, b, half int) []int {
	if n <= b {
		return []int{n}
	}
	numGroups := (n + b - 1) / b
	base := n / numGroups
	rem := n % numGroups
	sizes := make([]int, numGroups)
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	_ = half // sizes are already within [half, b] for any n >= half, b >= 4
	return sizes
}

// rebuild groups elements (all at the same height) into new index nodes
// one height higher, or — if there are too few to meet the half-full
// invariant — returns them unchanged as a shorter carry for the caller to
// absorb.
func rebuild(ctx context.Context, st store.Store, cfg Config, height int, elements []linkElem) (*carry, error) {
	if len(elements) == 0 {
		return nil, nil
	}
	if len(elements) < cfg.half() {
		return &carry{height: height, elements: elements}, nil
	}
	sizes := splitSizes(len(elements), cfg.FanOut, cfg.half())
	out, err := buildIndexNodes(ctx, st, height+1, elements, sizes)
	if err != nil {
		return nil, err
	}
	return &carry{height: height + 1, elements: out}, nil
}

// buildIndexNodes groups elements (all at height-1, i.e. the children of
// the nodes being built) according to sizes and writes one new index node
// per group, each at the given height. Every group's node is independent
// of the others (no group reads another group's output), so the Put
// calls run concurrently under an errgroup.Group rather than serially.
func buildIndexNodes(ctx context.Context, st store.Store, height int, elements []linkElem, sizes []int) ([]linkElem, error) {
	out := make([]linkElem, len(sizes))
	grp, gctx := errgroup.WithContext(ctx)
	idx := 0
	for gi, sz := range sizes {
		group := elements[idx : idx+sz]
		idx += sz
		gi, group := gi, group
		grp.Go(func() error {
			node := &index.Node{
				Height:   height,
				Count:    sumCounts(group),
				First:    group[0].first,
				Last:     group[len(group)-1].last,
				Children: make([]store.Link, len(group)),
			}
			for i, e := range group {
				node.Children[i] = e.link
				if i > 0 {
					node.Keys = append(node.Keys, e.first)
				}
			}
			h, err := index.Put(gctx, st, node)
			if err != nil {
				return err
			}
			out[gi] = linkElem{
				link:  store.Link{Target: h, Size: node.Count},
				count: node.Count,
				first: node.First,
				last:  node.Last,
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func sumCounts(elements []linkElem) int64 {
	var n int64
	for _, e := range elements {
		n += e.count
	}
	return n
}
