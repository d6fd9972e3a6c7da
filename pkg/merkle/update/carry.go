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

// Package update implements the batch tree-update algorithm: a single
// recursive pass that divides a sorted change stream by child, recurses,
// and rebuilds the touched path while carrying underflowing remainders up
// to whichever ancestor can absorb them. Untouched subtrees are never
// rewritten, so one batch visits O(log n) nodes per partition touched.
package update

import (
	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/family"
	"merkledb.io/pkg/merkle/partition"
	"merkledb.io/pkg/merkle/store"
)

// Config carries the table-level parameters the update algorithm needs:
// fan-out b, partition-limit p and the family layout.
type Config struct {
	FanOut         int
	PartitionLimit int
	Families       family.Spec
	BloomRate      float64
}

func (c Config) half() int { return (c.FanOut + 1) / 2 }

// linkElem is a node already written to the store, reduced to exactly the
// fields an ancestor needs to link to it and fold it into an aggregate:
// the link itself, its record count, and its first/last key. Both
// partitions and index nodes reduce to this same shape once persisted,
// which is what lets the carry/rebuild machinery below treat a run of
// freshly-split partitions and a run of freshly-grouped index nodes with
// identical code.
type linkElem struct {
	link  store.Link
	count int64
	first key.Key
	last  key.Key
}

// carry is the output of one recursive step: either nil (the
// subtree vanished), a normal result at the expected height, or a shorter
// result an ancestor must absorb. height < 0 is the negative sentinel for
// a bare, not-yet-partitioned record run.
type carry struct {
	height   int
	records  []partition.Record // valid iff height < 0
	elements []linkElem         // valid iff height >= 0
}

func (c *carry) len() int {
	if c == nil {
		return 0
	}
	if c.height < 0 {
		return len(c.records)
	}
	return len(c.elements)
}

// firstKey returns the smallest key covered by the carry. A carry always
// originates from an adjacent sibling's key range, so comparing firstKey
// against a node's own range tells an adopter whether the carried nodes
// belong before or after that node's children.
func (c *carry) firstKey() key.Key {
	if c.height < 0 {
		return c.records[0].Key
	}
	return c.elements[0].first
}
