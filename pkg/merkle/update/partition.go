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
	"sort"

	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/merge"
	"merkledb.io/pkg/merkle/partition"
	"merkledb.io/pkg/merkle/patch"
	"merkledb.io/pkg/merkle/store"
)

// partitionUpdate is the leaf updater: load the partition's current
// records (if link is non-nil), fold in any carried-in bare records, apply
// deletions and merged additions, then rewrite as one partition, a
// stream-split run of partitions, or — if too few records remain — a
// bare-record carry for an ancestor to absorb.
func partitionUpdate(ctx context.Context, st store.Store, link *store.Link, changes []patch.Change, in *carry, cfg Config, merger merge.Merger) (*carry, error) {
	if len(changes) == 0 && in == nil && link != nil {
		p, err := partition.Get(ctx, st, link.Target)
		if err != nil {
			return nil, err
		}
		return &carry{height: 0, elements: []linkElem{{link: *link, count: p.Count, first: p.FirstKey, last: p.LastKey}}}, nil
	}
	byKey := make(map[string]partition.Record)
	var order []key.Key
	put := func(r partition.Record) {
		ks := string(r.Key)
		if _, ok := byKey[ks]; !ok {
			order = append(order, r.Key)
		}
		byKey[ks] = r
	}

	if link != nil {
		p, err := partition.Get(ctx, st, link.Target)
		if err != nil {
			return nil, err
		}
		existing, err := p.ReadAll(ctx, st, cfg.Families, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range existing {
			put(r)
		}
	}
	if in != nil && in.height < 0 {
		for _, r := range in.records {
			put(r)
		}
	}
	for _, c := range changes {
		ks := string(c.Key)
		if c.Tombstone {
			delete(byKey, ks)
			continue
		}
		old, existed := byKey[ks]
		var oldFields map[string]any
		if existed {
			oldFields = old.Fields
		}
		put(partition.Record{Key: c.Key, Fields: merger.Apply(c.Key, oldFields, c.Record)})
	}

	final := make([]partition.Record, 0, len(order))
	for _, k := range order {
		if r, ok := byKey[string(k)]; ok {
			final = append(final, r)
		}
	}
	sort.Slice(final, func(i, j int) bool { return final[i].Key.Less(final[j].Key) })

	if len(final) == 0 {
		return nil, nil
	}
	if len(final) < (cfg.PartitionLimit+1)/2 {
		return &carry{height: -1, records: final}, nil
	}
	if len(final) <= cfg.PartitionLimit {
		elem, err := putPartition(ctx, st, cfg, final)
		if err != nil {
			return nil, err
		}
		return &carry{height: 0, elements: []linkElem{elem}}, nil
	}
	return streamSplit(ctx, st, cfg, final)
}

func putPartition(ctx context.Context, st store.Store, cfg Config, records []partition.Record) (linkElem, error) {
	params := partition.Params{Families: cfg.Families, Limit: cfg.PartitionLimit, BloomRate: cfg.BloomRate}
	p, err := partition.FromRecords(ctx, st, params, records)
	if err != nil {
		return linkElem{}, err
	}
	h, err := partition.Put(ctx, st, p)
	if err != nil {
		return linkElem{}, err
	}
	return linkElem{
		link:  store.Link{Target: h, Size: p.Count},
		count: p.Count,
		first: p.FirstKey,
		last:  p.LastKey,
	}, nil
}

// streamSplit divides an oversized run of records into groups of size in
// [⌈p/2⌉, p], approximately equal, the same way rebuild's splitSizes
// groups index-node children one layer up.
// If the run is too small to meet the half-full invariant even as a
// single group, it is returned as a bare-record carry for an ancestor to
// absorb instead of an undersized partition.
func streamSplit(ctx context.Context, st store.Store, cfg Config, records []partition.Record) (*carry, error) {
	p := cfg.PartitionLimit
	half := (p + 1) / 2
	if len(records) < half {
		return &carry{height: -1, records: records}, nil
	}

	sizes := splitSizes(len(records), p, half)
	elements := make([]linkElem, len(sizes))
	idx := 0
	for i, sz := range sizes {
		elem, err := putPartition(ctx, st, cfg, records[idx:idx+sz])
		if err != nil {
			return nil, err
		}
		elements[i] = elem
		idx += sz
	}
	return &carry{height: 0, elements: elements}, nil
}
