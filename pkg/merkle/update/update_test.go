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
	"fmt"
	"testing"

	"merkledb.io/internal/merkletest"
	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/index"
	"merkledb.io/pkg/merkle/merge"
	"merkledb.io/pkg/merkle/partition"
	"merkledb.io/pkg/merkle/patch"
	"merkledb.io/pkg/merkle/store"
)

func testConfig() Config {
	return Config{FanOut: 4, PartitionLimit: 5}
}

func insertChanges(n int) []patch.Change {
	out := make([]patch.Change, n)
	for i := 0; i < n; i++ {
		k := key.Key(fmt.Sprintf("k%03d", i))
		out[i] = patch.Change{Key: k, Record: map[string]any{"n": i}}
	}
	return out
}

func readAllFromResult(t *testing.T, ctx context.Context, st store.Store, result Result, cfg Config) []partition.Record {
	t.Helper()
	if result.Link == nil {
		return nil
	}
	if result.Height == 0 {
		p, err := partition.Get(ctx, st, result.Link.Target)
		if err != nil {
			t.Fatalf("partition.Get: %v", err)
		}
		recs, err := p.ReadAll(ctx, st, cfg.Families, nil)
		if err != nil {
			t.Fatalf("ReadAll: %v", err)
		}
		return recs
	}
	node, err := index.Get(ctx, st, result.Link.Target)
	if err != nil {
		t.Fatalf("index.Get: %v", err)
	}
	recs, err := node.ReadAll(ctx, st, cfg.Families, nil)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return recs
}

func TestApplyOnEmptyTreeBuildsBarePartition(t *testing.T) {
	ctx := context.Background()
	st := merkletest.NewMemStore(merkletest.JSONCodec{})
	cfg := testConfig()
	merger, _ := merge.Resolve(merge.Options{})

	result, err := Apply(ctx, st, nil, 0, insertChanges(3), cfg, merger)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Link == nil || result.Height != 0 {
		t.Fatalf("expected a height-0 bare partition root, got %+v", result)
	}
	if result.Count != 3 {
		t.Fatalf("Count = %d, want 3", result.Count)
	}
	recs := readAllFromResult(t, ctx, st, result, cfg)
	if len(recs) != 3 {
		t.Fatalf("read back %d records, want 3", len(recs))
	}
}

func TestApplyEmptyChangesOnEmptyTreeYieldsEmptyResult(t *testing.T) {
	ctx := context.Background()
	st := merkletest.NewMemStore(merkletest.JSONCodec{})
	cfg := testConfig()
	merger, _ := merge.Resolve(merge.Options{})

	result, err := Apply(ctx, st, nil, 0, nil, cfg, merger)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Link != nil {
		t.Fatalf("expected nil Link for an empty tree with no changes, got %+v", result)
	}
}

func TestApplyGrowsIntoIndexLayerPastPartitionLimit(t *testing.T) {
	ctx := context.Background()
	st := merkletest.NewMemStore(merkletest.JSONCodec{})
	cfg := testConfig() // PartitionLimit 5
	merger, _ := merge.Resolve(merge.Options{})

	// Comfortably past one partition's worth of records so the tree must
	// grow at least one index layer.
	result, err := Apply(ctx, st, nil, 0, insertChanges(40), cfg, merger)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if result.Height == 0 {
		t.Fatalf("expected the tree to grow an index layer for 40 records with partition limit 5, got height 0")
	}
	if result.Count != 40 {
		t.Fatalf("Count = %d, want 40", result.Count)
	}
	recs := readAllFromResult(t, ctx, st, result, cfg)
	if len(recs) != 40 {
		t.Fatalf("read back %d records, want 40", len(recs))
	}
	for i, r := range recs {
		want := fmt.Sprintf("k%03d", i)
		if string(r.Key) != want {
			t.Fatalf("record %d key = %q, want %q (records must stay sorted)", i, r.Key, want)
		}
	}
}

func TestApplyTwicePreservesAndMergesRecords(t *testing.T) {
	ctx := context.Background()
	st := merkletest.NewMemStore(merkletest.JSONCodec{})
	cfg := testConfig()
	merger, _ := merge.Resolve(merge.Options{})

	first, err := Apply(ctx, st, nil, 0, insertChanges(20), cfg, merger)
	if err != nil {
		t.Fatalf("Apply #1: %v", err)
	}

	more := []patch.Change{
		{Key: key.Key("k005"), Record: map[string]any{"n": -5}}, // overwrite
		{Key: key.Key("k200"), Record: map[string]any{"n": 200}}, // new
		{Key: key.Key("k001"), Tombstone: true},                  // delete
	}
	second, err := Apply(ctx, st, first.Link, first.Height, more, cfg, merger)
	if err != nil {
		t.Fatalf("Apply #2: %v", err)
	}
	if second.Count != 20 { // -1 deleted, +1 inserted, net unchanged
		t.Fatalf("Count after second Apply = %d, want 20", second.Count)
	}

	recs := readAllFromResult(t, ctx, st, second, cfg)
	byKey := make(map[string]map[string]any, len(recs))
	for _, r := range recs {
		byKey[string(r.Key)] = r.Fields
	}
	if _, ok := byKey["k001"]; ok {
		t.Fatalf("expected k001 to be deleted")
	}
	// Field values round-trip through the test codec's generic JSON maps,
	// so numbers come back as float64.
	if fields, ok := byKey["k005"]; !ok || asFloat(fields["n"]) != -5 {
		t.Fatalf("expected k005 overwritten to -5, got %v", fields)
	}
	if fields, ok := byKey["k200"]; !ok || asFloat(fields["n"]) != 200 {
		t.Fatalf("expected k200 inserted, got %v", fields)
	}
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	default:
		return -1
	}
}

func TestApplyFoldsUnderflowBackAcrossSubtrees(t *testing.T) {
	ctx := context.Background()
	st := merkletest.NewMemStore(merkletest.JSONCodec{})
	cfg := testConfig()
	merger, _ := merge.Resolve(merge.Options{})

	// 40 records with partition limit 5 and fan-out 4 build a two-level
	// tree. Deleting all but the last two records of the right half
	// leaves too few to stand as a partition, so the remainder must be
	// folded back into the tail of the left subtree.
	first, err := Apply(ctx, st, nil, 0, insertChanges(40), cfg, merger)
	if err != nil {
		t.Fatalf("Apply #1: %v", err)
	}
	if first.Height < 2 {
		t.Fatalf("fixture tree height = %d, want >= 2", first.Height)
	}

	var deletions []patch.Change
	for i := 20; i < 38; i++ {
		deletions = append(deletions, patch.Change{Key: key.Key(fmt.Sprintf("k%03d", i)), Tombstone: true})
	}
	second, err := Apply(ctx, st, first.Link, first.Height, deletions, cfg, merger)
	if err != nil {
		t.Fatalf("Apply #2: %v", err)
	}
	if second.Count != 22 {
		t.Fatalf("Count = %d, want 22", second.Count)
	}

	recs := readAllFromResult(t, ctx, st, second, cfg)
	if len(recs) != 22 {
		t.Fatalf("read back %d records, want 22", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if !recs[i-1].Key.Less(recs[i].Key) {
			t.Fatalf("records out of order after fold-back: %q before %q", recs[i-1].Key, recs[i].Key)
		}
	}
	for _, r := range recs {
		if string(r.Key) >= "k020" && string(r.Key) < "k038" {
			t.Fatalf("deleted key %q still present", r.Key)
		}
	}
}

func TestApplyDeletingEverythingEmptiesTheTree(t *testing.T) {
	ctx := context.Background()
	st := merkletest.NewMemStore(merkletest.JSONCodec{})
	cfg := testConfig()
	merger, _ := merge.Resolve(merge.Options{})

	inserts := insertChanges(6)
	first, err := Apply(ctx, st, nil, 0, inserts, cfg, merger)
	if err != nil {
		t.Fatalf("Apply #1: %v", err)
	}

	deletions := make([]patch.Change, len(inserts))
	for i, c := range inserts {
		deletions[i] = patch.Change{Key: c.Key, Tombstone: true}
	}
	second, err := Apply(ctx, st, first.Link, first.Height, deletions, cfg, merger)
	if err != nil {
		t.Fatalf("Apply #2 (delete all): %v", err)
	}
	if second.Link != nil {
		t.Fatalf("expected an empty tree after deleting every record, got %+v", second)
	}
}
