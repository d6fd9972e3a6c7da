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
	"testing"

	"merkledb.io/internal/merkletest"
	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/family"
	"merkledb.io/pkg/merkle/index"
	"merkledb.io/pkg/merkle/partition"
	"merkledb.io/pkg/merkle/store"
)

// scenarioFixture builds the shared end-to-end fixture: fan-out 4,
// partition-limit 5, patch-limit 10, integer lexicoder, one family
// bc={b,c}, with records {a:k}, plus {b:100-k} when k%3==0 and
// {c:20+k} when k%5==0.
func scenarioFixture(t *testing.T) (*Table, store.Store) {
	t.Helper()
	st := merkletest.NewMemStore(merkletest.JSONCodec{})
	root := Root{
		FanOut:         4,
		PartitionLimit: 5,
		PatchLimit:     10,
		Families:       family.Spec{"bc": {"b", "c"}},
		KeyCoder:       key.IntegerLexicoder{},
		PrimaryKey:     "a",
	}
	tb, err := New(st, merkletest.JSONCodec{}, root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tb, st
}

func scenarioKeys() []int {
	var ks []int
	ks = append(ks, rng(4, 8)...)
	ks = append(ks, rng(10, 14)...)
	ks = append(ks, 17, 18, 21)
	ks = append(ks, rng(23, 25)...)
	ks = append(ks, rng(30, 32)...)
	return ks
}

func rng(lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, i)
	}
	return out
}

// fieldInt normalizes a field value to int regardless of whether it
// arrived as a native int (never left memory) or a float64 (round-tripped
// through the JSON codec's generic map[string]any, where encoding/json
// decodes every number as float64).
func fieldInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func recordFor(k int) Record {
	fields := map[string]any{"a": k}
	if k%3 == 0 {
		fields["b"] = 100 - k
	}
	if k%5 == 0 {
		fields["c"] = 20 + k
	}
	return Record{Fields: fields}
}

func insertScenario1(t *testing.T, tb *Table) *Table {
	t.Helper()
	var recs []Record
	for _, k := range scenarioKeys() {
		recs = append(recs, recordFor(k))
	}
	if err := tb.Insert(recs, InsertOptions{}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	ctx := context.Background()
	flushed, err := tb.Flush(ctx, FlushOptions{ApplyPatch: true})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	return flushed
}

// checkInvariants walks the data tree reachable from tb.root.Data and
// checks the structural invariants: non-root index nodes have
// children in [ceil(b/2), b], non-root partitions have count in
// [ceil(p/2), p], and every index node's aggregate count equals the sum
// of its children's counts.
func checkInvariants(t *testing.T, ctx context.Context, st store.Store, tb *Table) {
	t.Helper()
	if tb.root.Data == nil {
		return
	}
	height, err := treeHeight(ctx, st, tb.root.Data)
	if err != nil {
		t.Fatalf("treeHeight: %v", err)
	}
	b := tb.root.FanOut
	p := tb.root.PartitionLimit
	half := func(n int) int { return (n + 1) / 2 }

	if height == 0 {
		part, err := partition.Get(ctx, st, tb.root.Data.Target)
		if err != nil {
			t.Fatalf("partition.Get: %v", err)
		}
		if part.Count < 1 {
			t.Fatalf("root partition has zero records")
		}
		return
	}
	node, err := index.Get(ctx, st, tb.root.Data.Target)
	if err != nil {
		t.Fatalf("index.Get: %v", err)
	}
	if len(node.Children) < 2 || len(node.Children) > b {
		t.Fatalf("root index node has %d children, want [2,%d]", len(node.Children), b)
	}
	walkIndex(t, ctx, st, node, b, p, half, false)
}

func walkIndex(t *testing.T, ctx context.Context, st store.Store, node *index.Node, b, p int, half func(int) int, isRoot bool) {
	t.Helper()
	if !isRoot {
		if len(node.Children) < half(b) || len(node.Children) > b {
			t.Fatalf("non-root index node has %d children, want [%d,%d]", len(node.Children), half(b), b)
		}
	}
	if len(node.Children) != len(node.Keys)+1 {
		t.Fatalf("children count %d != keys count %d + 1", len(node.Children), len(node.Keys))
	}
	var sumCount int64
	for _, link := range node.Children {
		if node.ChildHeight() == 0 {
			part, err := partition.Get(ctx, st, link.Target)
			if err != nil {
				t.Fatalf("partition.Get: %v", err)
			}
			if !isRoot && (part.Count < int64(half(p)) || part.Count > int64(p)) {
				t.Fatalf("non-root partition count %d, want [%d,%d]", part.Count, half(p), p)
			}
			sumCount += part.Count
		} else {
			child, err := index.Get(ctx, st, link.Target)
			if err != nil {
				t.Fatalf("index.Get: %v", err)
			}
			walkIndex(t, ctx, st, child, b, p, half, false)
			sumCount += child.Count
		}
	}
	if sumCount != node.Count {
		t.Fatalf("index node aggregate count %d != folded child sum %d", node.Count, sumCount)
	}
}

func TestScenario1BuildAndScan(t *testing.T) {
	ctx := context.Background()
	tb, st := scenarioFixture(t)
	tb = insertScenario1(t, tb)

	if tb.Count() != 19 {
		t.Fatalf("Count = %d, want 19", tb.Count())
	}
	checkInvariants(t, ctx, st, tb)

	recs, err := tb.Scan(ctx, Options{Fields: map[string]bool{"c": true}})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	var got []int
	for _, r := range recs {
		if v, ok := r.Fields["c"]; ok {
			got = append(got, fieldInt(v))
		}
	}
	want := []int{25, 30, 45, 50}
	if len(got) != len(want) {
		t.Fatalf("Scan(c) returned %d records with c set, want %d: %v", len(got), len(want), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("Scan(c)[%d] = %v, want %d", i, got[i], w)
		}
	}
}

func TestScenario2DeletionCarryUp(t *testing.T) {
	ctx := context.Background()
	tb, st := scenarioFixture(t)
	tb = insertScenario1(t, tb)

	if err := tb.Delete([]any{7, 8, 10, 11}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	tb, err := tb.Flush(ctx, FlushOptions{ApplyPatch: true})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if tb.Count() != 15 {
		t.Fatalf("Count = %d, want 15", tb.Count())
	}
	checkInvariants(t, ctx, st, tb)

	recs, err := tb.Scan(ctx, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(recs) != 15 {
		t.Fatalf("Scan returned %d records, want 15", len(recs))
	}
	for _, r := range recs {
		switch fieldInt(r.Fields["a"]) {
		case 7, 8, 10, 11:
			t.Fatalf("deleted key %v still present", r.Fields["a"])
		}
	}
}

func TestScenario3UnderflowMerge(t *testing.T) {
	ctx := context.Background()
	tb, st := scenarioFixture(t)
	tb = insertScenario1(t, tb)

	if err := tb.Delete([]any{6}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	tb, err := tb.Flush(ctx, FlushOptions{ApplyPatch: true})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if tb.Count() != 18 {
		t.Fatalf("Count = %d, want 18", tb.Count())
	}
	checkInvariants(t, ctx, st, tb)

	recs, err := tb.Scan(ctx, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, r := range recs {
		if fieldInt(r.Fields["a"]) == 6 {
			t.Fatalf("deleted key 6 still present")
		}
	}
}

func TestScenario4OverflowSplit(t *testing.T) {
	ctx := context.Background()
	tb, st := scenarioFixture(t)
	tb = insertScenario1(t, tb)

	var extra []Record
	for _, k := range []int{0, 1, 2, 3, 9, 15, 16} {
		extra = append(extra, recordFor(k))
	}
	if err := tb.Insert(extra, InsertOptions{}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	tb, err := tb.Flush(ctx, FlushOptions{ApplyPatch: true})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if tb.Count() != 26 {
		t.Fatalf("Count = %d, want 26", tb.Count())
	}
	checkInvariants(t, ctx, st, tb)

	recs, err := tb.Scan(ctx, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(recs) != 26 {
		t.Fatalf("Scan returned %d records, want 26", len(recs))
	}
	var prev int
	first := true
	for _, r := range recs {
		k := fieldInt(r.Fields["a"])
		if !first && k <= prev {
			t.Fatalf("Scan out of order: %d after %d", k, prev)
		}
		prev, first = k, false
	}
}

func TestScenario5PatchOnlyUpdate(t *testing.T) {
	ctx := context.Background()
	tb, st := scenarioFixture(t)
	tb = insertScenario1(t, tb)
	dataBefore := tb.root.Data.Target

	if err := tb.Insert([]Record{{Fields: map[string]any{"a": 5, "b": 999}}}, InsertOptions{}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	recs, err := tb.Read(ctx, []any{5}, Options{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(recs) != 1 || fieldInt(recs[0].Fields["b"]) != 999 {
		t.Fatalf("Read(5) = %+v, want b=999", recs)
	}
	if tb.root.Data.Target != dataBefore {
		t.Fatalf("data-tree link changed before any flush")
	}

	flushed, err := tb.Flush(ctx, FlushOptions{})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if flushed.root.Data == nil || flushed.root.Data.Target != dataBefore {
		t.Fatalf("patch-only flush changed the data-tree link")
	}
	if flushed.root.Patch == nil {
		t.Fatalf("patch-only flush left no patch link")
	}
	_ = st
}

func TestScenario6TombstoneSuppression(t *testing.T) {
	ctx := context.Background()
	tb, st := scenarioFixture(t)
	tb = insertScenario1(t, tb)

	if err := tb.Insert([]Record{{Fields: map[string]any{"a": 5, "b": 999}}}, InsertOptions{}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	tb, err := tb.Flush(ctx, FlushOptions{})
	if err != nil {
		t.Fatalf("Flush #1: %v", err)
	}

	if err := tb.Delete([]any{5}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	tb, err = tb.Flush(ctx, FlushOptions{ApplyPatch: false})
	if err != nil {
		t.Fatalf("Flush #2: %v", err)
	}

	recs, err := tb.Scan(ctx, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	for _, r := range recs {
		if fieldInt(r.Fields["a"]) == 5 {
			t.Fatalf("tombstoned key 5 leaked into scan results: %+v", r)
		}
		if _, ok := r.Fields["__tombstone__"]; ok {
			t.Fatalf("a raw tombstone marker leaked to the caller")
		}
	}
	// The patch-only flush above already folded the tombstone's effect
	// into Count, so the count the table reports does not move again
	// when the tombstone is finally applied to the tree itself.
	countBeforeApply := tb.Count()
	if countBeforeApply != 18 {
		t.Fatalf("Count after patch-only delete = %d, want 18", countBeforeApply)
	}

	applied, err := tb.Flush(ctx, FlushOptions{ApplyPatch: true})
	if err != nil {
		t.Fatalf("Flush #3 (apply): %v", err)
	}
	if applied.Count() != countBeforeApply {
		t.Fatalf("Count after applying tombstone = %d, want %d", applied.Count(), countBeforeApply)
	}
	checkInvariants(t, ctx, st, applied)
}

func TestFlushOnCleanTableReturnsSameValue(t *testing.T) {
	ctx := context.Background()
	tb, _ := scenarioFixture(t)
	tb = insertScenario1(t, tb)

	same, err := tb.Flush(ctx, FlushOptions{})
	if err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if same != tb {
		t.Fatalf("Flush on a clean table returned a different *Table")
	}
}

func TestEmptyTableScanYieldsNothing(t *testing.T) {
	ctx := context.Background()
	tb, _ := scenarioFixture(t)

	recs, err := tb.Scan(ctx, Options{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("Scan on empty table returned %d records, want 0", len(recs))
	}
}

func TestRangeScanWithMinGreaterThanMaxYieldsNothing(t *testing.T) {
	ctx := context.Background()
	tb, _ := scenarioFixture(t)
	tb = insertScenario1(t, tb)

	minKey, err := key.IntegerLexicoder{}.Encode(30)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	maxKey, err := key.IntegerLexicoder{}.Encode(4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	recs, err := tb.Scan(ctx, Options{MinKey: key.Key(minKey), MaxKey: key.Key(maxKey)})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("Scan(min>max) returned %d records, want 0", len(recs))
	}
}

func TestReverseScanRejected(t *testing.T) {
	ctx := context.Background()
	tb, _ := scenarioFixture(t)

	if _, err := tb.Scan(ctx, Options{Reverse: true}); err == nil {
		t.Fatalf("expected Scan with Reverse=true to fail")
	}
}
