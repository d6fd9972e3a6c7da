/*
Copyright 2013 The Camlistore Authors

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

package seq

import (
	"reflect"
	"testing"
)

func collect(t *testing.T, s Seq[int]) []int {
	t.Helper()
	out, err := Collect(s)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return out
}

func TestSliceAndEmpty(t *testing.T) {
	if got := collect(t, Slice([]int{1, 2, 3})); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("Slice = %v", got)
	}
	if got := collect(t, Empty[int]()); len(got) != 0 {
		t.Errorf("Empty = %v, want none", got)
	}
}

func TestConcat(t *testing.T) {
	got := collect(t, Concat(Slice([]int{1, 2}), Slice([]int{}), Slice([]int{3})))
	want := []int{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Concat = %v, want %v", got, want)
	}
}

func TestFilter(t *testing.T) {
	got := collect(t, Filter(Slice([]int{1, 2, 3, 4, 5}), func(v int) bool { return v%2 == 0 }))
	want := []int{2, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter = %v, want %v", got, want)
	}
}

func TestMap(t *testing.T) {
	doubled, err := Collect(Map(Slice([]int{1, 2, 3}), func(v int) int { return v * 2 }))
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := []int{2, 4, 6}
	if !reflect.DeepEqual(doubled, want) {
		t.Errorf("Map = %v, want %v", doubled, want)
	}
}

func TestTakeAndDrop(t *testing.T) {
	if got := collect(t, Take(Slice([]int{1, 2, 3, 4}), 2)); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Take(2) = %v", got)
	}
	if got := collect(t, Take(Slice([]int{1, 2}), 10)); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("Take(10) over shorter seq = %v", got)
	}
	if got := collect(t, Drop(Slice([]int{1, 2, 3, 4}), 2)); !reflect.DeepEqual(got, []int{3, 4}) {
		t.Errorf("Drop(2) = %v", got)
	}
	if got := collect(t, Drop(Slice([]int{1, 2}), 10)); len(got) != 0 {
		t.Errorf("Drop(10) over shorter seq = %v, want none", got)
	}
}

func TestMergeSortedLeftWinsOnTie(t *testing.T) {
	left := Slice([]int{1, 3, 3, 5})
	right := Slice([]int{2, 3, 4})
	cmp := func(a, b int) int { return a - b }
	got := collect(t, MergeSorted(left, right, cmp))
	// On the tied key 3, left's single 3 wins and right's 3 is dropped,
	// but left's own second 3 still comes from advancing left once.
	want := []int{1, 2, 3, 3, 4, 5}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MergeSorted = %v, want %v", got, want)
	}
}

func TestMergeSortedEmptySides(t *testing.T) {
	cmp := func(a, b int) int { return a - b }
	got := collect(t, MergeSorted(Empty[int](), Slice([]int{1, 2}), cmp))
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("MergeSorted(empty, x) = %v", got)
	}
	got = collect(t, MergeSorted(Slice([]int{1, 2}), Empty[int](), cmp))
	if !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("MergeSorted(x, empty) = %v", got)
	}
}

type errCloseSeq struct {
	Seq[int]
	closeErr error
	closed   bool
}

func (e *errCloseSeq) Close() error {
	e.closed = true
	return e.closeErr
}

func TestConcatClosesAllEvenOnError(t *testing.T) {
	a := &errCloseSeq{Seq: Slice([]int{1})}
	b := &errCloseSeq{Seq: Slice([]int{2}), closeErr: errBoom}
	c := Concat[int](a, b)
	if _, err := Collect(c); err != errBoom {
		t.Fatalf("Collect error = %v, want errBoom", err)
	}
	if !a.closed || !b.closed {
		t.Fatalf("expected both sub-seqs closed, got a=%v b=%v", a.closed, b.closed)
	}
}

var errBoom = boomError{}

type boomError struct{}

func (boomError) Error() string { return "boom" }
