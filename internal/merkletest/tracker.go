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

package merkletest

import (
	"sync"

	"merkledb.io/pkg/merkle/store"
)

// MemTracker is an in-memory store.Tracker. Like MemStore it serializes
// all access behind a single mutex.
type MemTracker struct {
	mu      sync.Mutex
	refs    map[string]store.Hash
	history map[string][]store.RefEntry
}

func NewMemTracker() *MemTracker {
	return &MemTracker{
		refs:    make(map[string]store.Hash),
		history: make(map[string][]store.RefEntry),
	}
}

func (t *MemTracker) GetRef(name string) (store.Hash, int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h := t.history[name]
	if len(h) == 0 {
		return store.Hash{}, 0, nil
	}
	last := h[len(h)-1]
	return last.Hash, last.Version, nil
}

func (t *MemTracker) SetRef(name string, hash store.Hash) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	version := len(t.history[name]) + 1
	entry := store.RefEntry{Hash: hash, Version: version}
	t.history[name] = append(t.history[name], entry)
	t.refs[name] = hash
	return version, nil
}

func (t *MemTracker) History(name string) ([]store.RefEntry, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]store.RefEntry, len(t.history[name]))
	copy(out, t.history[name])
	return out, nil
}
