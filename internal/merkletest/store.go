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

// Package merkletest provides in-memory stand-ins for the external
// collaborators pkg/merkle/store declares only as interfaces, so the tree,
// partition, tablet and table engine packages have something concrete to
// exercise in tests: a mutex-guarded map, for test and development
// purposes only.
package merkletest

import (
	"context"
	"sync"

	"merkledb.io/pkg/merkle/store"
)

// MemStore is a content-addressed block store backed only by memory.
type MemStore struct {
	mu     sync.Mutex
	codec  store.Codec
	blocks map[store.Hash][]byte
}

// NewMemStore returns a MemStore that encodes payloads with codec before
// hashing and storing them.
func NewMemStore(codec store.Codec) *MemStore {
	return &MemStore{codec: codec, blocks: make(map[store.Hash][]byte)}
}

func (s *MemStore) Put(_ context.Context, p store.Payload) (store.Hash, error) {
	b, err := s.codec.Encode(p)
	if err != nil {
		return store.Hash{}, err
	}
	h := store.Sum(b)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blocks[h]; !ok {
		s.blocks[h] = b
	}
	return h, nil
}

func (s *MemStore) Get(_ context.Context, h store.Hash) (store.Payload, error) {
	s.mu.Lock()
	b, ok := s.blocks[h]
	s.mu.Unlock()
	if !ok {
		return store.Payload{}, store.ErrMissingNode
	}
	return s.codec.Decode(b)
}

// Len reports the number of distinct blocks currently stored, useful in
// tests asserting on garbage-collection or dedup behavior.
func (s *MemStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blocks)
}
