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

package store

import (
	"context"
	"errors"
)

// ErrMissingNode is returned by a Store when a Hash has no corresponding
// block: a single sentinel the caller tests with errors.Is rather than a
// typed error per store implementation.
var ErrMissingNode = errors.New("store: no block for hash")

// Link is a named, sized pointer from one node to another. Name is
// empty for unnamed/positional links such as an index node's child slots.
type Link struct {
	Name   string
	Target Hash
	Size   int64
}

// Payload is the content of a single stored node: a type tag identifying
// which module encoded it (tablet, index node, partition, patch tablet,
// table root...), a bag of scalar fields and a list of links to child
// nodes. This is the node representation every package in pkg/merkle
// serializes to and deserializes from; one shape covers every node kind.
type Payload struct {
	TypeTag string
	Data    map[string]any
	Links   []Link
}

// Store is the content-addressed block store the data-tree engine reads
// and writes through. It is an external collaborator; this
// package only declares the interface production code depends on.
// internal/merkletest provides an in-memory implementation for tests.
type Store interface {
	// Put encodes and stores p, returning the Hash of the encoded bytes.
	// Put is idempotent: storing the same Payload twice returns the same
	// Hash and is not an error.
	Put(ctx context.Context, p Payload) (Hash, error)

	// Get retrieves the Payload previously stored under h. It returns
	// ErrMissingNode, wrapped with merr.MissingNode by callers, if no
	// block exists for h.
	Get(ctx context.Context, h Hash) (Payload, error)
}

// Codec serializes and deserializes Payloads to the bytes a Store hashes
// and persists. Kept distinct from Store so the wire format (e.g. JSON in
// internal/merkletest, or a binary schema in production) can vary
// independently of the block storage backend.
type Codec interface {
	Encode(p Payload) ([]byte, error)
	Decode(b []byte) (Payload, error)
}
