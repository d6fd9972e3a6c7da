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

// RefEntry is one entry in a named ref's commit history.
type RefEntry struct {
	Hash    Hash
	Version int
}

// Tracker maps a named table to its current root Hash, with optimistic
// versioning for compare-and-swap commits. Like Store, this is an
// external collaborator; production code only depends on this interface.
type Tracker interface {
	// GetRef returns the current hash and version for name. A name with
	// no prior SetRef call has version 0 and a zero Hash.
	GetRef(name string) (hash Hash, version int, err error)

	// SetRef advances name's ref to hash, incrementing and returning the
	// version. Implementations serialize concurrent SetRef calls for the
	// same name; a table commit that raced another writer observes this
	// as an unexpected jump in version between its GetRef and SetRef and
	// must re-resolve before retrying.
	SetRef(name string, hash Hash) (version int, err error)

	// History returns every version ever committed for name, oldest
	// first.
	History(name string) ([]RefEntry, error)
}
