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
	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/merge"
	"merkledb.io/pkg/merr"
)

// ErrNotImplemented is returned by any read path given Options.Reverse.
// Reverse scans are not implemented yet; rejecting the option explicitly
// beats silently scanning forward.
var ErrNotImplemented = merr.InvalidArgumentf("table: reverse scans are not implemented")

// Options configures the read APIs.
type Options struct {
	// Fields restricts the returned field map to this set; nil/empty
	// means every field.
	Fields map[string]bool
	MinKey key.Key
	MaxKey key.Key
	Offset int
	Limit  int
	// Reverse is documented but always rejected; see ErrNotImplemented.
	Reverse bool
}

func (o Options) validate() error {
	if o.Reverse {
		return ErrNotImplemented
	}
	return nil
}

// InsertOptions configures Insert: mutually exclusive record- or
// field-level merge functions.
type InsertOptions struct {
	merge.Options
}

// FlushOptions configures Flush.
type FlushOptions struct {
	// ApplyPatch forces a full batch update against the data tree even
	// if the accumulated changes are within PatchLimit.
	ApplyPatch bool
}
