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

	"merkledb.io/pkg/merkle/store"
)

// Commit flushes t (forcing a full batch update if opts.ApplyPatch is
// set), persists the resulting root, and hands its hash to tr under
// name, which the tracker updates atomically. Commit is the one
// operation in this package that reaches past the Store into the Tracker
// collaborator; every other method only ever touches the block store.
func Commit(ctx context.Context, tr store.Tracker, name string, t *Table, opts FlushOptions) (*Table, int, error) {
	flushed, err := t.Flush(ctx, opts)
	if err != nil {
		return nil, 0, err
	}
	h, err := flushed.RootHash(ctx)
	if err != nil {
		return nil, 0, err
	}
	version, err := tr.SetRef(name, h)
	if err != nil {
		return nil, 0, err
	}
	return flushed, version, nil
}
