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

// Package merge implements the two knobs controlling how a new write
// combines with an existing record: a whole-record function, or a
// per-field function (either uniform or keyed by field name). This is
// modeled as a closed sum type dispatched by exhaustive case analysis,
// not an interface with multiple implementations, because exactly one
// merger may be active at a time.
package merge

import "merkledb.io/pkg/merr"

// RecordFunc computes the merged record for key from the old (possibly
// nil, if none existed) and new record maps.
type RecordFunc func(key []byte, old, new map[string]any) map[string]any

// FieldFunc computes the merged value for a single field from its old and
// new values. A nil old means the field was previously absent. It is
// called only for fields present in the incoming record, so a nil new
// means that record set the field to nil; a nil result drops the field.
type FieldFunc func(field string, old, new any) any

// Options configures Resolve. Exactly one of Record or (Field or Fields)
// may be set; supplying a record merger alongside a field merger is an
// argument error.
type Options struct {
	Record RecordFunc
	Field  FieldFunc
	Fields map[string]FieldFunc
}

// Merger is the resolved, closed sum type over the two merger kinds plus
// the implicit default. Apply performs the merge; there is no other way
// to reach the underlying function.
type Merger struct {
	record RecordFunc
	field  FieldFunc
	fields map[string]FieldFunc
}

// Resolve validates opts and returns the Merger to apply. Supplying both
// a Record merger and a Field/Fields merger is rejected as an
// invalid-argument error. Supplying neither yields the default: map-merge
// with nil-valued fields dropping the field.
func Resolve(opts Options) (Merger, error) {
	hasRecord := opts.Record != nil
	hasField := opts.Field != nil || opts.Fields != nil
	if hasRecord && hasField {
		return Merger{}, merr.InvalidArgumentf("merge: both a record merger and a field merger were supplied")
	}
	return Merger{record: opts.Record, field: opts.Field, fields: opts.Fields}, nil
}

// Apply merges newRecord into old (old may be nil for a fresh key).
// Tombstone handling happens above this layer; Apply is never invoked for
// a deletion.
func (m Merger) Apply(key []byte, old, newRecord map[string]any) map[string]any {
	if m.record != nil {
		return m.record(key, old, newRecord)
	}
	out := make(map[string]any, len(old)+len(newRecord))
	for f, v := range old {
		out[f] = v
	}
	for f, v := range newRecord {
		merged := m.mergeField(f, old[f], v)
		if merged == nil {
			delete(out, f)
			continue
		}
		out[f] = merged
	}
	return out
}

func (m Merger) mergeField(field string, old, newValue any) any {
	if fn, ok := m.fields[field]; ok {
		return fn(field, old, newValue)
	}
	if m.field != nil {
		return m.field(field, old, newValue)
	}
	return newValue
}
