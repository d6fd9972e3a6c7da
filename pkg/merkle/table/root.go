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
	"merkledb.io/pkg/merkle/family"
	"merkledb.io/pkg/merkle/store"
	"merkledb.io/pkg/merr"
)

// Root is a table's persisted configuration plus its two pointers into
// the content-addressed graph: the data-tree root (nil for an empty
// table) and the not-yet-flushed patch tablet (nil if nothing has been
// flushed since the last full apply). Unlike index.Node, Root does not
// carry the data tree's height explicitly — a peek at the pointed-to
// node's own type tag (partition vs. index, and the index's own Height
// field) recovers it, so the root payload never needs to be rewritten
// just because depth changed deeper in the tree. See treeHeight in
// table.go.
type Root struct {
	FanOut         int
	PartitionLimit int
	PatchLimit     int
	Families       family.Spec
	KeyCoder       key.Lexicoder
	PrimaryKey     string
	Data           *store.Link
	Patch          *store.Link
	Count          int64
}

// TypeTag is the persisted node type tag for a table root.
const TypeTag = "table"

func (r Root) validate() error {
	if r.FanOut < 4 {
		return merr.InvalidArgumentf("table: fan-out %d is below the minimum of 4", r.FanOut)
	}
	if r.PartitionLimit < 1 {
		return merr.InvalidArgumentf("table: partition-limit must be positive")
	}
	if r.PatchLimit < 1 {
		return merr.InvalidArgumentf("table: patch-limit must be positive")
	}
	if r.PrimaryKey == "" {
		return merr.InvalidArgumentf("table: primary-key field must be set")
	}
	if r.KeyCoder == nil {
		return merr.InvalidArgumentf("table: key-lexicoder must be set")
	}
	return r.Families.Validate()
}

// ToPayload encodes r. The key-lexicoder itself is not serialized: like
// the block store and reference tracker, the lexicoder catalog is an
// external collaborator and a table's opener is expected to supply
// the same KeyCoder value it was created with.
func (r Root) ToPayload() store.Payload {
	families := make(map[string]any, len(r.Families))
	for fam, fields := range r.Families {
		list := make([]any, len(fields))
		for i, f := range fields {
			list[i] = f
		}
		families[fam] = list
	}
	p := store.Payload{
		TypeTag: TypeTag,
		Data: map[string]any{
			"fan_out":         r.FanOut,
			"partition_limit": r.PartitionLimit,
			"patch_limit":     r.PatchLimit,
			"families":        families,
			"primary_key":     r.PrimaryKey,
			"count":           r.Count,
		},
	}
	if r.Data != nil {
		p.Links = append(p.Links, store.Link{Name: "data", Target: r.Data.Target, Size: r.Data.Size})
	}
	if r.Patch != nil {
		p.Links = append(p.Links, store.Link{Name: "patch", Target: r.Patch.Target, Size: r.Patch.Size})
	}
	return p
}

// FromPayload decodes a table root. coder and families are supplied by
// the caller rather than recovered from p: the lexicoder catalog lives
// outside the content-addressed graph, and the "families" entry that
// ToPayload writes is not read back.
func FromPayload(p store.Payload, coder key.Lexicoder, families family.Spec) (Root, error) {
	if p.TypeTag != TypeTag {
		return Root{}, merr.SpecViolationf("table: expected type tag %q, got %q", TypeTag, p.TypeTag)
	}
	root := Root{
		FanOut:         asInt(p.Data["fan_out"]),
		PartitionLimit: asInt(p.Data["partition_limit"]),
		PatchLimit:     asInt(p.Data["patch_limit"]),
		Families:       families,
		KeyCoder:       coder,
		PrimaryKey:     asString(p.Data["primary_key"]),
		Count:          int64(asInt(p.Data["count"])),
	}
	for _, l := range p.Links {
		l := l
		switch l.Name {
		case "data":
			root.Data = &l
		case "patch":
			root.Patch = &l
		}
	}
	return root, nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
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
