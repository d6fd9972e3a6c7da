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

package partition

import (
	"context"
	"encoding/hex"

	"merkledb.io/pkg/bloom"
	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/store"
	"merkledb.io/pkg/merr"
)

// TypeTag is the persisted node type tag.
const TypeTag = "partition"

func (part *Partition) ToPayload() store.Payload {
	k, bits, data := part.Filter.MarshalTriple()
	p := store.Payload{
		TypeTag: TypeTag,
		Data: map[string]any{
			"count":        part.Count,
			"first_key":    hex.EncodeToString(part.FirstKey),
			"last_key":     hex.EncodeToString(part.LastKey),
			"filter_k":     k,
			"filter_bits":  bits,
			"filter_bytes": hex.EncodeToString(data),
			"limit":        part.Limit,
		},
	}
	for fam, link := range part.Tablets {
		p.Links = append(p.Links, store.Link{Name: fam, Target: link.Target, Size: link.Size})
	}
	return p
}

func FromPayload(p store.Payload) (*Partition, error) {
	if p.TypeTag != TypeTag {
		return nil, merr.SpecViolationf("partition: expected type tag %q, got %q", TypeTag, p.TypeTag)
	}
	first, err := hex.DecodeString(asString(p.Data["first_key"]))
	if err != nil {
		return nil, merr.SpecViolationf("partition: malformed first_key: %v", err)
	}
	last, err := hex.DecodeString(asString(p.Data["last_key"]))
	if err != nil {
		return nil, merr.SpecViolationf("partition: malformed last_key: %v", err)
	}
	fdata, err := hex.DecodeString(asString(p.Data["filter_bytes"]))
	if err != nil {
		return nil, merr.SpecViolationf("partition: malformed filter_bytes: %v", err)
	}
	filter, err := bloom.UnmarshalTriple(asInt(p.Data["filter_k"]), asInt(p.Data["filter_bits"]), fdata)
	if err != nil {
		return nil, err
	}
	tablets := make(map[string]store.Link, len(p.Links))
	for _, l := range p.Links {
		tablets[l.Name] = l
	}
	return &Partition{
		Count:    int64(asInt(p.Data["count"])),
		FirstKey: key.Key(first),
		LastKey:  key.Key(last),
		Filter:   filter,
		Tablets:  tablets,
		Limit:    asInt(p.Data["limit"]),
	}, nil
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

// Put stores part and returns its Hash.
func Put(ctx context.Context, st store.Store, part *Partition) (store.Hash, error) {
	return st.Put(ctx, part.ToPayload())
}

// Get loads the partition at h.
func Get(ctx context.Context, st store.Store, h store.Hash) (*Partition, error) {
	p, err := st.Get(ctx, h)
	if err != nil {
		return nil, merr.WrapMissingNode(err, "partition: loading %s", h)
	}
	return FromPayload(p)
}
