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

package index

import (
	"context"
	"encoding/hex"

	"merkledb.io/pkg/key"
	"merkledb.io/pkg/merkle/store"
	"merkledb.io/pkg/merr"
)

func (n *Node) ToPayload() store.Payload {
	keys := make([]any, len(n.Keys))
	for i, k := range n.Keys {
		keys[i] = hex.EncodeToString(k)
	}
	p := store.Payload{
		TypeTag: TypeTag,
		Data: map[string]any{
			"height":    n.Height,
			"separator": keys,
			"count":     n.Count,
			"first_key": hex.EncodeToString(n.First),
			"last_key":  hex.EncodeToString(n.Last),
		},
	}
	p.Links = append(p.Links, n.Children...)
	return p
}

func FromPayload(p store.Payload) (*Node, error) {
	if p.TypeTag != TypeTag {
		return nil, merr.SpecViolationf("index: expected type tag %q, got %q", TypeTag, p.TypeTag)
	}
	raw, _ := p.Data["separator"].([]any)
	keys := make([]key.Key, 0, len(raw))
	for _, r := range raw {
		s, _ := r.(string)
		kb, err := hex.DecodeString(s)
		if err != nil {
			return nil, merr.SpecViolationf("index: malformed separator key: %v", err)
		}
		keys = append(keys, key.Key(kb))
	}
	first, err := hex.DecodeString(asString(p.Data["first_key"]))
	if err != nil {
		return nil, merr.SpecViolationf("index: malformed first_key: %v", err)
	}
	last, err := hex.DecodeString(asString(p.Data["last_key"]))
	if err != nil {
		return nil, merr.SpecViolationf("index: malformed last_key: %v", err)
	}
	return &Node{
		Height:   asInt(p.Data["height"]),
		Keys:     keys,
		Children: append([]store.Link(nil), p.Links...),
		Count:    int64(asInt(p.Data["count"])),
		First:    key.Key(first),
		Last:     key.Key(last),
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

// Put stores n and returns its Hash.
func Put(ctx context.Context, st store.Store, n *Node) (store.Hash, error) {
	return st.Put(ctx, n.ToPayload())
}

// Get loads the index node at h.
func Get(ctx context.Context, st store.Store, h store.Hash) (*Node, error) {
	p, err := st.Get(ctx, h)
	if err != nil {
		return nil, merr.WrapMissingNode(err, "index: loading %s", h)
	}
	return FromPayload(p)
}
