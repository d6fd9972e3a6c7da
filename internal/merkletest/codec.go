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
	"encoding/json"

	"merkledb.io/pkg/merkle/store"
)

// JSONCodec serializes Payloads as plain JSON: blobs are just JSON
// objects with a type field. Adequate for tests, not a production wire
// format.
type JSONCodec struct{}

type wireLink struct {
	Name   string     `json:"name,omitempty"`
	Target store.Hash `json:"target"`
	Size   int64      `json:"size"`
}

type wirePayload struct {
	TypeTag string         `json:"type"`
	Data    map[string]any `json:"data,omitempty"`
	Links   []wireLink     `json:"links,omitempty"`
}

func (JSONCodec) Encode(p store.Payload) ([]byte, error) {
	w := wirePayload{TypeTag: p.TypeTag, Data: p.Data}
	for _, l := range p.Links {
		w.Links = append(w.Links, wireLink{Name: l.Name, Target: l.Target, Size: l.Size})
	}
	return json.Marshal(w)
}

func (JSONCodec) Decode(b []byte) (store.Payload, error) {
	var w wirePayload
	if err := json.Unmarshal(b, &w); err != nil {
		return store.Payload{}, err
	}
	p := store.Payload{TypeTag: w.TypeTag, Data: w.Data}
	for _, l := range w.Links {
		p.Links = append(p.Links, store.Link{Name: l.Name, Target: l.Target, Size: l.Size})
	}
	return p, nil
}
