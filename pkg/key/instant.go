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

package key

import (
	"time"

	"merkledb.io/pkg/merr"
)

// InstantLexicoder encodes an instant as epoch-milliseconds using the
// integer lexicoder.
type InstantLexicoder struct{}

func (InstantLexicoder) Encode(v any) ([]byte, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, merr.InvalidArgumentf("instant lexicoder: value %T is not a time.Time", v)
	}
	return EncodeInt64(t.UnixMilli()), nil
}

func (InstantLexicoder) Decode(b []byte) (any, error) {
	ms, err := DecodeInt64(b)
	if err != nil {
		return nil, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
