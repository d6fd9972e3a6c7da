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

// Package family implements the table-level family layout: the mapping
// from family name to the set of field keys stored together in one tablet
// per partition. It is shared by pkg/merkle/table (where the layout is
// configured) and pkg/merkle/partition (where it drives tablet
// construction and read-path tablet selection).
package family

import "merkledb.io/pkg/merr"

// Base is the reserved, implicit family name. It never appears as a key in
// a Spec; every partition always has a base tablet regardless of what the
// caller configures.
const Base = "base"

// Spec maps a family name to its disjoint set of field keys.
type Spec map[string][]string

// Validate checks that Base is not used as an explicit family name and
// that no field key is claimed by more than one family.
func (s Spec) Validate() error {
	if _, ok := s[Base]; ok {
		return merr.InvalidArgumentf("family: %q is a reserved family name", Base)
	}
	seen := make(map[string]string)
	for fam, fields := range s {
		for _, f := range fields {
			if owner, ok := seen[f]; ok {
				return merr.InvalidArgumentf("family: field %q claimed by both %q and %q", f, owner, fam)
			}
			seen[f] = fam
		}
	}
	return nil
}

// FamilyOf returns which family claims field, or Base if none does.
func (s Spec) FamilyOf(field string) string {
	for fam, fields := range s {
		for _, f := range fields {
			if f == field {
				return fam
			}
		}
	}
	return Base
}

// Select returns the sub-map of fields restricted to the field keys
// belonging to fam ("base" selects the residual: every field not claimed
// by any other family).
func (s Spec) Select(fam string, fields map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range fields {
		if s.FamilyOf(k) == fam {
			out[k] = v
		}
	}
	return out
}

// Families returns every configured non-base family name, the families a
// partition must build one tablet for besides base.
func (s Spec) Families() []string {
	out := make([]string, 0, len(s))
	for fam := range s {
		out = append(out, fam)
	}
	return out
}

// FamiliesCovering reports whether fields (a requested read projection) is
// entirely covered by non-base families, in which case the base tablet
// need not be loaded for a read.
func (s Spec) FamiliesCovering(fields map[string]bool) bool {
	for f := range fields {
		if s.FamilyOf(f) == Base {
			return false
		}
	}
	return true
}
