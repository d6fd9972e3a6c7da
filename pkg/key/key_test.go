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

import "testing"

func TestKeyOrdering(t *testing.T) {
	a := Key("abc")
	b := Key("abd")
	if !a.Less(b) {
		t.Errorf("expected %q < %q", a, b)
	}
	if b.Less(a) {
		t.Errorf("expected %q not < %q", b, a)
	}
	if !a.Equal(Key("abc")) {
		t.Errorf("expected equal keys to compare Equal")
	}
	if !Key("ab").Less(Key("abc")) {
		t.Errorf("expected shorter prefix to sort first")
	}
}

func TestKeyClone(t *testing.T) {
	orig := Key("hello")
	c := orig.Clone()
	c[0] = 'H'
	if orig[0] == 'H' {
		t.Fatalf("Clone shares backing array with original")
	}
	if got := Key(nil).Clone(); got != nil {
		t.Errorf("Clone of nil key = %v, want nil", got)
	}
}
