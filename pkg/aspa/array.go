// Copyright 2025 RouteSec Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package aspa

import (
	"sort"
)

// recordArray is the per-session record store: records sorted strictly
// ascending by customer ASN. Record addresses are not stable across
// insertions and removals; callers work with indices or copies.
type recordArray struct {
	records []Record
}

func newRecordArray(capacity int) *recordArray {
	return &recordArray{records: make([]Record, 0, capacity)}
}

func (a *recordArray) len() int {
	return len(a.records)
}

// search returns the index of the record with the given customer ASN and
// true, or the insertion index that keeps the array sorted and false.
func (a *recordArray) search(customerASN uint32) (int, bool) {
	i := sort.Search(len(a.records), func(i int) bool {
		return a.records[i].CustomerASN >= customerASN
	})
	if i < len(a.records) && a.records[i].CustomerASN == customerASN {
		return i, true
	}
	return i, false
}

// lookup returns a copy of the record with the given customer ASN.
func (a *recordArray) lookup(customerASN uint32) (Record, bool) {
	i, ok := a.search(customerASN)
	if !ok {
		return Record{}, false
	}
	return a.records[i], true
}

// insertAt inserts rec at index i. The caller is responsible for i keeping
// the ascending order intact.
func (a *recordArray) insertAt(i int, rec Record) {
	a.records = append(a.records, Record{})
	copy(a.records[i+1:], a.records[i:])
	a.records[i] = rec
}

// removeAt removes and returns the record at index i, for potential
// reinsertion during undo.
func (a *recordArray) removeAt(i int) Record {
	rec := a.records[i]
	copy(a.records[i:], a.records[i+1:])
	a.records[len(a.records)-1] = Record{}
	a.records = a.records[:len(a.records)-1]
	return rec
}

// append adds rec behind the last record. The caller is responsible for rec
// keeping the ascending order intact.
func (a *recordArray) append(rec Record) {
	a.records = append(a.records, rec)
}
