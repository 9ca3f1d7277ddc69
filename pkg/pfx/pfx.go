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

// Package pfx implements the prefix origin validation table: validated ROA
// payloads received from RTR cache sessions, indexed by a pair of
// longest-prefix-first search trees (one per address family). Given a route
// announcement, the table answers whether the origin AS is authorized to
// originate the prefix.
package pfx

import (
	"net/netip"
	"sync"

	"github.com/routesec/rpkitables/pkg/log"
	"github.com/routesec/rpkitables/pkg/metrics"
	"github.com/routesec/rpkitables/pkg/private/serrors"
	"github.com/routesec/rpkitables/pkg/session"
	"github.com/routesec/rpkitables/private/lpfst"
)

// Errors returned by table operations.
var (
	// ErrDuplicateRecord indicates an added record is already present.
	ErrDuplicateRecord = serrors.New("duplicate record")
	// ErrRecordNotFound indicates a removal targets an absent record.
	ErrRecordNotFound = serrors.New("record not found")
)

// State is the origin validation result for a route announcement.
type State int

const (
	// StateNotFound means no stored ROA covers the announced prefix.
	StateNotFound State = iota
	// StateValid means a covering ROA authorizes the origin AS for the
	// announced prefix length.
	StateValid
	// StateInvalid means covering ROAs exist but none matches the origin AS
	// and prefix length.
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateNotFound:
		return "NotFound"
	case StateValid:
		return "Valid"
	case StateInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Record is one validated ROA payload: the origin ASN authorized to announce
// the prefix at lengths from the prefix's own length up to MaxLen, and the
// session the payload was learned from.
type Record struct {
	ASN     uint32
	Prefix  netip.Prefix
	MaxLen  uint8
	Session session.ID
}

// UpdateFunc is called for every record added to or removed from the table.
// It runs on the updating goroutine and must not call back into the table.
type UpdateFunc func(rec Record, added bool)

// Metrics is the set of optional table metrics. Nil members are not
// recorded.
type Metrics struct {
	RecordsAdded   metrics.Counter
	RecordsRemoved metrics.Counter
	// Validations counts ValidateOrigin calls, labeled by result state.
	Validations metrics.Counter
	Records     metrics.Gauge
}

// Table is the prefix origin validation table. Reads may happen concurrently
// from any number of goroutines; updates for a single session are serialized
// by the caller.
type Table struct {
	updateFn UpdateFunc
	mtr      Metrics
	logger   log.Logger

	mu sync.RWMutex
	v4 *lpfst.Tree
	v6 *lpfst.Tree
}

// NewTable returns an empty table. updateFn may be nil.
func NewTable(updateFn UpdateFunc, mtr Metrics) *Table {
	return &Table{
		updateFn: updateFn,
		mtr:      mtr,
		logger:   log.Root(),
		v4:       lpfst.New(),
		v6:       lpfst.New(),
	}
}

// bucket holds all records sharing one prefix; it is the trie node payload.
type bucket struct {
	records []Record
}

// Add stores the record. Records are identified by (prefix, max length,
// origin ASN, session); adding the identical record again fails with
// ErrDuplicateRecord.
func (t *Table) Add(rec Record) error {
	rec.Prefix = rec.Prefix.Masked()
	if rec.Prefix.Addr().Is4In6() {
		rec.Prefix = netip.PrefixFrom(rec.Prefix.Addr().Unmap(), rec.Prefix.Bits())
	}
	t.mu.Lock()
	tree := t.treeFor(rec.Prefix.Addr())
	ref, found := tree.LookupExact(rec.Prefix)
	if found {
		bkt := tree.Data(ref).(*bucket)
		for _, r := range bkt.records {
			if r == rec {
				t.mu.Unlock()
				return serrors.Join(ErrDuplicateRecord, nil,
					"prefix", rec.Prefix, "asn", rec.ASN)
			}
		}
		bkt.records = append(bkt.records, rec)
	} else {
		tree.Insert(rec.Prefix, &bucket{records: []Record{rec}})
	}
	t.mu.Unlock()
	metrics.CounterInc(t.mtr.RecordsAdded)
	metrics.GaugeAdd(t.mtr.Records, 1)
	if t.updateFn != nil {
		t.updateFn(rec, true)
	}
	return nil
}

// Remove deletes the record. The record must match an existing one exactly,
// otherwise ErrRecordNotFound is returned.
func (t *Table) Remove(rec Record) error {
	rec.Prefix = rec.Prefix.Masked()
	if rec.Prefix.Addr().Is4In6() {
		rec.Prefix = netip.PrefixFrom(rec.Prefix.Addr().Unmap(), rec.Prefix.Bits())
	}
	t.mu.Lock()
	tree := t.treeFor(rec.Prefix.Addr())
	ref, found := tree.LookupExact(rec.Prefix)
	if !found {
		t.mu.Unlock()
		return serrors.Join(ErrRecordNotFound, nil,
			"prefix", rec.Prefix, "asn", rec.ASN)
	}
	bkt := tree.Data(ref).(*bucket)
	idx := -1
	for i, r := range bkt.records {
		if r == rec {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.mu.Unlock()
		return serrors.Join(ErrRecordNotFound, nil,
			"prefix", rec.Prefix, "asn", rec.ASN)
	}
	bkt.records = append(bkt.records[:idx], bkt.records[idx+1:]...)
	if len(bkt.records) == 0 {
		tree.Remove(rec.Prefix)
	}
	t.mu.Unlock()
	metrics.CounterInc(t.mtr.RecordsRemoved)
	metrics.GaugeAdd(t.mtr.Records, -1)
	if t.updateFn != nil {
		t.updateFn(rec, false)
	}
	return nil
}

// ValidateOrigin validates a route announcement against the stored ROAs per
// RFC 6811: NotFound if no ROA covers the prefix, Valid if a covering ROA
// matches the origin ASN and admits the announced prefix length, Invalid
// otherwise.
func (t *Table) ValidateOrigin(originASN uint32, prefix netip.Prefix) State {
	state, _ := t.ValidateOriginReasons(originASN, prefix)
	return state
}

// ValidateOriginReasons is ValidateOrigin, additionally returning the
// covering records that determined the result.
func (t *Table) ValidateOriginReasons(originASN uint32, prefix netip.Prefix) (State, []Record) {
	prefix = prefix.Masked()
	if prefix.Addr().Is4In6() {
		prefix = netip.PrefixFrom(prefix.Addr().Unmap(), prefix.Bits())
	}
	t.mu.RLock()
	tree := t.treeFor(prefix.Addr())
	var reasons []Record
	state := StateNotFound
	for _, ref := range tree.Covering(prefix.Addr(), uint8(prefix.Bits())) {
		bkt := tree.Data(ref).(*bucket)
		for _, r := range bkt.records {
			reasons = append(reasons, r)
			if state == StateValid {
				continue
			}
			state = StateInvalid
			if r.ASN != 0 && r.ASN == originASN && uint8(prefix.Bits()) <= r.MaxLen {
				state = StateValid
			}
		}
	}
	t.mu.RUnlock()
	metrics.CounterInc(metrics.CounterWith(t.mtr.Validations, "state", state.String()))
	return state, reasons
}

// SrcRemove drops every record learned from the given session, announcing
// each removal. Used when a cache session terminates.
func (t *Table) SrcRemove(sess session.ID) {
	var removed []Record
	t.mu.Lock()
	for _, tree := range []*lpfst.Tree{t.v4, t.v6} {
		var empty []netip.Prefix
		for _, ref := range tree.Nodes() {
			bkt := tree.Data(ref).(*bucket)
			kept := bkt.records[:0]
			for _, r := range bkt.records {
				if r.Session == sess {
					removed = append(removed, r)
				} else {
					kept = append(kept, r)
				}
			}
			bkt.records = kept
			if len(bkt.records) == 0 {
				empty = append(empty, tree.Prefix(ref))
			}
		}
		for _, p := range empty {
			tree.Remove(p)
		}
	}
	t.mu.Unlock()
	metrics.CounterAdd(t.mtr.RecordsRemoved, float64(len(removed)))
	metrics.GaugeAdd(t.mtr.Records, -float64(len(removed)))
	for _, rec := range removed {
		if t.updateFn != nil {
			t.updateFn(rec, false)
		}
	}
	log.SafeDebug(t.logger, "removed session from prefix table",
		"session", sess, "records", len(removed))
}

// ForEach calls fn for every stored record. The table is read-locked for the
// duration; fn must not call back into the table.
func (t *Table) ForEach(fn func(rec Record)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, tree := range []*lpfst.Tree{t.v4, t.v6} {
		for _, ref := range tree.Nodes() {
			for _, r := range tree.Data(ref).(*bucket).records {
				fn(r)
			}
		}
	}
}

// treeFor selects the family tree for the address. Callers hold mu.
func (t *Table) treeFor(addr netip.Addr) *lpfst.Tree {
	if addr.Is4() {
		return t.v4
	}
	return t.v6
}
