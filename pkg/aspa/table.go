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
	"sync"

	"github.com/routesec/rpkitables/pkg/log"
	"github.com/routesec/rpkitables/pkg/metrics"
	"github.com/routesec/rpkitables/pkg/private/serrors"
	"github.com/routesec/rpkitables/pkg/session"
)

// UpdateMode selects the active update mechanism of a table.
type UpdateMode int

const (
	// UpdateModeSwapIn builds a replacement record array aside and swaps it
	// in atomically. Readers never observe intermediate states.
	UpdateModeSwapIn UpdateMode = iota
	// UpdateModeInPlace splices the live record array under the write lock
	// and supports undoing a partially applied batch.
	UpdateModeInPlace
)

// Listener is notified about every record added to or removed from the
// table. Callbacks run on the updating goroutine after the change is visible
// to readers; a callback that queries the table observes the post-update
// state. Callbacks must not update the table.
type Listener interface {
	RecordUpdated(t *Table, sess session.ID, rec Record, added bool)
}

// Metrics is the set of optional table metrics. Nil members are not
// recorded.
type Metrics struct {
	// RecordsAdded counts record additions announced to listeners.
	RecordsAdded metrics.Counter
	// RecordsRemoved counts record removals announced to listeners.
	RecordsRemoved metrics.Counter
	// UpdatesApplied counts update batches that took effect.
	UpdatesApplied metrics.Counter
	// UpdatesFailed counts update batches rejected during validation or
	// application.
	UpdatesFailed metrics.Counter
	// Records tracks the current total record count across all sessions.
	Records metrics.Gauge
}

// Config configures a table at construction time.
type Config struct {
	// Mode selects the update mechanism. Defaults to UpdateModeSwapIn.
	Mode UpdateMode
	// NotifyNoOps makes annihilating add/remove pairs announce a paired
	// add+remove to the listener instead of staying silent.
	NotifyNoOps bool
	// Listener receives per-record change notifications. Optional.
	Listener Listener
	// Metrics instruments the table. Optional.
	Metrics Metrics
	// Logger is used for debug logging of applied batches. Defaults to the
	// root logger.
	Logger log.Logger
}

// binding pairs one cache session with its record store. A binding is
// created on the session's first update and destroyed when the session is
// removed from the table.
type binding struct {
	sess  session.ID
	array *recordArray
}

// Table is the ASPA validation table. Any number of goroutines may verify
// hops concurrently; at most one goroutine may update the table at a time,
// serialized by the caller (in practice the RTR session's update loop).
type Table struct {
	cfg Config

	mu       sync.RWMutex
	bindings []*binding
}

// NewTable returns an empty table with the given configuration.
func NewTable(cfg Config) *Table {
	if cfg.Logger == nil {
		cfg.Logger = log.Root()
	}
	return &Table{cfg: cfg}
}

// CheckHop classifies the (customer, provider) hop of an AS_PATH over the
// combined stores of all sessions. If no session attests providers for the
// customer ASN the hop is unattested; otherwise the providers across all
// attestations form a whitelist.
func (t *Table) CheckHop(customerASN, providerASN uint32) HopResult {
	t.mu.RLock()
	defer t.mu.RUnlock()
	attested := false
	for _, b := range t.bindings {
		rec, ok := b.array.lookup(customerASN)
		if !ok {
			continue
		}
		attested = true
		if rec.HasProvider(providerASN) {
			return ProviderPlus
		}
	}
	if !attested {
		return NoAttestation
	}
	return NotProviderPlus
}

// RemoveSession drops the binding of the given session, withdrawing only
// that session's contributions. Every removed record is announced to the
// listener.
func (t *Table) RemoveSession(sess session.ID) {
	t.mu.Lock()
	removed := t.detachLocked(sess)
	count := t.recordCountLocked()
	t.mu.Unlock()
	if removed == nil {
		return
	}
	metrics.GaugeSet(t.cfg.Metrics.Records, float64(count))
	for _, rec := range removed.records {
		t.notify(sess, rec, false)
	}
	log.SafeDebug(t.cfg.Logger, "removed session from ASPA table",
		"session", sess, "records", removed.len())
}

// SrcReplace replaces all records associated with sess in t with the records
// the source table holds for sess, transferring the source's store. The
// source binding is removed; a prior binding in t is discarded. Readers of
// either table observe the transfer as a single swap.
//
// With notifyDst, t's listener is told about every discarded record
// (removed) and every transferred record (added); with notifySrc, the source
// table's listener is told about every transferred record (removed).
func (t *Table) SrcReplace(src *Table, sess session.ID, notifyDst, notifySrc bool) error {
	if src == nil {
		return serrors.Join(ErrInvalidArgument, nil, "reason", "nil source table")
	}
	src.mu.Lock()
	moved := src.detachLocked(sess)
	srcCount := src.recordCountLocked()
	src.mu.Unlock()
	if moved == nil {
		return serrors.Join(ErrRecordNotFound, nil,
			"reason", "source table has no binding for session", "session", sess)
	}

	t.mu.Lock()
	var replaced *recordArray
	if b := t.bindingLocked(sess); b != nil {
		replaced = b.array
		b.array = moved
	} else {
		t.bindings = append(t.bindings, &binding{sess: sess, array: moved})
	}
	dstCount := t.recordCountLocked()
	t.mu.Unlock()

	metrics.GaugeSet(src.cfg.Metrics.Records, float64(srcCount))
	metrics.GaugeSet(t.cfg.Metrics.Records, float64(dstCount))
	if notifySrc {
		for _, rec := range moved.records {
			src.notify(sess, rec, false)
		}
	}
	if notifyDst {
		if replaced != nil {
			for _, rec := range replaced.records {
				t.notify(sess, rec, false)
			}
		}
		for _, rec := range moved.records {
			t.notify(sess, rec, true)
		}
	}
	log.SafeDebug(t.cfg.Logger, "replaced session records from source table",
		"session", sess, "records", moved.len())
	return nil
}

// ForEach calls fn for every record in the table, grouped by session in
// ascending customer ASN order. The table is read-locked for the duration;
// fn must not call back into the table.
func (t *Table) ForEach(fn func(sess session.ID, rec Record)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, b := range t.bindings {
		for _, rec := range b.array.records {
			fn(b.sess, rec)
		}
	}
}

// bindingLocked returns the binding of sess, or nil. Callers hold mu.
func (t *Table) bindingLocked(sess session.ID) *binding {
	for _, b := range t.bindings {
		if b.sess == sess {
			return b
		}
	}
	return nil
}

// bindOrGetLocked returns the binding of sess, creating an empty one if the
// session has not contributed yet. Callers hold mu for writing.
func (t *Table) bindOrGetLocked(sess session.ID) *binding {
	if b := t.bindingLocked(sess); b != nil {
		return b
	}
	b := &binding{sess: sess, array: newRecordArray(0)}
	t.bindings = append(t.bindings, b)
	return b
}

// detachLocked removes the binding of sess and returns its store, or nil if
// the session has no binding. Callers hold mu for writing.
func (t *Table) detachLocked(sess session.ID) *recordArray {
	for i, b := range t.bindings {
		if b.sess == sess {
			t.bindings = append(t.bindings[:i], t.bindings[i+1:]...)
			return b.array
		}
	}
	return nil
}

func (t *Table) recordCountLocked() int {
	n := 0
	for _, b := range t.bindings {
		n += b.array.len()
	}
	return n
}

// notify announces a single record change to the listener and bumps the
// per-record metrics.
func (t *Table) notify(sess session.ID, rec Record, added bool) {
	if added {
		metrics.CounterInc(t.cfg.Metrics.RecordsAdded)
	} else {
		metrics.CounterInc(t.cfg.Metrics.RecordsRemoved)
	}
	if t.cfg.Listener != nil {
		t.cfg.Listener.RecordUpdated(t, sess, rec, added)
	}
}

// notifyOps announces an applied batch in post-normalization order. No-op
// pairs are included only if the table is configured to notify them.
func (t *Table) notifyOps(sess session.ID, ops []Operation) {
	for i := range ops {
		op := &ops[i]
		if op.NoOp && !t.cfg.NotifyNoOps {
			continue
		}
		t.notify(sess, op.Record, op.Kind == OpAdd)
	}
}

// Update applies a batch using the table's configured update mechanism and
// handles the follow-up steps: swap-in updates are applied and finished,
// failed in-place updates are undone, and operation slots are cleaned up
// either way. The batch is reordered in place. On failure the returned error
// carries the offending operation's batch index as context.
func (t *Table) Update(sess session.ID, ops []Operation) error {
	switch t.cfg.Mode {
	case UpdateModeInPlace:
		failed, err := t.UpdateInPlace(sess, ops)
		if err != nil && failed != nil {
			if uerr := t.UndoUpdate(sess, ops, failed); uerr != nil {
				err = serrors.Wrap("undo after failed update", uerr,
					"update_error", err)
			}
		}
		UpdateCleanup(ops)
		return err
	default:
		u, err := t.ComputeUpdate(sess, ops)
		if err == nil {
			u.Apply()
		}
		u.Finish()
		return err
	}
}
