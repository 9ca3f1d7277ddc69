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
	"github.com/routesec/rpkitables/pkg/log"
	"github.com/routesec/rpkitables/pkg/metrics"
	"github.com/routesec/rpkitables/pkg/private/serrors"
	"github.com/routesec/rpkitables/pkg/session"
)

// Update is a computed swap-in update. It lives from ComputeUpdate through
// Finish and holds everything needed to apply the batch: the target binding
// and the replacement record array. While an Update is alive, no other
// mutation may touch the target binding; the caller's per-session update
// serialization guarantees this.
type Update struct {
	table    *Table
	sess     session.ID
	ops      []Operation
	failed   *Operation
	binding  *binding
	newArray *recordArray
	applied  bool
	finished bool
}

// FailedOperation returns the operation that made ComputeUpdate fail, or nil
// if the computation succeeded.
func (u *Update) FailedOperation() *Operation {
	return u.failed
}

// ComputeUpdate normalizes the batch and merges it with the session's
// current store into a fresh record array, leaving the live table untouched.
// The batch is reordered in place. The returned update is non-nil even on
// error and must be finished with Finish in every case; on success it may be
// applied with Apply first.
//
// Records removed by the batch are captured into their operation slots so
// that removal notifications carry the stored provider sequences.
func (t *Table) ComputeUpdate(sess session.ID, ops []Operation) (*Update, error) {
	u := &Update{table: t, sess: sess, ops: ops}
	failed, err := normalizeOperations(ops)
	if err != nil {
		u.failed = failed
		metrics.CounterInc(t.cfg.Metrics.UpdatesFailed)
		return u, err
	}

	t.mu.Lock()
	u.binding = t.bindOrGetLocked(sess)
	t.mu.Unlock()

	// Writers are serialized, so nothing replaces or splices the existing
	// array while it is read here; reading it without the lock is safe.
	existing := u.binding.array.records
	target := newRecordArray(len(existing) + max(netAdds(ops), 0))

	i := 0
	for k := range ops {
		op := &ops[k]
		if op.NoOp {
			continue
		}
		asn := op.Record.CustomerASN
		for i < len(existing) && existing[i].CustomerASN < asn {
			target.append(existing[i])
			i++
		}
		matches := i < len(existing) && existing[i].CustomerASN == asn
		switch {
		case op.Kind == OpAdd && matches:
			u.failed = op
			metrics.CounterInc(t.cfg.Metrics.UpdatesFailed)
			return u, serrors.Join(ErrDuplicateRecord, nil,
				"customer_asn", asn, "index", op.Index)
		case op.Kind == OpAdd:
			target.append(op.Record)
		case op.Kind == OpRemove && matches:
			op.Record = existing[i]
			i++
		default: // remove without a matching record
			u.failed = op
			metrics.CounterInc(t.cfg.Metrics.UpdatesFailed)
			return u, serrors.Join(ErrRecordNotFound, nil,
				"customer_asn", asn, "index", op.Index)
		}
	}
	for i < len(existing) {
		target.append(existing[i])
		i++
	}
	u.newArray = target
	return u, nil
}

// Apply atomically swaps the computed record array into the target binding
// and announces the batch. The swap happens first: a listener that
// immediately queries the table observes the post-update state. Applying an
// update that failed to compute, or applying twice, is a no-op.
func (u *Update) Apply() {
	if u.newArray == nil || u.applied || u.finished {
		return
	}
	t := u.table
	t.mu.Lock()
	u.binding.array = u.newArray
	count := t.recordCountLocked()
	t.mu.Unlock()
	u.applied = true

	metrics.CounterInc(t.cfg.Metrics.UpdatesApplied)
	metrics.GaugeSet(t.cfg.Metrics.Records, float64(count))
	t.notifyOps(u.sess, u.ops)
	log.SafeDebug(t.cfg.Logger, "applied ASPA update",
		"session", u.sess, "operations", len(u.ops), "records", u.newArray.len())
}

// Finish releases the update: the replacement array if it was never applied,
// and any provider sequences still owned by operation slots. Finish must be
// called exactly once per computed update, regardless of whether the
// computation succeeded or the update was applied.
func (u *Update) Finish() {
	if u.finished {
		return
	}
	u.finished = true
	if !u.applied {
		u.newArray = nil
	}
	u.binding = nil
	UpdateCleanup(u.ops)
}
