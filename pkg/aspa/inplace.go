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

// UpdateInPlace normalizes the batch and applies it directly to the
// session's store under the write lock. The batch is reordered in place.
//
// On failure the offending operation is returned alongside the error; the
// failed operation itself is not applied and later operations are not
// attempted. The caller should restore consistency with UndoUpdate (leaving
// the table partially updated is the documented alternative) and must
// release the batch with UpdateCleanup either way.
//
// Applied removals move the removed record into their operation slot, both
// for notification fidelity and so UndoUpdate can reinsert it.
func (t *Table) UpdateInPlace(sess session.ID, ops []Operation) (*Operation, error) {
	if failed, err := normalizeOperations(ops); err != nil {
		metrics.CounterInc(t.cfg.Metrics.UpdatesFailed)
		return failed, err
	}

	t.mu.Lock()
	array := t.bindOrGetLocked(sess).array
	for k := range ops {
		op := &ops[k]
		if op.NoOp {
			continue
		}
		i, ok := array.search(op.Record.CustomerASN)
		switch {
		case op.Kind == OpAdd && ok:
			t.mu.Unlock()
			metrics.CounterInc(t.cfg.Metrics.UpdatesFailed)
			return op, serrors.Join(ErrDuplicateRecord, nil,
				"customer_asn", op.Record.CustomerASN, "index", op.Index)
		case op.Kind == OpAdd:
			array.insertAt(i, op.Record)
		case op.Kind == OpRemove && ok:
			op.Record = array.removeAt(i)
		default:
			t.mu.Unlock()
			metrics.CounterInc(t.cfg.Metrics.UpdatesFailed)
			return op, serrors.Join(ErrRecordNotFound, nil,
				"customer_asn", op.Record.CustomerASN, "index", op.Index)
		}
	}
	count := t.recordCountLocked()
	t.mu.Unlock()

	metrics.CounterInc(t.cfg.Metrics.UpdatesApplied)
	metrics.GaugeSet(t.cfg.Metrics.Records, float64(count))
	t.notifyOps(sess, ops)
	log.SafeDebug(t.cfg.Logger, "applied ASPA update in place",
		"session", sess, "operations", len(ops))
	return nil, nil
}

// UndoUpdate reverses the operations UpdateInPlace applied before it stopped
// at failed, restoring the store to its pre-update state. The applied prefix
// is unwound back to front: an applied addition is removed again, an applied
// removal is reinserted from the record kept in its operation slot. Undoing
// back to front matters when a batch removes and re-adds the same customer
// ASN. With failed nil, the entire batch is undone.
//
// failed must be the pointer returned by UpdateInPlace, which points into
// ops.
func (t *Table) UndoUpdate(sess session.ID, ops []Operation, failed *Operation) error {
	end := len(ops)
	for k := range ops {
		if &ops[k] == failed {
			end = k
			break
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.bindingLocked(sess)
	if b == nil {
		return serrors.Join(ErrInvalidArgument, nil,
			"reason", "no binding for session", "session", sess)
	}
	for k := end - 1; k >= 0; k-- {
		op := &ops[k]
		if op.NoOp {
			continue
		}
		i, ok := b.array.search(op.Record.CustomerASN)
		switch {
		case op.Kind == OpAdd && ok:
			b.array.removeAt(i)
		case op.Kind == OpRemove && !ok:
			b.array.insertAt(i, op.Record)
		case op.Kind == OpAdd:
			return serrors.Join(ErrRecordNotFound, nil,
				"customer_asn", op.Record.CustomerASN, "index", op.Index)
		default:
			return serrors.Join(ErrDuplicateRecord, nil,
				"customer_asn", op.Record.CustomerASN, "index", op.Index)
		}
	}
	log.SafeDebug(t.cfg.Logger, "undid partially applied ASPA update",
		"session", sess, "operations", end)
	return nil
}
