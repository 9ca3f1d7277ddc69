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

	"github.com/routesec/rpkitables/pkg/private/serrors"
)

// OperationKind distinguishes record additions from removals.
type OperationKind int

const (
	// OpAdd adds the operation's record to the table.
	OpAdd OperationKind = iota
	// OpRemove removes the record with the operation's customer ASN. The
	// operation must not carry a provider sequence.
	OpRemove
)

func (k OperationKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Operation is one element of an update batch. Index is the operation's
// original position in the batch; normalization reorders the batch but keeps
// Index intact, and errors report the offending operation by it.
//
// Operation slots double as ownership holders: a removal that has been
// applied in-place keeps the removed record (with its provider sequence) in
// its slot so that UndoUpdate can reinsert it. UpdateCleanup releases
// whatever the slots still hold.
type Operation struct {
	Index  uint64
	Kind   OperationKind
	Record Record
	// NoOp marks the operation as part of an add/remove pair within one
	// batch that cancels out. No-op operations are never applied; whether
	// they are announced is governed by Config.NotifyNoOps.
	NoOp bool
}

// normalizeOperations prepares a batch for application. It stable-sorts the
// batch by customer ASN (original batch order breaks ties, which is
// load-bearing for duplicate detection and no-op annotation), then scans
// each window of equal customer ASN:
//
//   - two adds fail with ErrDuplicateRecord at the second,
//   - two removes fail with ErrRecordNotFound at the second,
//   - an add later cancelled by a remove marks both as no-ops,
//   - a remove followed by an add passes through: the remove targets an
//     existing record, the add introduces a fresh one.
//
// On error the offending operation is returned alongside.
func normalizeOperations(ops []Operation) (*Operation, error) {
	for i := range ops {
		if ops[i].Kind == OpRemove && ops[i].Record.Providers != nil {
			return &ops[i], serrors.Join(ErrInvalidArgument, nil,
				"reason", "remove operation carries providers",
				"customer_asn", ops[i].Record.CustomerASN,
				"index", ops[i].Index)
		}
	}
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Record.CustomerASN != ops[j].Record.CustomerASN {
			return ops[i].Record.CustomerASN < ops[j].Record.CustomerASN
		}
		return ops[i].Index < ops[j].Index
	})
	var pending *Operation
	for i := range ops {
		op := &ops[i]
		if pending == nil || pending.Record.CustomerASN != op.Record.CustomerASN {
			pending = op
			continue
		}
		switch {
		case pending.Kind == OpAdd && op.Kind == OpAdd:
			return op, serrors.Join(ErrDuplicateRecord, nil,
				"customer_asn", op.Record.CustomerASN, "index", op.Index)
		case pending.Kind == OpRemove && op.Kind == OpRemove:
			return op, serrors.Join(ErrRecordNotFound, nil,
				"customer_asn", op.Record.CustomerASN, "index", op.Index)
		case pending.Kind == OpAdd && op.Kind == OpRemove:
			// The pair annihilates. The removal inherits the added record so
			// a paired notification can carry the providers.
			pending.NoOp = true
			op.NoOp = true
			op.Record = pending.Record
			pending = nil
		default: // remove followed by add
			pending = op
		}
	}
	return nil, nil
}

// netAdds returns the record count delta of the non-no-op operations.
func netAdds(ops []Operation) int {
	n := 0
	for i := range ops {
		if ops[i].NoOp {
			continue
		}
		if ops[i].Kind == OpAdd {
			n++
		} else {
			n--
		}
	}
	return n
}

// UpdateCleanup releases the provider sequences still owned by operation
// slots: those of operations past a failure point, of undone additions, and
// of applied removals whose providers are no longer needed. It is idempotent
// and safe to call after a successful update, after UndoUpdate, and after
// Update.Finish has run it implicitly.
func UpdateCleanup(ops []Operation) {
	for i := range ops {
		ops[i].Record.Providers = nil
	}
}
