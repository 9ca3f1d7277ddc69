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

package aspa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routesec/rpkitables/pkg/aspa"
)

func add(index uint64, customer uint32, providers ...uint32) aspa.Operation {
	return aspa.Operation{
		Index: index,
		Kind:  aspa.OpAdd,
		Record: aspa.Record{
			CustomerASN: customer,
			Providers:   providers,
		},
	}
}

func remove(index uint64, customer uint32) aspa.Operation {
	return aspa.Operation{
		Index:  index,
		Kind:   aspa.OpRemove,
		Record: aspa.Record{CustomerASN: customer},
	}
}

// Normalization is observable through ComputeUpdate: the batch is reordered
// in place with original indices preserved, and no-op pairs are annotated.
func TestNormalize(t *testing.T) {
	testCases := map[string]struct {
		ops      []aspa.Operation
		wantIdx  []uint64
		wantNoOp []bool
		// wantNormErr is an error detected by normalization itself, before
		// the merge pass sees the store.
		wantNormErr error
		wantFailed  uint64
	}{
		"stable sort groups by customer ASN, input order breaks ties": {
			ops: []aspa.Operation{
				remove(0, 300), add(1, 100, 1), add(2, 300, 9), add(3, 200, 2),
			},
			wantIdx:  []uint64{1, 3, 0, 2},
			wantNoOp: []bool{false, false, false, false},
		},
		"complementary pair annihilates": {
			ops:      []aspa.Operation{add(0, 100, 200), remove(1, 100)},
			wantIdx:  []uint64{0, 1},
			wantNoOp: []bool{true, true},
		},
		"remove then add passes through": {
			ops:      []aspa.Operation{remove(0, 100), add(1, 100, 200)},
			wantIdx:  []uint64{0, 1},
			wantNoOp: []bool{false, false},
		},
		"annihilated pair then fresh add": {
			ops:      []aspa.Operation{add(0, 100, 200), remove(1, 100), add(2, 100, 300)},
			wantIdx:  []uint64{0, 1, 2},
			wantNoOp: []bool{true, true, false},
		},
		"duplicate add in batch": {
			ops:         []aspa.Operation{add(0, 100, 200), add(1, 100, 300)},
			wantNormErr: aspa.ErrDuplicateRecord,
			wantFailed:  1,
		},
		"duplicate remove in batch": {
			ops:         []aspa.Operation{remove(0, 300), add(1, 100, 1), remove(2, 300)},
			wantNormErr: aspa.ErrRecordNotFound,
			wantFailed:  2,
		},
		"remove with providers rejected": {
			ops: []aspa.Operation{
				{Index: 0, Kind: aspa.OpRemove,
					Record: aspa.Record{CustomerASN: 100, Providers: []uint32{1}}},
			},
			wantNormErr: aspa.ErrInvalidArgument,
			wantFailed:  0,
		},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			table := aspa.NewTable(aspa.Config{})
			u, err := table.ComputeUpdate(1, tc.ops)
			defer u.Finish()
			if tc.wantNormErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantNormErr)
				require.NotNil(t, u.FailedOperation())
				assert.Equal(t, tc.wantFailed, u.FailedOperation().Index)
				return
			}
			// The merge may still reject the batch against the (empty)
			// store; ordering and annotation happened regardless.
			gotIdx := make([]uint64, len(tc.ops))
			gotNoOp := make([]bool, len(tc.ops))
			for i, op := range tc.ops {
				gotIdx[i] = op.Index
				gotNoOp[i] = op.NoOp
			}
			assert.Equal(t, tc.wantIdx, gotIdx)
			assert.Equal(t, tc.wantNoOp, gotNoOp)
		})
	}
}

func TestUpdateCleanupIdempotent(t *testing.T) {
	ops := []aspa.Operation{add(0, 100, 200, 300), remove(1, 500)}
	aspa.UpdateCleanup(ops)
	for _, op := range ops {
		assert.Nil(t, op.Record.Providers)
	}
	aspa.UpdateCleanup(ops)
	for _, op := range ops {
		assert.Nil(t, op.Record.Providers)
	}
}
