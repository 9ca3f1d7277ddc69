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

// Package aspa implements the ASPA validation table: an in-memory structure
// that stores, per customer ASN, the set of ASNs authorized to act as that
// customer's upstream providers, as learned from one or more RTR cache
// sessions.
//
// The table is updated with batches of add/remove operations, effectively a
// diff derived from a single cache response. Two update mechanisms are
// supported, selected at construction time:
//
//   - Swap-in (UpdateModeSwapIn): ComputeUpdate builds a replacement record
//     array off to the side, Apply atomically swaps it in, Finish releases
//     whatever the update no longer needs. Readers verifying an AS_PATH are
//     never blocked by an in-progress computation, and a failed computation
//     has no visible effect.
//   - In-place (UpdateModeInPlace): UpdateInPlace splices the live array
//     directly, remembering per operation what it did. If an operation fails,
//     UndoUpdate restores the previous state and UpdateCleanup releases the
//     leftovers.
//
// Updates for a single session must be serialized by the caller; reads may
// happen concurrently from any number of goroutines.
package aspa

import (
	"github.com/routesec/rpkitables/pkg/private/serrors"
)

// Errors returned by table operations. The offending operation's batch index
// and customer ASN are attached as error context.
var (
	// ErrDuplicateRecord indicates an added record's customer ASN is already
	// present, either in the table or earlier in the same batch.
	ErrDuplicateRecord = serrors.New("duplicate record")
	// ErrRecordNotFound indicates a removal targets a customer ASN that is
	// not present, or that was already removed earlier in the same batch.
	ErrRecordNotFound = serrors.New("record not found")
	// ErrInvalidArgument indicates a malformed input, such as a remove
	// operation carrying a provider sequence.
	ErrInvalidArgument = serrors.New("invalid argument")
)

// Record is one ASPA object: a customer ASN plus the sequence of provider
// ASNs authorized to propagate its routes. The provider sequence is treated
// as a set for verification but keeps its input order for notifications. It
// is owned by whichever container currently holds the record; ownership
// moves with the record.
type Record struct {
	CustomerASN uint32
	Providers   []uint32
}

// HasProvider reports whether asn is in the record's provider set.
func (r Record) HasProvider(asn uint32) bool {
	for _, p := range r.Providers {
		if p == asn {
			return true
		}
	}
	return false
}

// HopResult classifies one (customer, provider) hop of an AS_PATH against
// the table.
type HopResult int

const (
	// NoAttestation means no session attests any providers for the customer
	// ASN; the hop is unconstrained by ASPA data.
	NoAttestation HopResult = iota
	// NotProviderPlus means attestations for the customer ASN exist, but
	// none lists the provider ASN.
	NotProviderPlus
	// ProviderPlus means at least one attestation lists the provider ASN.
	ProviderPlus
)

func (r HopResult) String() string {
	switch r {
	case NoAttestation:
		return "NoAttestation"
	case NotProviderPlus:
		return "NotProviderPlus"
	case ProviderPlus:
		return "ProviderPlus"
	default:
		return "Unknown"
	}
}
