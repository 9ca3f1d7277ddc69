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

// Package session holds the identifier type shared by all validated-data
// tables. The RTR transport owns sessions; the tables only ever see the
// opaque ID it assigns to each cache connection.
package session

import "fmt"

// ID identifies one RTR cache session. The transport layer guarantees that
// updates for a given ID are serialized; the tables key their per-session
// state on it.
type ID uint64

func (id ID) String() string {
	return fmt.Sprintf("session#%d", uint64(id))
}
