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

package lpfst_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routesec/rpkitables/pkg/private/xtest"
	"github.com/routesec/rpkitables/private/lpfst"
)

func buildTree(t *testing.T, prefixes ...string) *lpfst.Tree {
	t.Helper()
	tree := lpfst.New()
	for _, p := range prefixes {
		prefix := xtest.MustParsePrefix(t, p)
		tree.Insert(prefix, p)
	}
	return tree
}

func TestLookup(t *testing.T) {
	testCases := map[string]struct {
		prefixes []string
		query    string
		maskLen  uint8
		want     string // expected prefix payload, "" for no match
	}{
		"longest of two covering prefixes": {
			prefixes: []string{"10.0.0.0/8", "10.1.0.0/16"},
			query:    "10.1.2.3", maskLen: 32,
			want: "10.1.0.0/16",
		},
		"only the short prefix covers": {
			prefixes: []string{"10.0.0.0/8", "10.1.0.0/16"},
			query:    "10.2.2.2", maskLen: 32,
			want: "10.0.0.0/8",
		},
		"no covering prefix": {
			prefixes: []string{"10.0.0.0/8", "10.1.0.0/16"},
			query:    "11.0.0.0", maskLen: 32,
			want: "",
		},
		"insertion order does not matter": {
			prefixes: []string{"10.1.0.0/16", "10.0.0.0/8"},
			query:    "10.1.2.3", maskLen: 32,
			want: "10.1.0.0/16",
		},
		"exactly the stored prefix": {
			prefixes: []string{"10.0.0.0/8"},
			query:    "10.0.0.0", maskLen: 8,
			want: "10.0.0.0/8",
		},
		"query shorter than stored prefixes": {
			prefixes: []string{"10.1.0.0/16"},
			query:    "10.0.0.0", maskLen: 8,
			want: "",
		},
		"ipv6": {
			prefixes: []string{"2001:db8::/32", "2001:db8:1::/48"},
			query:    "2001:db8:1::1", maskLen: 128,
			want: "2001:db8:1::/48",
		},
	}
	for name, tc := range testCases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			tree := buildTree(t, tc.prefixes...)
			ref := tree.Lookup(xtest.MustParseAddr(t, tc.query), tc.maskLen)
			if tc.want == "" {
				assert.Equal(t, lpfst.None, ref)
				return
			}
			require.NotEqual(t, lpfst.None, ref)
			assert.Equal(t, tc.want, tree.Data(ref))
		})
	}
}

// The shortest prefix on any path sits closest to the root, regardless of
// insertion order: inserting a shorter prefix below evicts the resident.
func TestInsertReRotation(t *testing.T) {
	tree := buildTree(t, "10.1.0.0/16", "10.1.1.0/24", "10.0.0.0/8")
	root := tree.Root()
	require.NotEqual(t, lpfst.None, root)
	assert.Equal(t, "10.0.0.0/8", tree.Data(root))
	assert.Equal(t, lpfst.None, tree.Parent(root))

	for _, ref := range tree.Children(root) {
		parent := tree.Parent(ref)
		assert.GreaterOrEqual(t, tree.Prefix(ref).Bits(), tree.Prefix(parent).Bits())
	}
}

func TestLookupExact(t *testing.T) {
	tree := buildTree(t, "10.0.0.0/8", "10.1.0.0/16")

	ref, found := tree.LookupExact(xtest.MustParsePrefix(t, "10.1.0.0/16"))
	require.True(t, found)
	assert.Equal(t, "10.1.0.0/16", tree.Data(ref))

	stop, found := tree.LookupExact(xtest.MustParsePrefix(t, "10.1.1.0/24"))
	assert.False(t, found)
	// The descent stops at a node on the query's path.
	assert.NotEqual(t, lpfst.None, stop)

	_, found = lpfst.New().LookupExact(xtest.MustParsePrefix(t, "10.0.0.0/8"))
	assert.False(t, found)
}

func TestRemove(t *testing.T) {
	tree := buildTree(t, "10.0.0.0/8", "10.1.0.0/16", "10.1.1.0/24")

	data, ok := tree.Remove(xtest.MustParsePrefix(t, "10.1.0.0/16"))
	require.True(t, ok)
	assert.Equal(t, "10.1.0.0/16", data)
	assert.Equal(t, 2, tree.Size())

	// The remaining prefixes are still found.
	ref := tree.Lookup(xtest.MustParseAddr(t, "10.1.1.1"), 32)
	require.NotEqual(t, lpfst.None, ref)
	assert.Equal(t, "10.1.1.0/24", tree.Data(ref))
	ref = tree.Lookup(xtest.MustParseAddr(t, "10.2.0.1"), 32)
	require.NotEqual(t, lpfst.None, ref)
	assert.Equal(t, "10.0.0.0/8", tree.Data(ref))

	_, ok = tree.Remove(xtest.MustParsePrefix(t, "10.9.0.0/16"))
	assert.False(t, ok)

	// Removing the root pulls a child's entry up.
	_, ok = tree.Remove(xtest.MustParsePrefix(t, "10.0.0.0/8"))
	require.True(t, ok)
	ref = tree.Lookup(xtest.MustParseAddr(t, "10.1.1.1"), 32)
	require.NotEqual(t, lpfst.None, ref)
	assert.Equal(t, "10.1.1.0/24", tree.Data(ref))
	assert.Equal(t, lpfst.None, tree.Lookup(xtest.MustParseAddr(t, "10.2.0.1"), 32))

	_, ok = tree.Remove(xtest.MustParsePrefix(t, "10.1.1.0/24"))
	require.True(t, ok)
	assert.Equal(t, 0, tree.Size())
	assert.Equal(t, lpfst.None, tree.Root())
}

// Released arena slots are recycled by later insertions.
func TestArenaReuse(t *testing.T) {
	tree := buildTree(t, "10.0.0.0/8", "10.1.0.0/16", "10.2.0.0/16", "10.3.0.0/16")
	for _, p := range []string{"10.1.0.0/16", "10.2.0.0/16"} {
		_, ok := tree.Remove(xtest.MustParsePrefix(t, p))
		require.True(t, ok)
	}
	// Entries that were not removed are still found after unrelated removals.
	ref := tree.Lookup(xtest.MustParseAddr(t, "10.3.4.5"), 32)
	require.NotEqual(t, lpfst.None, ref)
	assert.Equal(t, "10.3.0.0/16", tree.Data(ref))

	tree.Insert(xtest.MustParsePrefix(t, "10.4.0.0/16"), "10.4.0.0/16")
	tree.Insert(xtest.MustParsePrefix(t, "10.5.0.0/16"), "10.5.0.0/16")
	assert.Equal(t, 4, tree.Size())
	for _, q := range []string{"10.3.4.5", "10.4.4.5", "10.5.4.5"} {
		ref := tree.Lookup(xtest.MustParseAddr(t, q), 32)
		require.NotEqual(t, lpfst.None, ref, "query %s", q)
	}
}

func TestIsLeafAndChildren(t *testing.T) {
	tree := buildTree(t, "0.0.0.0/0", "0.0.0.0/1", "128.0.0.0/1")
	root := tree.Root()
	assert.False(t, tree.IsLeaf(root))
	children := tree.Children(root)
	require.Len(t, children, 2)
	for _, ref := range children {
		assert.True(t, tree.IsLeaf(ref))
	}
	assert.Len(t, tree.Nodes(), 3)
}

// Every stored prefix is its own longest match, for a mixed set of nested
// and disjoint prefixes.
func TestLookupSelf(t *testing.T) {
	prefixes := []string{
		"0.0.0.0/0", "10.0.0.0/8", "10.0.0.0/9", "10.128.0.0/9",
		"10.1.0.0/16", "10.1.128.0/17", "192.168.0.0/16", "192.168.1.0/24",
		"172.16.0.0/12", "10.1.129.0/24", "10.1.129.128/25",
	}
	tree := buildTree(t, prefixes...)
	for _, p := range prefixes {
		prefix := xtest.MustParsePrefix(t, p)
		ref := tree.Lookup(prefix.Addr(), uint8(prefix.Bits()))
		require.NotEqual(t, lpfst.None, ref, "prefix %s", p)
		assert.Equal(t, p, tree.Data(ref), "prefix %s", p)
	}
}

// Covering returns all stored prefixes of the query, shortest first.
func TestCovering(t *testing.T) {
	tree := buildTree(t, "10.0.0.0/8", "10.1.0.0/16", "10.1.1.0/24", "192.168.0.0/16")
	addr := xtest.MustParseAddr(t, "10.1.1.1")
	var got []string
	for _, ref := range tree.Covering(addr, 32) {
		got = append(got, tree.Data(ref).(string))
	}
	assert.Equal(t, []string{"10.0.0.0/8", "10.1.0.0/16", "10.1.1.0/24"}, got)

	assert.Empty(t, tree.Covering(xtest.MustParseAddr(t, "11.0.0.0"), 32))

	var mid []string
	for _, ref := range tree.Covering(addr, 16) {
		mid = append(mid, tree.Data(ref).(string))
	}
	assert.Equal(t, []string{"10.0.0.0/8", "10.1.0.0/16"}, mid)
}

func TestPrefixAccessors(t *testing.T) {
	tree := lpfst.New()
	p := netip.MustParsePrefix("10.0.0.0/8")
	ref := tree.Insert(p, 42)
	assert.Equal(t, p, tree.Prefix(ref))
	assert.Equal(t, 42, tree.Data(ref))
	tree.SetData(ref, 43)
	assert.Equal(t, 43, tree.Data(ref))
}
