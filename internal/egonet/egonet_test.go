package egonet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efebarandurmaz/socialgraph/internal/social"
)

func newStore(t *testing.T, n int, edges ...[2]int) *social.Store {
	t.Helper()
	s := social.NewStore()
	for i := 0; i < n; i++ {
		_, err := s.AddPerson(string(rune('a'+i)), 20, "", nil)
		require.NoError(t, err)
	}
	for _, e := range edges {
		require.True(t, s.Connect(e[0], e[1]))
	}
	return s
}

func nodeIDs(g *social.Graph) []int {
	ids := make([]int, 0, len(g.Nodes))
	for _, p := range g.Nodes {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestExtract_StarCenter(t *testing.T) {
	s := newStore(t, 5, [2]int{1, 2}, [2]int{1, 3}, [2]int{1, 4}, [2]int{1, 5})

	g, err := Extract(s, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, nodeIDs(g))
	assert.Len(t, g.Edges, 4)
}

func TestExtract_Leaf(t *testing.T) {
	s := newStore(t, 5, [2]int{1, 2}, [2]int{1, 3}, [2]int{1, 4}, [2]int{1, 5})

	g, err := Extract(s, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 1}, nodeIDs(g))
	assert.Equal(t, []social.Edge{{A: 1, B: 4}}, g.Edges)
}

func TestExtract_IncludesFriendToFriendEdges(t *testing.T) {
	// 2-3 are friends of 1 and of each other; 4 is a friend of 3 only.
	s := newStore(t, 4, [2]int{1, 2}, [2]int{1, 3}, [2]int{2, 3}, [2]int{3, 4})

	g, err := Extract(s, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, nodeIDs(g))
	assert.Equal(t, []social.Edge{{A: 1, B: 2}, {A: 1, B: 3}, {A: 2, B: 3}}, g.Edges)
}

func TestExtract_Isolated(t *testing.T) {
	s := newStore(t, 2)

	g, err := Extract(s, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, nodeIDs(g))
	assert.Empty(t, g.Edges)
}

func TestExtract_NotFound(t *testing.T) {
	_, err := Extract(social.NewStore(), 9)
	require.Error(t, err)
	assert.True(t, social.IsNotFound(err))
}
