package analysis

import "sort"

// disjointSet is a union-find over person ids with path compression.
type disjointSet struct {
	parent map[int]int
}

func newDisjointSet(ids []int) *disjointSet {
	ds := &disjointSet{parent: make(map[int]int, len(ids))}
	for _, id := range ids {
		ds.parent[id] = id
	}
	return ds
}

func (ds *disjointSet) find(x int) int {
	if ds.parent[x] != x {
		ds.parent[x] = ds.find(ds.parent[x])
	}
	return ds.parent[x]
}

func (ds *disjointSet) union(a, b int) {
	ra, rb := ds.find(a), ds.find(b)
	if ra == rb {
		return
	}
	// keep the smaller id as root so groups are labelled deterministically
	if ra < rb {
		ds.parent[rb] = ra
	} else {
		ds.parent[ra] = rb
	}
}

// components groups every id of g into its connected component.
func components(g GraphReader) [][]int {
	ids := g.IDs()
	ds := newDisjointSet(ids)
	for _, id := range ids {
		for _, n := range g.Neighbors(id) {
			ds.union(id, n)
		}
	}

	groups := make(map[int][]int)
	for _, id := range ids {
		root := ds.find(id)
		groups[root] = append(groups[root], id)
	}
	out := make([][]int, 0, len(groups))
	for _, members := range groups {
		out = append(out, members)
	}
	sortPartition(out)
	return out
}

// countComponents is len(components(g)) without materializing the groups.
func countComponents(g GraphReader) int {
	ids := g.IDs()
	ds := newDisjointSet(ids)
	for _, id := range ids {
		for _, n := range g.Neighbors(id) {
			ds.union(id, n)
		}
	}
	roots := make(map[int]struct{})
	for _, id := range ids {
		roots[ds.find(id)] = struct{}{}
	}
	return len(roots)
}

// sortPartition orders members ascending and communities by size
// descending, then by smallest member.
func sortPartition(p [][]int) {
	for _, c := range p {
		sort.Ints(c)
	}
	sort.Slice(p, func(i, j int) bool {
		if len(p[i]) != len(p[j]) {
			return len(p[i]) > len(p[j])
		}
		return p[i][0] < p[j][0]
	})
}
