// Package egonet extracts the ego network of a person: the person, their
// direct friends, and every friendship among that set.
package egonet

import (
	"sort"

	"github.com/efebarandurmaz/socialgraph/internal/social"
)

// Reader is the view of the network needed to build an ego network.
type Reader interface {
	Person(id int) (social.Person, bool)
	Neighbors(id int) []int
}

// Extract returns the ego network centered on id. Nodes are ordered with the
// center first, then friends by ascending id. Edges are canonical and sorted.
func Extract(r Reader, id int) (*social.Graph, error) {
	center, ok := r.Person(id)
	if !ok {
		return nil, &social.NotFoundError{ID: id}
	}

	friends := append([]int(nil), r.Neighbors(id)...)
	sort.Ints(friends)

	members := map[int]struct{}{id: {}}
	nodes := []social.Person{center}
	for _, fid := range friends {
		p, ok := r.Person(fid)
		if !ok {
			continue
		}
		members[fid] = struct{}{}
		nodes = append(nodes, p)
	}

	seen := make(map[social.Edge]struct{})
	edges := []social.Edge{}
	for _, p := range nodes {
		for _, n := range r.Neighbors(p.ID) {
			if _, in := members[n]; !in {
				continue
			}
			e := social.NewEdge(p.ID, n)
			if _, dup := seen[e]; dup {
				continue
			}
			seen[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].A != edges[j].A {
			return edges[i].A < edges[j].A
		}
		return edges[i].B < edges[j].B
	})

	return &social.Graph{Nodes: nodes, Edges: edges}, nil
}
