package analysis

import (
	"errors"
	"fmt"
	"sort"
)

// CommunityDetector partitions the network into communities. Each community
// is a list of person ids.
type CommunityDetector interface {
	Name() string
	Detect(g GraphReader) ([][]int, error)
}

// ErrNoGraph is returned by detectors given a nil graph.
var ErrNoGraph = errors.New("analysis: nil graph")

// minGain is the smallest modularity improvement treated as positive.
const minGain = 1e-12

// GreedyModularity is the Clauset–Newman–Moore heuristic: start with every
// person in its own community and keep merging the connected pair with the
// largest modularity gain until no merge improves modularity.
type GreedyModularity struct{}

// Name implements CommunityDetector.
func (GreedyModularity) Name() string { return "greedy_modularity" }

// Detect implements CommunityDetector.
func (GreedyModularity) Detect(g GraphReader) ([][]int, error) {
	if g == nil {
		return nil, ErrNoGraph
	}
	ids := g.IDs()
	if len(ids) == 0 {
		return [][]int{}, nil
	}

	m := float64(g.EdgeCount())
	members := make(map[int][]int, len(ids))
	degree := make(map[int]float64, len(ids))
	between := make(map[int]map[int]float64, len(ids))
	for _, id := range ids {
		members[id] = []int{id}
		between[id] = make(map[int]float64)
	}
	if m == 0 {
		return collect(members), nil
	}

	for _, id := range ids {
		for _, n := range g.Neighbors(id) {
			if _, ok := members[n]; !ok {
				return nil, fmt.Errorf("analysis: neighbor %d of %d is not in the graph", n, id)
			}
			degree[id]++
			between[id][n]++
		}
	}

	for {
		bestA, bestB, bestGain := 0, 0, minGain
		for _, a := range sortedKeys(between) {
			for _, b := range sortedKeys(between[a]) {
				if b <= a {
					continue
				}
				gain := between[a][b]/m - 2*(degree[a]/(2*m))*(degree[b]/(2*m))
				if gain > bestGain {
					bestA, bestB, bestGain = a, b, gain
				}
			}
		}
		if bestGain <= minGain {
			break
		}
		merge(bestA, bestB, members, degree, between)
	}
	return collect(members), nil
}

// merge folds community b into a.
func merge(a, b int, members map[int][]int, degree map[int]float64, between map[int]map[int]float64) {
	members[a] = append(members[a], members[b]...)
	degree[a] += degree[b]
	for k, w := range between[b] {
		if k == a {
			continue
		}
		between[a][k] += w
		between[k][a] += w
		delete(between[k], b)
	}
	delete(between[a], b)
	delete(between, b)
	delete(members, b)
	delete(degree, b)
}

func collect(members map[int][]int) [][]int {
	out := make([][]int, 0, len(members))
	for _, m := range members {
		out = append(out, append([]int(nil), m...))
	}
	sortPartition(out)
	return out
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// ConnectedComponents uses connected components as communities. It never
// fails and is the fallback when the primary detector does.
type ConnectedComponents struct{}

// Name implements CommunityDetector.
func (ConnectedComponents) Name() string { return "connected_components" }

// Detect implements CommunityDetector.
func (ConnectedComponents) Detect(g GraphReader) ([][]int, error) {
	if g == nil {
		return nil, ErrNoGraph
	}
	return components(g), nil
}

// Modularity scores a partition of g. A higher value means denser
// communities with fewer edges between them. Zero for an edgeless graph.
func Modularity(g GraphReader, partition [][]int) float64 {
	m := float64(g.EdgeCount())
	if m == 0 {
		return 0
	}
	label := make(map[int]int)
	for i, c := range partition {
		for _, id := range c {
			label[id] = i
		}
	}

	internal := make([]float64, len(partition))
	degree := make([]float64, len(partition))
	for _, id := range g.IDs() {
		c, ok := label[id]
		if !ok {
			continue
		}
		for _, n := range g.Neighbors(id) {
			degree[c]++
			if nc, ok := label[n]; ok && nc == c {
				internal[c]++
			}
		}
	}

	q := 0.0
	for i := range partition {
		// internal counts each edge from both ends
		q += internal[i]/(2*m) - (degree[i]/(2*m))*(degree[i]/(2*m))
	}
	return q
}
