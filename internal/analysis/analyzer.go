// Package analysis computes read-only metrics over the people graph:
// statistics, centrality rankings, communities and per-person summaries.
package analysis

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/efebarandurmaz/socialgraph/internal/social"
)

// TopN is the size of every centrality ranking.
const TopN = 5

// Analyzer computes metrics over a GraphReader. It holds no graph state and
// can be reused across reloads.
type Analyzer struct {
	detector CommunityDetector
	fallback CommunityDetector
	logger   *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithDetector overrides the primary community detector.
func WithDetector(d CommunityDetector) Option {
	return func(a *Analyzer) {
		if d != nil {
			a.detector = d
		}
	}
}

// WithLogger sets the logger used to report detector fallbacks.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New returns an Analyzer using greedy modularity with a connected
// components fallback.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		detector: GreedyModularity{},
		fallback: ConnectedComponents{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Statistics returns aggregate metrics. An empty graph yields zero values.
func (a *Analyzer) Statistics(g GraphReader) Stats {
	n := g.Len()
	if n == 0 {
		return Stats{}
	}
	e := g.EdgeCount()
	st := Stats{
		Persons:       n,
		Connections:   e,
		AverageDegree: 2 * float64(e) / float64(n),
		Components:    countComponents(g),
	}
	if n > 1 {
		st.Density = 2 * float64(e) / (float64(n) * float64(n-1))
	}
	st.Connected = st.Components == 1
	return st
}

// DegreeCentrality ranks the TopN persons by degree/(N-1).
func (a *Analyzer) DegreeCentrality(g GraphReader) []Ranking {
	n := g.Len()
	if n == 0 {
		return []Ranking{}
	}
	scores := make(map[int]float64, n)
	for _, id := range g.IDs() {
		if n > 1 {
			scores[id] = float64(len(g.Neighbors(id))) / float64(n-1)
		} else {
			scores[id] = 0
		}
	}
	return top(g, scores, TopN)
}

// ClosenessCentrality ranks the TopN persons by (N-1) divided by the sum of
// their shortest path lengths. It is empty unless the network is a single
// component with more than one person.
func (a *Analyzer) ClosenessCentrality(g GraphReader) []Ranking {
	n := g.Len()
	if n <= 1 || countComponents(g) != 1 {
		return []Ranking{}
	}
	scores := make(map[int]float64, n)
	for _, id := range g.IDs() {
		total := 0
		for _, d := range bfsDistances(g, id) {
			total += d
		}
		if total > 0 {
			scores[id] = float64(n-1) / float64(total)
		}
	}
	return top(g, scores, TopN)
}

// Centrality computes both rankings.
func (a *Analyzer) Centrality(g GraphReader) CentralityReport {
	return CentralityReport{
		Degree:    a.DegreeCentrality(g),
		Closeness: a.ClosenessCentrality(g),
	}
}

// DetectCommunities partitions the network with the primary detector. If it
// fails for any reason the connected components are returned instead.
func (a *Analyzer) DetectCommunities(g GraphReader) [][]int {
	if g.Len() == 0 {
		return [][]int{}
	}
	communities, err := safeDetect(a.detector, g)
	if err == nil {
		return communities
	}
	a.logger.Warn("community detection failed, using connected components",
		zap.String("detector", a.detector.Name()),
		zap.Error(err))
	communities, err = safeDetect(a.fallback, g)
	if err != nil {
		return [][]int{}
	}
	return communities
}

// AnalyzePerson summarizes one person's connections.
func (a *Analyzer) AnalyzePerson(g GraphReader, id int) (PersonAnalysis, error) {
	p, ok := g.Person(id)
	if !ok {
		return PersonAnalysis{}, &social.NotFoundError{ID: id}
	}
	neighbors := g.Neighbors(id)
	byInterest := make(map[string]int)
	for _, nid := range neighbors {
		other, ok := g.Person(nid)
		if !ok {
			continue
		}
		for _, in := range p.CommonInterests(other) {
			byInterest[in]++
		}
	}

	res := PersonAnalysis{
		Person:              p,
		Degree:              len(neighbors),
		NeighborCount:       len(neighbors),
		InterestConnections: byInterest,
	}
	if n := g.Len(); n > 1 {
		res.LocalCentrality = float64(len(neighbors)) / float64(n-1)
	}
	return res, nil
}

func safeDetect(d CommunityDetector, g GraphReader) (communities [][]int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector %s panicked: %v", d.Name(), r)
		}
	}()
	return d.Detect(g)
}

// bfsDistances returns hop counts from src to every reachable person.
func bfsDistances(g GraphReader, src int) map[int]int {
	dist := map[int]int{src: 0}
	queue := []int{src}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range g.Neighbors(cur) {
			if _, seen := dist[n]; seen {
				continue
			}
			dist[n] = dist[cur] + 1
			queue = append(queue, n)
		}
	}
	return dist
}

// top sorts by descending score, ties by ascending id, and keeps limit.
func top(g GraphReader, scores map[int]float64, limit int) []Ranking {
	out := make([]Ranking, 0, len(scores))
	for id, s := range scores {
		r := Ranking{PersonID: id, Centrality: s}
		if p, ok := g.Person(id); ok {
			r.Name = p.Name
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Centrality != out[j].Centrality {
			return out[i].Centrality > out[j].Centrality
		}
		return out[i].PersonID < out[j].PersonID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
