// Package recommend ranks people a person is not yet connected to.
package recommend

import (
	"math"
	"sort"

	"github.com/efebarandurmaz/socialgraph/internal/social"
)

// DefaultLimit is the number of recommendations returned when no limit is given.
const DefaultLimit = 10

// Scorer computes how compatible candidate is with subject. Higher is better.
type Scorer interface {
	Score(subject, candidate social.Person) float64
}

// ScorerFunc adapts a plain function to Scorer.
type ScorerFunc func(subject, candidate social.Person) float64

// Score implements Scorer.
func (f ScorerFunc) Score(subject, candidate social.Person) float64 {
	return f(subject, candidate)
}

// Recommendation is one ranked candidate.
type Recommendation struct {
	PersonID        int      `json:"id"`
	Name            string   `json:"name"`
	Age             int      `json:"age"`
	Email           string   `json:"email"`
	Interests       []string `json:"interests"`
	CommonInterests []string `json:"common_interests"`
	Score           float64  `json:"score"`
	Compatibility   int      `json:"compatibility"`
}

// Summary describes how many candidates could be recommended at all.
type Summary struct {
	TotalCandidates      int     `json:"total_candidates"`
	CompatibleCandidates int     `json:"compatible_candidates"`
	CompatiblePercent    float64 `json:"compatible_percent"`
}

// Engine filters, scores and ranks candidates with a pluggable Scorer.
type Engine struct {
	scorer Scorer
	limit  int
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer replaces the default InterestScorer.
func WithScorer(s Scorer) Option {
	return func(e *Engine) {
		if s != nil {
			e.scorer = s
		}
	}
}

// WithLimit sets the default result size.
func WithLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = n
		}
	}
}

// New creates an engine using InterestScorer unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{scorer: InterestScorer{}, limit: DefaultLimit}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetScorer swaps the scoring strategy.
func (e *Engine) SetScorer(s Scorer) {
	if s != nil {
		e.scorer = s
	}
}

// Limit is the default result size.
func (e *Engine) Limit() int {
	return e.limit
}

// Recommend returns up to limit candidates ranked by descending score. The
// subject, its current friends, and anyone sharing no interest with the
// subject are never returned, whatever their score. Equal scores keep the
// order of candidates. A limit <= 0 uses the engine default.
func (e *Engine) Recommend(subject social.Person, candidates []social.Person, limit int) []Recommendation {
	if limit <= 0 {
		limit = e.limit
	}

	recs := []Recommendation{}
	for _, c := range candidates {
		if c.ID == subject.ID || subject.HasFriend(c.ID) {
			continue
		}
		common := subject.CommonInterests(c)
		if len(common) == 0 {
			continue
		}
		score := e.scorer.Score(subject, c)
		recs = append(recs, Recommendation{
			PersonID:        c.ID,
			Name:            c.Name,
			Age:             c.Age,
			Email:           c.Email,
			Interests:       append([]string{}, c.Interests...),
			CommonInterests: common,
			Score:           score,
			Compatibility:   CompatibilityPercent(score),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// Summarize counts candidates sharing at least one interest with subject.
func (e *Engine) Summarize(subject social.Person, candidates []social.Person) Summary {
	sum := Summary{TotalCandidates: len(candidates)}
	for _, c := range candidates {
		if subject.SharesInterest(c) {
			sum.CompatibleCandidates++
		}
	}
	if sum.TotalCandidates > 0 {
		sum.CompatiblePercent = float64(sum.CompatibleCandidates) / float64(sum.TotalCandidates) * 100
	}
	return sum
}

// CompatibilityPercent maps a raw score to 0..100.
func CompatibilityPercent(score float64) int {
	pct := int(math.Floor(score * 25))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}
