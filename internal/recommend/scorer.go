package recommend

import "github.com/efebarandurmaz/socialgraph/internal/social"

// Scoring constants.
const (
	DiverseInterestsBonus = 0.5
	DiverseInterestsMin   = 2
	SimilarAgeBonus       = 0.3
	SimilarAgeWindow      = 5
)

// InterestScorer scores by shared interests, with small bonuses for candidates
// with many interests and for close ages.
type InterestScorer struct{}

// Score implements Scorer.
func (InterestScorer) Score(subject, candidate social.Person) float64 {
	score := float64(len(subject.CommonInterests(candidate)))

	if len(candidate.Interests) > DiverseInterestsMin {
		score += DiverseInterestsBonus
	}

	if subject.Age > 0 && candidate.Age > 0 {
		diff := subject.Age - candidate.Age
		if diff < 0 {
			diff = -diff
		}
		if diff <= SimilarAgeWindow {
			score += SimilarAgeBonus
		}
	}
	return score
}

// Jaccard scores by the Jaccard index of both interest sets. It is an
// alternative to InterestScorer that ignores age.
var Jaccard = ScorerFunc(func(subject, candidate social.Person) float64 {
	a, b := subject.InterestSet(), candidate.InterestSet()
	union := len(a)
	for in := range b {
		if _, ok := a[in]; !ok {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(len(subject.CommonInterests(candidate))) / float64(union)
})
