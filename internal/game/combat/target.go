package combat

import "math"

// scoreEpsilon bounds float comparison when deciding whether two candidate
// scores tie and the deterministic tie-breaks apply.
const scoreEpsilon = 1e-9

// SelectorWeights tune the target scoring function.
type SelectorWeights struct {
	// Distance weights the inverse-distance term (closer scores higher).
	Distance float64
	// Health weights the inverse-health term (weaker scores higher).
	Health float64
	// Threat weights the target's ThreatWeight tag.
	Threat float64
}

// DefaultSelectorWeights returns the standard scoring weights.
func DefaultSelectorWeights() SelectorWeights {
	return SelectorWeights{Distance: 0.5, Health: 0.3, Threat: 0.2}
}

// Selector scores and picks an engagement target from sensed candidates.
// Selection is pure and deterministic: identical input yields an identical
// pick.
type Selector struct {
	weights SelectorWeights
}

// NewSelector creates a Selector with the given weights.
func NewSelector(weights SelectorWeights) *Selector {
	return &Selector{weights: weights}
}

// Score returns the selection score for t. Exported for tests and tuning.
//
// Postcondition: The score is monotonically non-increasing in distance and
// health, and non-decreasing in threat weight.
func (s *Selector) Score(t Target) float64 {
	return s.weights.Distance*(1/(1+t.Distance)) +
		s.weights.Health*(1-t.HealthPct/100) +
		s.weights.Threat*t.ThreatWeight
}

// Pick filters candidates to hostile targets within maxRange and returns the
// highest-scoring one. Ties break by smaller distance, then by earliest
// last-seen time, keeping the pick stable on equal scores.
//
// Precondition: maxRange is the largest skill range of the active profile.
// Postcondition: Returns (target, true), or (zero, false) when no candidate
// qualifies.
func (s *Selector) Pick(candidates []Target, maxRange float64) (Target, bool) {
	var best Target
	bestScore := math.Inf(-1)
	found := false

	for _, c := range candidates {
		if !c.Hostile || c.Distance > maxRange {
			continue
		}
		score := s.Score(c)
		if !found {
			best, bestScore, found = c, score, true
			continue
		}
		if s.better(score, bestScore, c, best) {
			best, bestScore = c, score
		}
	}
	return best, found
}

// better reports whether candidate c with score beats the current best.
func (s *Selector) better(score, bestScore float64, c, best Target) bool {
	if score > bestScore+scoreEpsilon {
		return true
	}
	if score < bestScore-scoreEpsilon {
		return false
	}
	// Scores tie: closer wins, then the target seen earliest.
	if c.Distance != best.Distance {
		return c.Distance < best.Distance
	}
	return c.LastSeen.Before(best.LastSeen)
}
