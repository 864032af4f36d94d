package scoring

// ComputeFrontier returns the ids of candidates that no other candidate
// dominates, in input order. A candidate dominates another if it is at least
// as good on every criterion (respecting polarity) and strictly better on one.
// Missing scores count as zero, as in Evaluate.
// Dominance is checked pairwise, O(n^2·m).
func ComputeFrontier(criteria []Criterion, candidates []Candidate) []string {
	if len(candidates) == 0 {
		return nil
	}

	frontier := make([]string, 0, len(candidates))
	for i := range candidates {
		dominated := false
		for j := range candidates {
			if i == j {
				continue
			}
			if dominates(criteria, candidates[j], candidates[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, candidates[i].ID)
		}
	}
	return frontier
}

// dominates returns true if a dominates b.
func dominates(criteria []Criterion, a, b Candidate) bool {
	strictly := false
	for _, c := range criteria {
		av, bv := a.Scores[c.ID], b.Scores[c.ID]
		if c.Polarity == Cost {
			av, bv = -av, -bv
		}
		if av < bv {
			return false
		}
		if av > bv {
			strictly = true
		}
	}
	return strictly
}
