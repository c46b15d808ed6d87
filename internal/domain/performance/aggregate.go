package performance

// AggregateLines computes the override for each line that has qualifying
// subordinate data: the rounded mean of subordinate lines on the same
// objective with a positive achieved percentage. Lines without data are
// absent from the result.
func AggregateLines(lines []Line, subordinates []SubordinateLine) map[string]float64 {
	type acc struct {
		sum   float64
		count int
	}
	byObjective := map[string]*acc{}
	for _, sub := range subordinates {
		if sub.Achieved <= 0 {
			continue
		}
		a, ok := byObjective[sub.ObjectiveID]
		if !ok {
			a = &acc{}
			byObjective[sub.ObjectiveID] = a
		}
		a.sum += sub.Achieved
		a.count++
	}

	overrides := map[string]float64{}
	for _, line := range lines {
		a, ok := byObjective[line.ObjectiveID]
		if !ok || a.count == 0 {
			continue
		}
		overrides[line.ID] = round2(a.sum / float64(a.count))
	}
	return overrides
}

// AdvanceState moves current forward to target, never backwards.
func AdvanceState(current, target string) string {
	if stateRank[target] > stateRank[current] {
		return target
	}
	return current
}

// CanTransition reports whether a requested state change moves strictly forward.
func CanTransition(current, target string) bool {
	if !ValidState(current) || !ValidState(target) {
		return false
	}
	return stateRank[target] > stateRank[current]
}

// AggregationResult summarizes one record's aggregation.
type AggregationResult struct {
	EvaluationID string `json:"evaluationId"`
	Aggregated   bool   `json:"aggregated"`
	LinesUpdated int    `json:"linesUpdated"`
	State        string `json:"state"`
}
