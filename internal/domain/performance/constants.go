package performance

const (
	KindPerformance = "performance"
	KindKPI         = "kpi"

	StateDraft     = "draft"
	StateChecked   = "checked"
	StateConfirmed = "confirmed"
	StateDone      = "done"

	OverrideAggregated = "aggregated"
	OverrideSeeded     = "seeded"

	EventEvaluationChecked = "evaluation.checked"
	EventEvaluationState   = "evaluation.state_changed"
	EventLevelChanged      = "evaluation.level_changed"
)

var stateOrder = []string{StateDraft, StateChecked, StateConfirmed, StateDone}

var stateRank = map[string]int{
	StateDraft:     0,
	StateChecked:   1,
	StateConfirmed: 2,
	StateDone:      3,
}

func ValidKind(kind string) bool {
	return kind == KindPerformance || kind == KindKPI
}

func ValidState(state string) bool {
	_, ok := stateRank[state]
	return ok
}

func namePrefix(kind string) string {
	if kind == KindKPI {
		return "KPI/"
	}
	return "Perf/"
}
