package performance

import (
	"math"
	"time"

	"hrperf/internal/domain/core"
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func ratio(num, den int) (float64, bool) {
	if den <= 0 {
		return 0, false
	}
	return float64(num) / float64(den) * 100, true
}

// RevenueIncrease is the year-over-year change in percent, 0 without a
// positive previous year.
func RevenueIncrease(previous, current float64) float64 {
	if previous <= 0 {
		return 0
	}
	return round2((current - previous) / previous * 100)
}

type metricRule struct {
	applies func(Applicability) bool
	compute func(MetricInputs) (float64, bool)
}

// metricRules is evaluated in order. compute reports false when the rule's
// denominator or input is missing.
var metricRules = []metricRule{
	{
		applies: func(a Applicability) bool { return a.JobCompleted },
		compute: func(in MetricInputs) (float64, bool) { return ratio(in.JobsCompleted, in.WorkOrders) },
	},
	{
		applies: func(a Applicability) bool { return a.JobFixed },
		compute: func(in MetricInputs) (float64, bool) { return ratio(in.JobsFixedSingleVisit, in.WorkOrders) },
	},
	{
		applies: func(a Applicability) bool { return a.Presence },
		compute: func(in MetricInputs) (float64, bool) { return ratio(in.JobsAttended, in.JobsScheduled) },
	},
	{
		applies: func(a Applicability) bool { return a.ServiceReport },
		compute: func(in MetricInputs) (float64, bool) { return ratio(in.JobsSubmitted, in.JobsCompleted) },
	},
	{
		applies: func(a Applicability) bool { return a.Safety },
		compute: func(in MetricInputs) (float64, bool) {
			return ratio(in.JobOpportunities-in.Incidents, in.JobOpportunities)
		},
	},
	{
		applies: func(a Applicability) bool { return a.Quality },
		compute: func(in MetricInputs) (float64, bool) {
			if in.AchieveRating == nil {
				return 0, false
			}
			return *in.AchieveRating / 5 * 100, true
		},
	},
	{
		applies: func(a Applicability) bool { return a.Revenue },
		compute: func(in MetricInputs) (float64, bool) {
			if in.PreviousYearRevenue <= 0 {
				return 0, false
			}
			return RevenueIncrease(in.PreviousYearRevenue, in.CurrentYearRevenue), true
		},
	},
}

// AchievedPercentage returns the value of the first applicable rule whose
// inputs are usable. With FirstMatchOnly the first applicable rule decides
// alone and missing inputs yield 0.
func AchievedPercentage(in MetricInputs, app Applicability) float64 {
	for _, rule := range metricRules {
		if !rule.applies(app) {
			continue
		}
		if achieved, ok := rule.compute(in); ok {
			return round2(achieved)
		}
		if app.FirstMatchOnly {
			return 0
		}
	}
	return 0
}

func FinalRating(weightage, rating float64) float64 {
	return round2(weightage / 100 * rating)
}

// Recompute refreshes every derived field of the line from its inputs.
func Recompute(line *Line, app Applicability) {
	line.RevenueIncreased = RevenueIncrease(line.PreviousYearRevenue, line.CurrentYearRevenue)
	line.AchievedComputed = AchievedPercentage(line.MetricInputs, app)
	line.FinalRating = FinalRating(line.Weightage, line.Rating)
	line.TimelineDuration = timelineDuration(line.TimelineFrom, line.TimelineTo)
}

// Totals returns the total weightage and the overall rating of a record.
func Totals(lines []Line) (float64, float64) {
	var weightage, overall float64
	for _, line := range lines {
		weightage += line.Weightage
		overall += line.FinalRating
	}
	return round2(weightage), round2(overall)
}

func timelineDuration(from, to *time.Time) string {
	if from == nil || to == nil {
		return ""
	}
	return core.FormatSpan(*from, *to)
}
