package performance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestAchievedPercentage(t *testing.T) {
	cases := []struct {
		name string
		in   MetricInputs
		app  Applicability
		want float64
	}{
		{name: "job completed", in: MetricInputs{JobsCompleted: 2, WorkOrders: 3}, app: Applicability{JobCompleted: true}, want: 66.67},
		{name: "job completed zero work orders", in: MetricInputs{JobsCompleted: 2}, app: Applicability{JobCompleted: true}, want: 0},
		{name: "fixed single visit", in: MetricInputs{JobsFixedSingleVisit: 9, WorkOrders: 12}, app: Applicability{JobFixed: true}, want: 75},
		{name: "presence", in: MetricInputs{JobsAttended: 19, JobsScheduled: 20}, app: Applicability{Presence: true}, want: 95},
		{name: "presence zero scheduled", in: MetricInputs{JobsAttended: 19}, app: Applicability{Presence: true}, want: 0},
		{name: "service report", in: MetricInputs{JobsSubmitted: 7, JobsCompleted: 8}, app: Applicability{ServiceReport: true}, want: 87.5},
		{name: "safety", in: MetricInputs{JobOpportunities: 50, Incidents: 2}, app: Applicability{Safety: true}, want: 96},
		{name: "quality", in: MetricInputs{AchieveRating: ptr(4)}, app: Applicability{Quality: true}, want: 80},
		{name: "quality without rating or revenue", in: MetricInputs{}, app: Applicability{Quality: true, Revenue: true}, want: 0},
		{name: "revenue", in: MetricInputs{PreviousYearRevenue: 100, CurrentYearRevenue: 120}, app: Applicability{Revenue: true}, want: 20},
		{name: "revenue decline", in: MetricInputs{PreviousYearRevenue: 200, CurrentYearRevenue: 150}, app: Applicability{Revenue: true}, want: -25},
		{name: "revenue zero previous", in: MetricInputs{CurrentYearRevenue: 120}, app: Applicability{Revenue: true}, want: 0},
		{name: "first rule wins", in: MetricInputs{JobsCompleted: 1, WorkOrders: 4, JobsAttended: 1, JobsScheduled: 1}, app: Applicability{JobCompleted: true, Presence: true}, want: 25},
		{name: "missing work orders falls through to presence", in: MetricInputs{JobsAttended: 19, JobsScheduled: 20}, app: Applicability{JobCompleted: true, Presence: true}, want: 95},
		{name: "missing opportunities falls through to revenue", in: MetricInputs{PreviousYearRevenue: 100, CurrentYearRevenue: 120}, app: Applicability{Safety: true, Revenue: true}, want: 20},
		{name: "quality without rating falls through to revenue", in: MetricInputs{PreviousYearRevenue: 100, CurrentYearRevenue: 150}, app: Applicability{Quality: true, Revenue: true}, want: 50},
		{name: "first match only stops at missing work orders", in: MetricInputs{JobsAttended: 19, JobsScheduled: 20}, app: Applicability{JobCompleted: true, Presence: true, FirstMatchOnly: true}, want: 0},
		{name: "first match only quality without rating", in: MetricInputs{PreviousYearRevenue: 100, CurrentYearRevenue: 120}, app: Applicability{Quality: true, Revenue: true, FirstMatchOnly: true}, want: 0},
		{name: "first match only uses usable first rule", in: MetricInputs{JobsAttended: 19, JobsScheduled: 20}, app: Applicability{Presence: true, Revenue: true, FirstMatchOnly: true}, want: 95},
		{name: "no applicable metric", in: MetricInputs{JobsCompleted: 5, WorkOrders: 5}, app: Applicability{}, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, AchievedPercentage(tc.in, tc.app))
		})
	}
}

func TestAchievedPercentageByMode(t *testing.T) {
	objective := Objective{Name: "Safety Incidents and Revenue", ShowSafetyIncidents: true, ShowRevenue: true}
	in := MetricInputs{PreviousYearRevenue: 200, CurrentYearRevenue: 230}

	assert.Equal(t, 15.0, AchievedPercentage(in, ResolverFor(ApplicabilityFlags)(objective)))
	assert.Equal(t, 0.0, AchievedPercentage(in, ResolverFor(ApplicabilityName)(objective)))

	in.JobOpportunities, in.Incidents = 20, 1
	assert.Equal(t, 95.0, AchievedPercentage(in, ResolverFor(ApplicabilityFlags)(objective)))
	assert.Equal(t, 95.0, AchievedPercentage(in, ResolverFor(ApplicabilityName)(objective)))
}

func TestFinalRating(t *testing.T) {
	assert.Equal(t, 1.2, FinalRating(30, 4))
	assert.Equal(t, 0.0, FinalRating(0, 5))
	assert.Equal(t, 1.67, FinalRating(33.3333, 5))
}

func TestRecomputeFillsDerivedFields(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 45)
	line := Line{
		TimelineFrom: &from,
		TimelineTo:   &to,
		MetricInputs: MetricInputs{PreviousYearRevenue: 100, CurrentYearRevenue: 120},
		Weightage:    50,
		Rating:       3,
	}

	Recompute(&line, Applicability{Revenue: true})

	assert.Equal(t, 20.0, line.RevenueIncreased)
	assert.Equal(t, 20.0, line.AchievedComputed)
	assert.Equal(t, 20.0, line.Achieved())
	assert.Equal(t, 1.5, line.FinalRating)
	assert.Equal(t, "1 months 15 days", line.TimelineDuration)
}

func TestAchievedPrefersOverride(t *testing.T) {
	line := Line{AchievedComputed: 40, AchievedOverride: ptr(85)}
	assert.Equal(t, 85.0, line.Achieved())
}

func TestTotals(t *testing.T) {
	lines := []Line{
		{Weightage: 40, FinalRating: 1.6},
		{Weightage: 60, FinalRating: 2.4},
	}
	weightage, overall := Totals(lines)
	assert.Equal(t, 100.0, weightage)
	assert.Equal(t, 4.0, overall)

	weightage, overall = Totals(nil)
	assert.Zero(t, weightage)
	assert.Zero(t, overall)
}
