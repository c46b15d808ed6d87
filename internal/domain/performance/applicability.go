package performance

import "strings"

const (
	ApplicabilityFlags = "flags"
	ApplicabilityName  = "name"
)

// Applicability selects which raw metric drives a line's achieved percentage.
type Applicability struct {
	JobCompleted  bool
	JobFixed      bool
	Presence      bool
	ServiceReport bool
	Safety        bool
	Quality       bool
	Revenue       bool

	// FirstMatchOnly stops at the first applicable rule even when its
	// inputs are missing. Set by name matching.
	FirstMatchOnly bool
}

type Resolver func(Objective) Applicability

// ResolverFor returns the resolver for a configured mode. Unknown modes fall
// back to stored flags.
func ResolverFor(mode string) Resolver {
	if strings.EqualFold(strings.TrimSpace(mode), ApplicabilityName) {
		return NameApplicability
	}
	return FlagApplicability
}

func FlagApplicability(o Objective) Applicability {
	return Applicability{
		JobCompleted:  o.ShowJobCompleted,
		JobFixed:      o.ShowJobFixed,
		Presence:      o.ShowPresenceSchedule,
		ServiceReport: o.ShowServiceReports,
		Safety:        o.ShowSafetyIncidents,
		Quality:       o.ShowQualityScore,
		Revenue:       o.ShowRevenue,
	}
}

func NameApplicability(o Objective) Applicability {
	name := strings.ToLower(o.Name)
	if name == "" {
		return Applicability{FirstMatchOnly: true}
	}
	has := func(parts ...string) bool {
		for _, part := range parts {
			if strings.Contains(name, part) {
				return true
			}
		}
		return false
	}
	return Applicability{
		JobCompleted:  has("job completed"),
		JobFixed:      has("fixed"),
		Presence:      has("presence"),
		ServiceReport: has("service", "report"),
		Safety:        has("safety", "incident"),
		Quality:       has("quality", "audit"),
		Revenue:       has("revenue"),

		FirstMatchOnly: true,
	}
}
