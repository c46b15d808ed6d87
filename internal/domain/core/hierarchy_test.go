package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSupervisor(t *testing.T) {
	// ceo <- manager <- engineer
	parents := map[string]string{
		"ceo":      "",
		"manager":  "ceo",
		"engineer": "manager",
		"analyst":  "",
	}

	cases := []struct {
		name       string
		employee   string
		supervisor string
		want       error
	}{
		{name: "clear supervisor", employee: "manager", supervisor: "", want: nil},
		{name: "valid move", employee: "analyst", supervisor: "manager", want: nil},
		{name: "self", employee: "manager", supervisor: "manager", want: ErrSelfSupervisor},
		{name: "unknown supervisor", employee: "analyst", supervisor: "ghost", want: ErrSupervisorNotFound},
		{name: "direct cycle", employee: "manager", supervisor: "engineer", want: ErrHierarchyCycle},
		{name: "indirect cycle", employee: "ceo", supervisor: "engineer", want: ErrHierarchyCycle},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateSupervisor(parents, tc.employee, tc.supervisor)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestValidateSupervisorRefusesExistingLoop(t *testing.T) {
	parents := map[string]string{"a": "b", "b": "a", "c": ""}
	assert.ErrorIs(t, ValidateSupervisor(parents, "c", "a"), ErrHierarchyCycle)
}
