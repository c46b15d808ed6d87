package core

// ValidateSupervisor checks that pointing employeeID at supervisorID keeps the
// supervisor graph an acyclic forest. parents maps every known employee id to
// its current supervisor id ("" for roots). An empty supervisorID clears the
// relation and is always valid.
func ValidateSupervisor(parents map[string]string, employeeID, supervisorID string) error {
	if supervisorID == "" {
		return nil
	}
	if supervisorID == employeeID {
		return ErrSelfSupervisor
	}
	if _, ok := parents[supervisorID]; !ok {
		return ErrSupervisorNotFound
	}

	seen := map[string]struct{}{}
	for current := supervisorID; current != ""; current = parents[current] {
		if current == employeeID {
			return ErrHierarchyCycle
		}
		if _, ok := seen[current]; ok {
			// existing data already loops; refuse to extend it
			return ErrHierarchyCycle
		}
		seen[current] = struct{}{}
	}
	return nil
}
