package auth

const (
	RoleEmployee = "Employee"
	RoleManager  = "Manager"
	RoleHR       = "HR"
)

const (
	PermEmployeesRead       = "core.employees.read"
	PermEmployeesWrite      = "core.employees.write"
	PermPerformanceRead     = "performance.read"
	PermPerformanceWrite    = "performance.write"
	PermPerformanceConfig   = "performance.config"
	PermPerformanceReview   = "performance.review"
	PermPerformanceFinalize = "performance.finalize"
	PermDashboardRead       = "performance.dashboard.read"
	PermReportsRead         = "reports.read"
	PermAuditRead           = "audit.read"
)

// Grants are cumulative: a manager holds every employee permission and HR
// holds every manager permission.
var (
	employeeGrants = []string{
		PermEmployeesRead,
		PermPerformanceRead,
		PermPerformanceWrite,
		PermDashboardRead,
	}
	managerGrants = with(employeeGrants,
		PermPerformanceReview,
		PermReportsRead,
	)
	hrGrants = with(managerGrants,
		PermEmployeesWrite,
		PermPerformanceConfig,
		PermPerformanceFinalize,
		PermAuditRead,
	)
)

// DefaultPermissions is the full catalog seeded for every tenant.
var DefaultPermissions = hrGrants

var RolePermissions = map[string][]string{
	RoleEmployee: employeeGrants,
	RoleManager:  managerGrants,
	RoleHR:       hrGrants,
}

func with(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}
