package core

import "context"

type StoreAPI interface {
	ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]Employee, error)
	EmployeeCount(ctx context.Context, tenantID string) (int, error)
	GetEmployee(ctx context.Context, tenantID, employeeID string) (*Employee, error)
	CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error)
	UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp Employee) error
	SupervisorMap(ctx context.Context, tenantID string) (map[string]string, error)
	SetSupervisor(ctx context.Context, tenantID, employeeID, supervisorID string) error
	ListSubordinates(ctx context.Context, tenantID, employeeID string) ([]Employee, error)
	EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error)
}
