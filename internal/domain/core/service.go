package core

import (
	"context"
	"strings"
)

// ChangeHook runs after a tenant's employee data changed.
type ChangeHook func(ctx context.Context, tenantID string)

type Service struct {
	store    StoreAPI
	onChange []ChangeHook
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) OnChange(hook ChangeHook) *Service {
	if hook != nil {
		s.onChange = append(s.onChange, hook)
	}
	return s
}

func (s *Service) changed(ctx context.Context, tenantID string) {
	for _, hook := range s.onChange {
		hook(ctx, tenantID)
	}
}

func (s *Service) ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]Employee, int, error) {
	total, err := s.store.EmployeeCount(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}
	employees, err := s.store.ListEmployees(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return employees, total, nil
}

func (s *Service) GetEmployee(ctx context.Context, tenantID, employeeID string) (*Employee, error) {
	return s.store.GetEmployee(ctx, tenantID, employeeID)
}

// CreateEmployee validates the optional supervisor before inserting.
func (s *Service) CreateEmployee(ctx context.Context, tenantID string, emp Employee) (string, error) {
	normalizeEmployee(&emp)
	if emp.SupervisorID != "" {
		parents, err := s.store.SupervisorMap(ctx, tenantID)
		if err != nil {
			return "", err
		}
		if _, ok := parents[emp.SupervisorID]; !ok {
			return "", ErrSupervisorNotFound
		}
	}
	id, err := s.store.CreateEmployee(ctx, tenantID, emp)
	if err != nil {
		return "", err
	}
	s.changed(ctx, tenantID)
	return id, nil
}

func (s *Service) UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp Employee) error {
	normalizeEmployee(&emp)
	if err := s.store.UpdateEmployee(ctx, tenantID, employeeID, emp); err != nil {
		return err
	}
	s.changed(ctx, tenantID)
	return nil
}

// SetSupervisor rejects assignments that would make the hierarchy cyclic.
func (s *Service) SetSupervisor(ctx context.Context, tenantID, employeeID, supervisorID string) error {
	parents, err := s.store.SupervisorMap(ctx, tenantID)
	if err != nil {
		return err
	}
	if _, ok := parents[employeeID]; !ok {
		return ErrEmployeeNotFound
	}
	if err := ValidateSupervisor(parents, employeeID, supervisorID); err != nil {
		return err
	}
	if err := s.store.SetSupervisor(ctx, tenantID, employeeID, supervisorID); err != nil {
		return err
	}
	s.changed(ctx, tenantID)
	return nil
}

func (s *Service) ListSubordinates(ctx context.Context, tenantID, employeeID string) ([]Employee, error) {
	if _, err := s.store.GetEmployee(ctx, tenantID, employeeID); err != nil {
		return nil, err
	}
	return s.store.ListSubordinates(ctx, tenantID, employeeID)
}

func (s *Service) EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error) {
	return s.store.EmployeeIDByUserID(ctx, tenantID, userID)
}

func normalizeEmployee(emp *Employee) {
	emp.FirstName = strings.TrimSpace(emp.FirstName)
	emp.LastName = strings.TrimSpace(emp.LastName)
	emp.Email = strings.ToLower(strings.TrimSpace(emp.Email))
	if emp.AppraisalRole == "" {
		emp.AppraisalRole = AppraisalRoleAppraisee
	}
	if emp.Status == "" {
		emp.Status = EmployeeStatusActive
	}
}
