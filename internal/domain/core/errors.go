package core

import "errors"

var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrSupervisorNotFound = errors.New("supervisor not found")
	ErrSelfSupervisor     = errors.New("employee cannot supervise themselves")
	ErrHierarchyCycle     = errors.New("supervisor assignment would create a cycle")
)
