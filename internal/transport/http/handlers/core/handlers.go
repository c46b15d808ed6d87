package corehandler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrperf/internal/domain/audit"
	"hrperf/internal/domain/auth"
	"hrperf/internal/domain/core"
	"hrperf/internal/domain/performance"
	"hrperf/internal/transport/http/api"
	"hrperf/internal/transport/http/middleware"
	"hrperf/internal/transport/http/shared"
)

type EmployeeService interface {
	ListEmployees(ctx context.Context, tenantID string, limit, offset int) ([]core.Employee, int, error)
	GetEmployee(ctx context.Context, tenantID, employeeID string) (*core.Employee, error)
	CreateEmployee(ctx context.Context, tenantID string, emp core.Employee) (string, error)
	UpdateEmployee(ctx context.Context, tenantID, employeeID string, emp core.Employee) error
	SetSupervisor(ctx context.Context, tenantID, employeeID, supervisorID string) error
	ListSubordinates(ctx context.Context, tenantID, employeeID string) ([]core.Employee, error)
	EmployeeIDByUserID(ctx context.Context, tenantID, userID string) (string, error)
}

type SubordinateAggregator interface {
	AggregateSubordinates(ctx context.Context, tenantID, employeeID string) ([]performance.AggregationResult, error)
}

type Handler struct {
	Service    EmployeeService
	Aggregator SubordinateAggregator
	Perms      middleware.PermissionStore
	Audit      audit.Recorder
}

func NewHandler(service EmployeeService, aggregator SubordinateAggregator, perms middleware.PermissionStore, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Aggregator: aggregator, Perms: perms, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermEmployeesRead, h.Perms)
	write := middleware.RequirePermission(auth.PermEmployeesWrite, h.Perms)
	review := middleware.RequirePermission(auth.PermPerformanceReview, h.Perms)

	r.Route("/employees", func(r chi.Router) {
		r.With(read).Get("/", h.handleListEmployees)
		r.With(write).Post("/", h.handleCreateEmployee)
		r.With(middleware.RequireAuth).Get("/me", h.handleGetSelf)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(read).Get("/", h.handleGetEmployee)
			r.With(write).Put("/", h.handleUpdateEmployee)
			r.With(write).Put("/supervisor", h.handleSetSupervisor)
			r.With(read).Get("/subordinates", h.handleListSubordinates)
			r.With(review).Post("/aggregate-subordinates", h.handleAggregateSubordinates)
		})
	})
}

type employeeRequest struct {
	Code               string `json:"code" validate:"max=64"`
	FirstName          string `json:"firstName" validate:"required,max=128"`
	LastName           string `json:"lastName" validate:"max=128"`
	Email              string `json:"email" validate:"omitempty,email"`
	JobTitle           string `json:"jobTitle"`
	Grade              string `json:"grade"`
	Division           string `json:"division"`
	Location           string `json:"location"`
	SupervisorID       string `json:"supervisorId" validate:"omitempty,uuid"`
	JoiningDate        string `json:"joiningDate"`
	ReviewDateFrom     string `json:"reviewDateFrom"`
	ReviewDateTo       string `json:"reviewDateTo"`
	LastPromotionYear  string `json:"lastPromotionYear"`
	HighestEducation   string `json:"highestEducation"`
	AssessmentLastYear string `json:"assessmentLastYear"`
	AppraisalRole      string `json:"appraisalRole"`
	Status             string `json:"status"`
}

type supervisorRequest struct {
	SupervisorID string `json:"supervisorId" validate:"omitempty,uuid"`
}

// decodeEmployee validates the payload and writes a 400 when it is rejected.
func decodeEmployee(w http.ResponseWriter, r *http.Request) (core.Employee, bool) {
	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return core.Employee{}, false
	}

	validator := shared.NewValidator()
	validator.Struct(payload)
	validator.Enum("appraisalRole", payload.AppraisalRole, core.AppraisalRoles, "must be one of: "+strings.Join(core.AppraisalRoles, ", "))
	emp := core.Employee{
		Code:               payload.Code,
		FirstName:          payload.FirstName,
		LastName:           payload.LastName,
		Email:              payload.Email,
		JobTitle:           payload.JobTitle,
		Grade:              payload.Grade,
		Division:           payload.Division,
		Location:           payload.Location,
		SupervisorID:       payload.SupervisorID,
		JoiningDate:        validator.OptionalDate("joiningDate", payload.JoiningDate),
		ReviewDateFrom:     validator.OptionalDate("reviewDateFrom", payload.ReviewDateFrom),
		ReviewDateTo:       validator.OptionalDate("reviewDateTo", payload.ReviewDateTo),
		LastPromotionYear:  payload.LastPromotionYear,
		HighestEducation:   payload.HighestEducation,
		AssessmentLastYear: payload.AssessmentLastYear,
		AppraisalRole:      strings.ToLower(strings.TrimSpace(payload.AppraisalRole)),
		Status:             payload.Status,
	}
	if emp.ReviewDateFrom != nil && emp.ReviewDateTo != nil {
		validator.DateOrder("reviewDateFrom", *emp.ReviewDateFrom, "reviewDateTo", *emp.ReviewDateTo)
	}
	if emp.JoiningDate != nil && emp.JoiningDate.After(time.Now()) {
		validator.Add("joiningDate", "must not be in the future")
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return core.Employee{}, false
	}
	return emp, true
}

func (h *Handler) record(r *http.Request, user auth.UserContext, action, entityType, entityID string, before, after any) {
	if h.Audit == nil {
		return
	}
	if err := h.Audit.Record(r.Context(), audit.Entry{
		TenantID:   user.TenantID,
		ActorID:    user.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		Before:     before,
		After:      after,
	}); err != nil {
		zap.L().Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

var employeeErrors = []api.ErrorCase{
	api.Is(core.ErrEmployeeNotFound, http.StatusNotFound, "not_found", "employee not found"),
	api.Is(core.ErrSupervisorNotFound, http.StatusBadRequest, "supervisor_not_found", "supervisor not found"),
	api.Is(core.ErrSelfSupervisor, http.StatusConflict, "invalid_hierarchy", ""),
	api.Is(core.ErrHierarchyCycle, http.StatusConflict, "invalid_hierarchy", ""),
	api.UniqueViolation("employee_exists", "employee code or email already exists"),
}

func writeEmployeeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	api.FailMapped(w, err, employeeErrors, code, message, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePage(r, shared.EmployeePages)

	employees, total, err := h.Service.ListEmployees(r.Context(), user.TenantID, page.Limit, page.Offset)
	if err != nil {
		writeEmployeeError(w, r, err, "employee_list_failed", "failed to list employees")
		return
	}
	if employees == nil {
		employees = []core.Employee{}
	}
	shared.WriteTotalCount(w, total)
	api.Success(w, employees, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	emp, err := h.Service.GetEmployee(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"))
	if err != nil {
		writeEmployeeError(w, r, err, "employee_get_failed", "failed to load employee")
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

// handleGetSelf returns the employee record linked to the caller's user.
func (h *Handler) handleGetSelf(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID, err := h.Service.EmployeeIDByUserID(r.Context(), user.TenantID, user.UserID)
	if err != nil {
		writeEmployeeError(w, r, err, "employee_get_failed", "failed to load employee")
		return
	}
	emp, err := h.Service.GetEmployee(r.Context(), user.TenantID, employeeID)
	if err != nil {
		writeEmployeeError(w, r, err, "employee_get_failed", "failed to load employee")
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	emp, ok := decodeEmployee(w, r)
	if !ok {
		return
	}

	id, err := h.Service.CreateEmployee(r.Context(), user.TenantID, emp)
	if err != nil {
		writeEmployeeError(w, r, err, "employee_create_failed", "failed to create employee")
		return
	}

	h.record(r, user, "core.employee.create", "employee", id, nil, emp)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	before, err := h.Service.GetEmployee(r.Context(), user.TenantID, employeeID)
	if err != nil {
		writeEmployeeError(w, r, err, "employee_update_failed", "failed to update employee")
		return
	}
	emp, ok := decodeEmployee(w, r)
	if !ok {
		return
	}
	// Supervisor is only changed through PUT /supervisor.
	emp.SupervisorID = before.SupervisorID

	if err := h.Service.UpdateEmployee(r.Context(), user.TenantID, employeeID, emp); err != nil {
		writeEmployeeError(w, r, err, "employee_update_failed", "failed to update employee")
		return
	}

	h.record(r, user, "core.employee.update", "employee", employeeID, before, emp)
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetSupervisor(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	var payload supervisorRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	if err := h.Service.SetSupervisor(r.Context(), user.TenantID, employeeID, payload.SupervisorID); err != nil {
		writeEmployeeError(w, r, err, "supervisor_update_failed", "failed to update supervisor")
		return
	}

	h.record(r, user, "core.employee.supervisor", "employee", employeeID, nil, payload)
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListSubordinates(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	subordinates, err := h.Service.ListSubordinates(r.Context(), user.TenantID, chi.URLParam(r, "employeeID"))
	if err != nil {
		writeEmployeeError(w, r, err, "subordinate_list_failed", "failed to list subordinates")
		return
	}
	if subordinates == nil {
		subordinates = []core.Employee{}
	}
	api.Success(w, subordinates, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAggregateSubordinates(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")

	results, err := h.Aggregator.AggregateSubordinates(r.Context(), user.TenantID, employeeID)
	if err != nil {
		writeEmployeeError(w, r, err, "aggregation_failed", "failed to aggregate subordinates")
		return
	}

	h.record(r, user, "performance.aggregate_subordinates", "employee", employeeID, nil, results)
	api.Success(w, results, middleware.GetRequestID(r.Context()))
}
