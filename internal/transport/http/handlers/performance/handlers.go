package performancehandler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
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

type Service interface {
	ListObjectives(ctx context.Context, tenantID string) ([]performance.Objective, error)
	CreateObjective(ctx context.Context, tenantID string, objective performance.Objective) (string, error)
	UpdateObjective(ctx context.Context, tenantID, objectiveID string, objective performance.Objective) error
	ListLevels(ctx context.Context, tenantID string) ([]performance.Level, error)
	GetLevel(ctx context.Context, tenantID, levelID string) (*performance.Level, error)
	CreateLevel(ctx context.Context, tenantID string, level performance.Level) (string, error)
	ReplaceLevelTargets(ctx context.Context, tenantID, levelID string, targets []performance.ObjectiveTarget) error
	ListEvaluations(ctx context.Context, tenantID string, filter performance.EvaluationFilter) ([]performance.Evaluation, int, error)
	GetEvaluation(ctx context.Context, tenantID, evaluationID string) (*performance.Evaluation, error)
	CreateEvaluation(ctx context.Context, tenantID, kind, employeeID, levelID, comments string) (*performance.Evaluation, error)
	ChangeLevel(ctx context.Context, tenantID, evaluationID, levelID string) (*performance.Evaluation, error)
	UpdateLine(ctx context.Context, tenantID, evaluationID, lineID string, update performance.LineUpdate) (*performance.Line, error)
	MarkChecked(ctx context.Context, tenantID, evaluationID string) (performance.AggregationResult, error)
	Transition(ctx context.Context, tenantID, evaluationID, target string) (*performance.Evaluation, error)
	Dashboard(ctx context.Context, tenantID string) (performance.Dashboard, error)
}

type Handler struct {
	Service Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
}

func NewHandler(service Service, perms middleware.PermissionStore, recorder audit.Recorder) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermPerformanceRead, h.Perms)
	write := middleware.RequirePermission(auth.PermPerformanceWrite, h.Perms)
	config := middleware.RequirePermission(auth.PermPerformanceConfig, h.Perms)
	review := middleware.RequirePermission(auth.PermPerformanceReview, h.Perms)

	r.Route("/performance", func(r chi.Router) {
		r.Route("/objectives", func(r chi.Router) {
			r.With(read).Get("/", h.handleListObjectives)
			r.With(config).Post("/", h.handleCreateObjective)
			r.With(config).Put("/{objectiveID}", h.handleUpdateObjective)
		})
		r.Route("/levels", func(r chi.Router) {
			r.With(read).Get("/", h.handleListLevels)
			r.With(config).Post("/", h.handleCreateLevel)
			r.With(read).Get("/{levelID}", h.handleGetLevel)
			r.With(config).Put("/{levelID}/targets", h.handleReplaceTargets)
		})
		r.Route("/evaluations", func(r chi.Router) {
			r.With(read).Get("/", h.handleListEvaluations)
			r.With(write).Post("/", h.handleCreateEvaluation)
			r.Route("/{evaluationID}", func(r chi.Router) {
				r.With(read).Get("/", h.handleGetEvaluation)
				r.With(write).Put("/level", h.handleChangeLevel)
				r.With(write).Put("/lines/{lineID}", h.handleUpdateLine)
				r.With(review).Post("/check", h.handleCheck)
				r.With(review).Post("/state", h.handleTransition)
			})
		})
		r.With(middleware.RequirePermission(auth.PermDashboardRead, h.Perms)).Get("/dashboard", h.handleDashboard)
	})
}

type objectiveRequest struct {
	Name                 string `json:"name" validate:"required,max=255"`
	Description          string `json:"description"`
	ShowJobCompleted     bool   `json:"showJobCompleted"`
	ShowJobFixed         bool   `json:"showJobFixed"`
	ShowPresenceSchedule bool   `json:"showPresenceSchedule"`
	ShowServiceReports   bool   `json:"showServiceReports"`
	ShowSafetyIncidents  bool   `json:"showSafetyIncidents"`
	ShowQualityScore     bool   `json:"showQualityScore"`
	ShowRevenue          bool   `json:"showRevenue"`
}

func (o objectiveRequest) objective() performance.Objective {
	return performance.Objective{
		Name:                 o.Name,
		Description:          o.Description,
		ShowJobCompleted:     o.ShowJobCompleted,
		ShowJobFixed:         o.ShowJobFixed,
		ShowPresenceSchedule: o.ShowPresenceSchedule,
		ShowServiceReports:   o.ShowServiceReports,
		ShowSafetyIncidents:  o.ShowSafetyIncidents,
		ShowQualityScore:     o.ShowQualityScore,
		ShowRevenue:          o.ShowRevenue,
	}
}

type targetRequest struct {
	ObjectiveID      string  `json:"objectiveId" validate:"required"`
	Sequence         int     `json:"sequence" validate:"gte=0"`
	TargetPercentage float64 `json:"targetPercentage" validate:"gte=0"`
	TimelineFrom     string  `json:"timelineFrom"`
	TimelineTo       string  `json:"timelineTo"`
}

type levelRequest struct {
	Name           string          `json:"name" validate:"required,max=255"`
	ParentLevelID  string          `json:"parentLevelId"`
	ResponsibleIDs []string        `json:"responsibleIds"`
	Targets        []targetRequest `json:"targets" validate:"dive"`
}

type targetsRequest struct {
	Targets []targetRequest `json:"targets" validate:"dive"`
}

type evaluationRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=performance kpi"`
	EmployeeID string `json:"employeeId" validate:"required"`
	LevelID    string `json:"levelId" validate:"required"`
	Comments   string `json:"comments"`
}

type levelChangeRequest struct {
	LevelID string `json:"levelId" validate:"required"`
}

type lineRequest struct {
	Inputs    *performance.MetricInputs `json:"inputs"`
	Weightage *float64                  `json:"weightage" validate:"omitempty,gte=0,lte=100"`
	Rating    *float64                  `json:"rating" validate:"omitempty,gte=0"`
}

type stateRequest struct {
	State string `json:"state" validate:"required,oneof=draft checked confirmed done"`
}

// decode reads and validates the JSON body, writing a 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return false
	}
	validator := shared.NewValidator()
	validator.Struct(payload)
	return !validator.Reject(w, middleware.GetRequestID(r.Context()))
}

func parseTargets(w http.ResponseWriter, r *http.Request, in []targetRequest) ([]performance.ObjectiveTarget, bool) {
	validator := shared.NewValidator()
	out := make([]performance.ObjectiveTarget, 0, len(in))
	for i, t := range in {
		prefix := "targets[" + strconv.Itoa(i) + "]."
		from := validator.OptionalDate(prefix+"timelineFrom", t.TimelineFrom)
		to := validator.OptionalDate(prefix+"timelineTo", t.TimelineTo)
		if from != nil && to != nil {
			validator.DateOrder(prefix+"timelineFrom", *from, prefix+"timelineTo", *to)
		}
		out = append(out, performance.ObjectiveTarget{
			ObjectiveID:      t.ObjectiveID,
			Sequence:         t.Sequence,
			TargetPercentage: t.TargetPercentage,
			TimelineFrom:     from,
			TimelineTo:       to,
		})
	}
	if validator.Reject(w, middleware.GetRequestID(r.Context())) {
		return nil, false
	}
	return out, true
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

var evaluationErrors = []api.ErrorCase{
	api.Is(performance.ErrEvaluationNotFound, http.StatusNotFound, "not_found", "evaluation not found"),
	api.Is(performance.ErrLineNotFound, http.StatusNotFound, "not_found", "evaluation line not found"),
	api.Is(performance.ErrLevelNotFound, http.StatusNotFound, "level_not_found", "level not found"),
	api.Is(performance.ErrObjectiveNotFound, http.StatusNotFound, "objective_not_found", "objective not found"),
	api.Is(core.ErrEmployeeNotFound, http.StatusNotFound, "employee_not_found", "employee not found"),
	api.Is(performance.ErrInvalidTransition, http.StatusConflict, "invalid_transition", "state can only move forward"),
	api.Is(performance.ErrInvalidKind, http.StatusBadRequest, "invalid_request", ""),
	api.Is(performance.ErrInvalidState, http.StatusBadRequest, "invalid_request", ""),
	api.UniqueViolation("already_exists", "record already exists"),
}

func writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	api.FailMapped(w, err, evaluationErrors, code, message, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListObjectives(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	objectives, err := h.Service.ListObjectives(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, r, err, "objective_list_failed", "failed to list objectives")
		return
	}
	if objectives == nil {
		objectives = []performance.Objective{}
	}
	api.Success(w, objectives, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateObjective(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload objectiveRequest
	if !decode(w, r, &payload) {
		return
	}
	objective := payload.objective()
	id, err := h.Service.CreateObjective(r.Context(), user.TenantID, objective)
	if err != nil {
		writeError(w, r, err, "objective_create_failed", "failed to create objective")
		return
	}
	h.record(r, user, "performance.objective.create", "objective", id, nil, objective)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateObjective(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	objectiveID := chi.URLParam(r, "objectiveID")
	var payload objectiveRequest
	if !decode(w, r, &payload) {
		return
	}
	objective := payload.objective()
	if err := h.Service.UpdateObjective(r.Context(), user.TenantID, objectiveID, objective); err != nil {
		writeError(w, r, err, "objective_update_failed", "failed to update objective")
		return
	}
	h.record(r, user, "performance.objective.update", "objective", objectiveID, nil, objective)
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListLevels(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	levels, err := h.Service.ListLevels(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, r, err, "level_list_failed", "failed to list levels")
		return
	}
	if levels == nil {
		levels = []performance.Level{}
	}
	api.Success(w, levels, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	level, err := h.Service.GetLevel(r.Context(), user.TenantID, chi.URLParam(r, "levelID"))
	if err != nil {
		writeError(w, r, err, "level_get_failed", "failed to load level")
		return
	}
	api.Success(w, level, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateLevel(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload levelRequest
	if !decode(w, r, &payload) {
		return
	}
	targets, ok := parseTargets(w, r, payload.Targets)
	if !ok {
		return
	}
	level := performance.Level{
		Name:           payload.Name,
		ParentLevelID:  strings.TrimSpace(payload.ParentLevelID),
		ResponsibleIDs: payload.ResponsibleIDs,
		Targets:        targets,
	}
	id, err := h.Service.CreateLevel(r.Context(), user.TenantID, level)
	if err != nil {
		writeError(w, r, err, "level_create_failed", "failed to create level")
		return
	}
	h.record(r, user, "performance.level.create", "level", id, nil, level)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReplaceTargets(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	levelID := chi.URLParam(r, "levelID")
	var payload targetsRequest
	if !decode(w, r, &payload) {
		return
	}
	targets, ok := parseTargets(w, r, payload.Targets)
	if !ok {
		return
	}
	if err := h.Service.ReplaceLevelTargets(r.Context(), user.TenantID, levelID, targets); err != nil {
		writeError(w, r, err, "level_targets_failed", "failed to replace level targets")
		return
	}
	h.record(r, user, "performance.level.targets", "level", levelID, nil, targets)
	api.Success(w, map[string]string{"status": "updated"}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePage(r, shared.EvaluationPages)
	filter := performance.EvaluationFilter{
		Kind:       strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind"))),
		EmployeeID: strings.TrimSpace(r.URL.Query().Get("employeeId")),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	items, total, err := h.Service.ListEvaluations(r.Context(), user.TenantID, filter)
	if err != nil {
		writeError(w, r, err, "evaluation_list_failed", "failed to list evaluations")
		return
	}
	if items == nil {
		items = []performance.Evaluation{}
	}
	shared.WriteTotalCount(w, total)
	api.Success(w, items, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	ev, err := h.Service.GetEvaluation(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		writeError(w, r, err, "evaluation_get_failed", "failed to load evaluation")
		return
	}
	api.Success(w, ev, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload evaluationRequest
	if !decode(w, r, &payload) {
		return
	}
	ev, err := h.Service.CreateEvaluation(r.Context(), user.TenantID, payload.Kind, payload.EmployeeID, payload.LevelID, strings.TrimSpace(payload.Comments))
	if err != nil {
		writeError(w, r, err, "evaluation_create_failed", "failed to create evaluation")
		return
	}
	h.record(r, user, "performance.evaluation.create", "evaluation", ev.ID, nil, payload)
	api.Created(w, ev, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleChangeLevel(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	evaluationID := chi.URLParam(r, "evaluationID")
	var payload levelChangeRequest
	if !decode(w, r, &payload) {
		return
	}
	ev, err := h.Service.ChangeLevel(r.Context(), user.TenantID, evaluationID, payload.LevelID)
	if err != nil {
		writeError(w, r, err, "evaluation_level_failed", "failed to change level")
		return
	}
	h.record(r, user, "performance.evaluation.level", "evaluation", evaluationID, nil, payload)
	api.Success(w, ev, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	evaluationID := chi.URLParam(r, "evaluationID")
	lineID := chi.URLParam(r, "lineID")
	var payload lineRequest
	if !decode(w, r, &payload) {
		return
	}
	if payload.Inputs == nil && payload.Weightage == nil && payload.Rating == nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "inputs", Reason: "at least one of inputs, weightage or rating is required"}})
		return
	}
	line, err := h.Service.UpdateLine(r.Context(), user.TenantID, evaluationID, lineID, performance.LineUpdate{
		Inputs:    payload.Inputs,
		Weightage: payload.Weightage,
		Rating:    payload.Rating,
	})
	if err != nil {
		writeError(w, r, err, "line_update_failed", "failed to update line")
		return
	}
	h.record(r, user, "performance.line.update", "evaluation_line", lineID, nil, line)
	api.Success(w, line, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	evaluationID := chi.URLParam(r, "evaluationID")
	result, err := h.Service.MarkChecked(r.Context(), user.TenantID, evaluationID)
	if err != nil {
		writeError(w, r, err, "evaluation_check_failed", "failed to check evaluation")
		return
	}
	h.record(r, user, "performance.evaluation.check", "evaluation", evaluationID, nil, result)
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

// handleTransition requires the finalize permission to close a record.
func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	evaluationID := chi.URLParam(r, "evaluationID")
	var payload stateRequest
	if !decode(w, r, &payload) {
		return
	}
	if payload.State == performance.StateDone && !middleware.Authorize(w, r, h.Perms, auth.PermPerformanceFinalize) {
		return
	}

	before, err := h.Service.GetEvaluation(r.Context(), user.TenantID, evaluationID)
	if err != nil {
		writeError(w, r, err, "evaluation_state_failed", "failed to change state")
		return
	}
	ev, err := h.Service.Transition(r.Context(), user.TenantID, evaluationID, payload.State)
	if err != nil {
		writeError(w, r, err, "evaluation_state_failed", "failed to change state")
		return
	}
	h.record(r, user, "performance.evaluation.state", "evaluation", evaluationID,
		map[string]string{"state": before.State}, map[string]string{"state": ev.State})
	api.Success(w, ev, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	started := time.Now()
	dashboard, err := h.Service.Dashboard(r.Context(), user.TenantID)
	if err != nil {
		writeError(w, r, err, "dashboard_failed", "failed to build dashboard")
		return
	}
	zap.L().Debug("dashboard served", zap.String("tenant", user.TenantID), zap.Duration("elapsed", time.Since(started)))
	api.Success(w, dashboard, middleware.GetRequestID(r.Context()))
}
