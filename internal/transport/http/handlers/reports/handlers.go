package reportshandler

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hrperf/internal/domain/auth"
	"hrperf/internal/domain/performance"
	"hrperf/internal/domain/reports"
	"hrperf/internal/transport/http/api"
	"hrperf/internal/transport/http/middleware"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type Source interface {
	GetEvaluation(ctx context.Context, tenantID, evaluationID string) (*performance.Evaluation, error)
	Dashboard(ctx context.Context, tenantID string) (performance.Dashboard, error)
}

type Handler struct {
	Source Source
	Perms  middleware.PermissionStore
}

func NewHandler(source Source, perms middleware.PermissionStore) *Handler {
	return &Handler{Source: source, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermReportsRead, h.Perms))
		r.Get("/evaluations/{evaluationID}/pdf", h.handleEvaluationPDF)
		r.Get("/dashboard/xlsx", h.handleDashboardXLSX)
	})
}

func (h *Handler) handleEvaluationPDF(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	ev, err := h.Source.GetEvaluation(r.Context(), user.TenantID, chi.URLParam(r, "evaluationID"))
	if err != nil {
		if errors.Is(err, performance.ErrEvaluationNotFound) {
			api.Fail(w, http.StatusNotFound, "not_found", "evaluation not found", middleware.GetRequestID(r.Context()))
			return
		}
		zap.L().Error("evaluation load failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to load evaluation", middleware.GetRequestID(r.Context()))
		return
	}

	data, err := reports.EvaluationPDF(ev)
	if err != nil {
		zap.L().Error("evaluation pdf render failed", zap.String("evaluationId", ev.ID), zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", middleware.GetRequestID(r.Context()))
		return
	}
	filename := unsafeFilename.ReplaceAllString(ev.Name, "_") + ".pdf"
	writeFile(w, "application/pdf", filename, data)
}

func (h *Handler) handleDashboardXLSX(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	dashboard, err := h.Source.Dashboard(r.Context(), user.TenantID)
	if err != nil {
		zap.L().Error("dashboard load failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build dashboard", middleware.GetRequestID(r.Context()))
		return
	}

	data, err := reports.DashboardXLSX(dashboard)
	if err != nil {
		zap.L().Error("dashboard xlsx render failed", zap.Error(err))
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", middleware.GetRequestID(r.Context()))
		return
	}
	writeFile(w, xlsxContentType, "dashboard.xlsx", data)
}

func writeFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		zap.L().Warn("report write failed", zap.String("file", filename), zap.Error(err))
	}
}
