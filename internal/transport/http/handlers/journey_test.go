package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrperf/internal/app/server"
	"hrperf/internal/platform/config"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

type journey struct {
	t      *testing.T
	client *http.Client
	base   string
	token  string
}

func (j *journey) call(method, path string, body any, wantStatus int) json.RawMessage {
	j.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(j.t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, j.base+"/api/v1"+path, reader)
	require.NoError(j.t, err)
	req.Header.Set("Content-Type", "application/json")
	if j.token != "" {
		req.Header.Set("Authorization", "Bearer "+j.token)
	}
	resp, err := j.client.Do(req)
	require.NoError(j.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(j.t, err)
	require.Equal(j.t, wantStatus, resp.StatusCode, "%s %s: %s", method, path, raw)

	var env envelope
	require.NoError(j.t, json.Unmarshal(raw, &env))
	return env.Data
}

func decodeInto[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

type idResponse struct {
	ID string `json:"id"`
}

type lineResponse struct {
	ID               string   `json:"id"`
	ObjectiveID      string   `json:"objectiveId"`
	AchievedComputed float64  `json:"achievedComputed"`
	AchievedOverride *float64 `json:"achievedOverride"`
	OverrideSource   string   `json:"overrideSource"`
}

type evaluationResponse struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	State string         `json:"state"`
	Lines []lineResponse `json:"lines"`
}

func startApp(t *testing.T) (*journey, config.Config) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		DatabaseURL:           dbURL,
		JWTSecret:             "test-secret",
		TokenTTL:              time.Hour,
		Environment:           "test",
		LogLevel:              "error",
		LogFormat:             "json",
		SeedTenantName:        "Test Tenant",
		SeedAdminEmail:        "admin@test.local",
		SeedAdminPassword:     "ChangeMe123!",
		RunMigrations:         true,
		RunSeed:               true,
		MigrationsDir:         filepath.Join("..", "..", "..", "..", "migrations"),
		MaxBodyBytes:          1048576,
		RateLimitPerMinute:    1000,
		ApplicabilityMode:     config.ApplicabilityFlags,
		DashboardRowLimit:     10,
		DashboardRatingLevels: []string{"TST Individual", "PM Individual"},
		DashboardCacheTTL:     time.Minute,
	}

	app, err := server.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(app.Close)

	ts := httptest.NewServer(app.Router)
	t.Cleanup(ts.Close)

	j := &journey{t: t, client: ts.Client(), base: ts.URL}
	login := j.call(http.MethodPost, "/auth/login", map[string]string{"email": cfg.SeedAdminEmail, "password": cfg.SeedAdminPassword}, http.StatusOK)
	j.token = decodeInto[struct {
		Token string `json:"token"`
	}](t, login).Token
	require.NotEmpty(t, j.token)
	return j, cfg
}

func (j *journey) objectiveID(name string) string {
	objectives := decodeInto[[]struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}](j.t, j.call(http.MethodGet, "/performance/objectives", nil, http.StatusOK))
	for _, o := range objectives {
		if o.Name == name {
			return o.ID
		}
	}
	j.t.Fatalf("objective %q not seeded", name)
	return ""
}

func (j *journey) createEmployee(firstName, supervisorID string) string {
	body := map[string]any{
		"firstName":   firstName,
		"lastName":    fmt.Sprintf("Journey%d", time.Now().UnixNano()),
		"email":       fmt.Sprintf("%s-%d@example.com", firstName, time.Now().UnixNano()),
		"joiningDate": "2019-03-01",
	}
	if supervisorID != "" {
		body["supervisorId"] = supervisorID
	}
	return decodeInto[idResponse](j.t, j.call(http.MethodPost, "/employees", body, http.StatusCreated)).ID
}

func (j *journey) createEvaluation(kind, employeeID, levelID string) evaluationResponse {
	raw := j.call(http.MethodPost, "/performance/evaluations", map[string]string{
		"kind":       kind,
		"employeeId": employeeID,
		"levelId":    levelID,
	}, http.StatusCreated)
	return decodeInto[evaluationResponse](j.t, raw)
}

func TestPerformanceAggregationJourney(t *testing.T) {
	j, _ := startApp(t)

	presenceID := j.objectiveID("Presence vs Schedule")
	level := decodeInto[idResponse](t, j.call(http.MethodPost, "/performance/levels", map[string]any{
		"name": fmt.Sprintf("Journey Level %d", time.Now().UnixNano()),
		"targets": []map[string]any{
			{"objectiveId": presenceID, "targetPercentage": 95, "timelineFrom": "2024-01-01", "timelineTo": "2024-12-31"},
		},
	}, http.StatusCreated))

	managerID := j.createEmployee("manager", "")
	subA := j.createEmployee("alpha", managerID)
	subB := j.createEmployee("beta", managerID)

	for subID, attended := range map[string]int{subA: 8, subB: 9} {
		ev := j.createEvaluation("performance", subID, level.ID)
		require.Len(t, ev.Lines, 1)
		line := decodeInto[lineResponse](t, j.call(http.MethodPut,
			"/performance/evaluations/"+ev.ID+"/lines/"+ev.Lines[0].ID,
			map[string]any{"inputs": map[string]int{"jobsAttended": attended, "jobsScheduled": 10}},
			http.StatusOK))
		assert.InDelta(t, float64(attended*10), line.AchievedComputed, 0.001)
	}

	managerEval := j.createEvaluation("performance", managerID, level.ID)
	assert.Equal(t, "draft", managerEval.State)

	result := decodeInto[struct {
		Aggregated   bool   `json:"aggregated"`
		LinesUpdated int    `json:"linesUpdated"`
		State        string `json:"state"`
	}](t, j.call(http.MethodPost, "/performance/evaluations/"+managerEval.ID+"/check", nil, http.StatusOK))
	assert.True(t, result.Aggregated)
	assert.Equal(t, 1, result.LinesUpdated)
	assert.Equal(t, "checked", result.State)

	checked := decodeInto[evaluationResponse](t, j.call(http.MethodGet, "/performance/evaluations/"+managerEval.ID, nil, http.StatusOK))
	require.Len(t, checked.Lines, 1)
	require.NotNil(t, checked.Lines[0].AchievedOverride)
	assert.InDelta(t, 85, *checked.Lines[0].AchievedOverride, 0.001)
	assert.Equal(t, "aggregated", checked.Lines[0].OverrideSource)

	j.call(http.MethodPost, "/performance/evaluations/"+managerEval.ID+"/state", map[string]string{"state": "draft"}, http.StatusConflict)
	j.call(http.MethodPost, "/performance/evaluations/"+managerEval.ID+"/state", map[string]string{"state": "confirmed"}, http.StatusOK)

	rechecked := decodeInto[struct {
		State string `json:"state"`
	}](t, j.call(http.MethodPost, "/performance/evaluations/"+managerEval.ID+"/check", nil, http.StatusOK))
	assert.Equal(t, "confirmed", rechecked.State)

	kpi := j.createEvaluation("kpi", subA, level.ID)
	require.Len(t, kpi.Lines, 1)
	require.NotNil(t, kpi.Lines[0].AchievedOverride)
	assert.InDelta(t, 80, *kpi.Lines[0].AchievedOverride, 0.001)
	assert.Equal(t, "seeded", kpi.Lines[0].OverrideSource)

	j.call(http.MethodGet, "/performance/dashboard", nil, http.StatusOK)
	j.call(http.MethodGet, "/audit/events?entityType=evaluation&entityId="+managerEval.ID, nil, http.StatusOK)
}

func TestSupervisorCycleRejected(t *testing.T) {
	j, _ := startApp(t)

	top := j.createEmployee("top", "")
	middle := j.createEmployee("middle", top)

	j.call(http.MethodPut, "/employees/"+top+"/supervisor", map[string]string{"supervisorId": middle}, http.StatusConflict)
	j.call(http.MethodPut, "/employees/"+top+"/supervisor", map[string]string{"supervisorId": top}, http.StatusConflict)

	subs := decodeInto[[]idResponse](t, j.call(http.MethodGet, "/employees/"+top+"/subordinates", nil, http.StatusOK))
	require.Len(t, subs, 1)
	assert.Equal(t, middle, subs[0].ID)
}
