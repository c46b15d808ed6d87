package performance

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"hrperf/internal/platform/events"
	"hrperf/internal/requestctx"
)

// Cache stores serialized dashboard snapshots.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Observer interface {
	RecordAggregation(aggregated bool, lines int)
	RecordCacheLookup(hit bool)
}

type nopObserver struct{}

func (nopObserver) RecordAggregation(bool, int) {}
func (nopObserver) RecordCacheLookup(bool)      {}

type Options struct {
	ApplicabilityMode     string
	DashboardRowLimit     int
	DashboardRatingLevels []string
	DashboardCacheTTL     time.Duration
}

type Service struct {
	store     StoreAPI
	opts      Options
	resolve   Resolver
	cache     Cache
	publisher events.Publisher
	observer  Observer
	sf        singleflight.Group
}

func NewService(store StoreAPI, opts Options) *Service {
	return &Service{
		store:     store,
		opts:      opts,
		resolve:   ResolverFor(opts.ApplicabilityMode),
		publisher: events.NewNoop(),
		observer:  nopObserver{},
	}
}

func (s *Service) WithCache(cache Cache) *Service {
	s.cache = cache
	return s
}

func (s *Service) WithPublisher(publisher events.Publisher) *Service {
	if publisher != nil {
		s.publisher = publisher
	}
	return s
}

func (s *Service) WithObserver(observer Observer) *Service {
	if observer != nil {
		s.observer = observer
	}
	return s
}

func dashboardKey(tenantID string) string {
	return "dashboard:" + tenantID
}

// InvalidateDashboard drops the tenant's cached snapshot.
func (s *Service) InvalidateDashboard(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardKey(tenantID)); err != nil {
		zap.L().Warn("dashboard cache invalidation failed", zap.String("tenantId", tenantID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, eventType, tenantID, entityID string, payload any) {
	if err := s.publisher.Publish(ctx, events.NewEvent(eventType, tenantID, entityID, payload)); err != nil {
		fields := append(requestctx.LogFields(ctx), zap.String("type", eventType), zap.String("entityId", entityID), zap.Error(err))
		zap.L().Warn("event publish failed", fields...)
	}
}

func (s *Service) ListObjectives(ctx context.Context, tenantID string) ([]Objective, error) {
	return s.store.ListObjectives(ctx, tenantID)
}

func (s *Service) CreateObjective(ctx context.Context, tenantID string, objective Objective) (string, error) {
	objective.Name = strings.TrimSpace(objective.Name)
	return s.store.CreateObjective(ctx, tenantID, objective)
}

// UpdateObjective saves the objective and recomputes every line that uses it
// in the same transaction.
func (s *Service) UpdateObjective(ctx context.Context, tenantID, objectiveID string, objective Objective) error {
	objective.Name = strings.TrimSpace(objective.Name)
	objective.ID = objectiveID
	app := s.resolve(objective)

	if err := s.store.UpdateObjective(ctx, tenantID, objectiveID, objective, func(line *Line) {
		Recompute(line, app)
	}); err != nil {
		return err
	}
	s.InvalidateDashboard(ctx, tenantID)
	return nil
}

func (s *Service) ListLevels(ctx context.Context, tenantID string) ([]Level, error) {
	return s.store.ListLevels(ctx, tenantID)
}

func (s *Service) GetLevel(ctx context.Context, tenantID, levelID string) (*Level, error) {
	level, err := s.store.GetLevel(ctx, tenantID, levelID)
	if err != nil {
		return nil, err
	}
	for i := range level.Targets {
		level.Targets[i].TimelineDuration = timelineDuration(level.Targets[i].TimelineFrom, level.Targets[i].TimelineTo)
	}
	return level, nil
}

func (s *Service) CreateLevel(ctx context.Context, tenantID string, level Level) (string, error) {
	level.Name = strings.TrimSpace(level.Name)
	if err := s.checkTargets(ctx, tenantID, level.Targets); err != nil {
		return "", err
	}
	if level.ParentLevelID != "" {
		if _, err := s.store.GetLevel(ctx, tenantID, level.ParentLevelID); err != nil {
			return "", err
		}
	}
	return s.store.CreateLevel(ctx, tenantID, level)
}

func (s *Service) ReplaceLevelTargets(ctx context.Context, tenantID, levelID string, targets []ObjectiveTarget) error {
	if err := s.checkTargets(ctx, tenantID, targets); err != nil {
		return err
	}
	return s.store.ReplaceLevelTargets(ctx, tenantID, levelID, targets)
}

func (s *Service) checkTargets(ctx context.Context, tenantID string, targets []ObjectiveTarget) error {
	if len(targets) == 0 {
		return nil
	}
	objectives, err := s.objectiveIndex(ctx, tenantID)
	if err != nil {
		return err
	}
	for i := range targets {
		if _, ok := objectives[targets[i].ObjectiveID]; !ok {
			return ErrObjectiveNotFound
		}
		if targets[i].Sequence == 0 {
			targets[i].Sequence = i + 1
		}
	}
	return nil
}

func (s *Service) objectiveIndex(ctx context.Context, tenantID string) (map[string]Objective, error) {
	objectives, err := s.store.ListObjectives(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	index := make(map[string]Objective, len(objectives))
	for _, o := range objectives {
		index[o.ID] = o
	}
	return index, nil
}

func (s *Service) ListEvaluations(ctx context.Context, tenantID string, filter EvaluationFilter) ([]Evaluation, int, error) {
	if filter.Kind != "" && !ValidKind(filter.Kind) {
		return nil, 0, ErrInvalidKind
	}
	total, err := s.store.EvaluationCount(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListEvaluations(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) GetEvaluation(ctx context.Context, tenantID, evaluationID string) (*Evaluation, error) {
	ev, err := s.store.GetEvaluation(ctx, tenantID, evaluationID)
	if err != nil {
		return nil, err
	}
	ev.TotalWeightage, ev.OverallRating = Totals(ev.Lines)
	return ev, nil
}

// CreateEvaluation starts a draft record for the employee and level, copying
// the employee's current supervisor and generating lines from the level.
func (s *Service) CreateEvaluation(ctx context.Context, tenantID, kind, employeeID, levelID, comments string) (*Evaluation, error) {
	if !ValidKind(kind) {
		return nil, ErrInvalidKind
	}
	employee, err := s.store.EmployeeRef(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	lines, err := s.linesForLevel(ctx, tenantID, kind, employeeID, levelID)
	if err != nil {
		return nil, err
	}

	ev := Evaluation{
		Kind:         kind,
		Name:         namePrefix(kind) + employee.Name,
		EmployeeID:   employee.ID,
		EmployeeName: employee.Name,
		SupervisorID: employee.SupervisorID,
		LevelID:      levelID,
		State:        StateDraft,
		Comments:     comments,
		Lines:        lines,
	}
	id, err := s.store.CreateEvaluation(ctx, tenantID, ev)
	if err != nil {
		return nil, err
	}
	s.InvalidateDashboard(ctx, tenantID)
	return s.GetEvaluation(ctx, tenantID, id)
}

// ChangeLevel discards every line and regenerates them from the new level.
func (s *Service) ChangeLevel(ctx context.Context, tenantID, evaluationID, levelID string) (*Evaluation, error) {
	ev, err := s.store.GetEvaluation(ctx, tenantID, evaluationID)
	if err != nil {
		return nil, err
	}
	lines, err := s.linesForLevel(ctx, tenantID, ev.Kind, ev.EmployeeID, levelID)
	if err != nil {
		return nil, err
	}
	if err := s.store.ReplaceLines(ctx, tenantID, evaluationID, levelID, lines); err != nil {
		return nil, err
	}
	s.InvalidateDashboard(ctx, tenantID)
	s.publish(ctx, EventLevelChanged, tenantID, evaluationID, map[string]string{"levelId": levelID})
	return s.GetEvaluation(ctx, tenantID, evaluationID)
}

func (s *Service) linesForLevel(ctx context.Context, tenantID, kind, employeeID, levelID string) ([]Line, error) {
	level, err := s.store.GetLevel(ctx, tenantID, levelID)
	if err != nil {
		return nil, err
	}
	objectives, err := s.objectiveIndex(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var seeded map[string]float64
	if kind == KindKPI {
		seeded, err = s.store.LatestPerformanceAchieved(ctx, tenantID, employeeID)
		if err != nil {
			return nil, err
		}
	}
	return BuildLines(kind, level.Targets, objectives, seeded, s.resolve), nil
}

// BuildLines generates fresh lines from level targets. Performance lines copy
// the target percentage and timeline; KPI lines are seeded with the achieved
// percentage from the latest performance record.
func BuildLines(kind string, targets []ObjectiveTarget, objectives map[string]Objective, seeded map[string]float64, resolve Resolver) []Line {
	lines := make([]Line, 0, len(targets))
	for i, target := range targets {
		line := Line{
			ObjectiveID:   target.ObjectiveID,
			ObjectiveName: target.ObjectiveName,
			Sequence:      target.Sequence,
		}
		if line.Sequence == 0 {
			line.Sequence = i + 1
		}
		if kind == KindPerformance {
			line.TargetPercentage = target.TargetPercentage
			line.TimelineFrom = target.TimelineFrom
			line.TimelineTo = target.TimelineTo
		}
		Recompute(&line, resolve(objectives[target.ObjectiveID]))
		if achieved, ok := seeded[target.ObjectiveID]; ok && kind == KindKPI {
			value := achieved
			line.AchievedOverride = &value
			line.OverrideSource = OverrideSeeded
		}
		lines = append(lines, line)
	}
	return lines
}

// UpdateLine applies edits and recomputes derived fields. New raw inputs
// drop any override so the computed value takes effect again.
func (s *Service) UpdateLine(ctx context.Context, tenantID, evaluationID, lineID string, update LineUpdate) (*Line, error) {
	ev, err := s.store.GetEvaluation(ctx, tenantID, evaluationID)
	if err != nil {
		return nil, err
	}
	var line *Line
	for i := range ev.Lines {
		if ev.Lines[i].ID == lineID {
			line = &ev.Lines[i]
			break
		}
	}
	if line == nil {
		return nil, ErrLineNotFound
	}
	objective, err := s.store.GetObjective(ctx, tenantID, line.ObjectiveID)
	if err != nil {
		return nil, err
	}

	if update.Inputs != nil {
		line.MetricInputs = *update.Inputs
		line.AchievedOverride = nil
		line.OverrideSource = ""
	}
	if update.Weightage != nil {
		line.Weightage = *update.Weightage
	}
	if update.Rating != nil {
		line.Rating = *update.Rating
	}
	Recompute(line, s.resolve(*objective))

	if err := s.store.UpdateLine(ctx, tenantID, evaluationID, *line); err != nil {
		return nil, err
	}
	s.InvalidateDashboard(ctx, tenantID)
	return line, nil
}

// Aggregate overrides each line with the mean of the direct subordinates'
// matching lines and advances the record to checked. A record whose employee
// has no direct subordinates is left untouched.
func (s *Service) Aggregate(ctx context.Context, tenantID string, ev *Evaluation) (AggregationResult, error) {
	result := AggregationResult{EvaluationID: ev.ID, State: ev.State}

	subordinates, err := s.store.DirectSubordinateIDs(ctx, tenantID, ev.EmployeeID)
	if err != nil {
		return result, err
	}
	if len(subordinates) == 0 {
		s.observer.RecordAggregation(false, 0)
		return result, nil
	}
	subLines, err := s.store.SubordinateLines(ctx, tenantID, ev.Kind, subordinates)
	if err != nil {
		return result, err
	}

	overrides := AggregateLines(ev.Lines, subLines)
	state, err := s.store.ApplyAggregation(ctx, tenantID, ev.ID, overrides, AdvanceState(ev.State, StateChecked))
	if err != nil {
		return result, err
	}

	result.Aggregated = true
	result.LinesUpdated = len(overrides)
	result.State = state
	s.observer.RecordAggregation(true, len(overrides))
	s.publish(ctx, EventEvaluationChecked, tenantID, ev.ID, result)
	return result, nil
}

// MarkChecked aggregates the record and moves it to checked even when there
// was nothing to aggregate.
func (s *Service) MarkChecked(ctx context.Context, tenantID, evaluationID string) (AggregationResult, error) {
	ev, err := s.store.GetEvaluation(ctx, tenantID, evaluationID)
	if err != nil {
		return AggregationResult{}, err
	}
	result, err := s.Aggregate(ctx, tenantID, ev)
	if err != nil {
		return result, err
	}
	if next := AdvanceState(result.State, StateChecked); next != result.State {
		stored, err := s.store.UpdateState(ctx, tenantID, evaluationID, next)
		if err != nil {
			return result, err
		}
		if stored == next {
			s.publish(ctx, EventEvaluationState, tenantID, evaluationID, map[string]string{"from": result.State, "to": next})
		}
		result.State = stored
	}
	s.InvalidateDashboard(ctx, tenantID)
	return result, nil
}

// AggregateSubordinates aggregates every record owned by the employee. It
// does not cascade further up the hierarchy.
func (s *Service) AggregateSubordinates(ctx context.Context, tenantID, employeeID string) ([]AggregationResult, error) {
	if _, err := s.store.EmployeeRef(ctx, tenantID, employeeID); err != nil {
		return nil, err
	}
	ids, err := s.store.EvaluationIDsByEmployee(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	results := make([]AggregationResult, 0, len(ids))
	for _, id := range ids {
		ev, err := s.store.GetEvaluation(ctx, tenantID, id)
		if err != nil {
			return nil, err
		}
		result, err := s.Aggregate(ctx, tenantID, ev)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	if len(results) > 0 {
		s.InvalidateDashboard(ctx, tenantID)
	}
	return results, nil
}

// Transition moves a record strictly forward through its lifecycle.
func (s *Service) Transition(ctx context.Context, tenantID, evaluationID, target string) (*Evaluation, error) {
	if !ValidState(target) {
		return nil, ErrInvalidState
	}
	ev, err := s.store.GetEvaluation(ctx, tenantID, evaluationID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(ev.State, target) {
		return nil, ErrInvalidTransition
	}
	stored, err := s.store.UpdateState(ctx, tenantID, evaluationID, target)
	if err != nil {
		return nil, err
	}
	if stored != target {
		return nil, ErrInvalidTransition
	}
	s.InvalidateDashboard(ctx, tenantID)
	s.publish(ctx, EventEvaluationState, tenantID, evaluationID, map[string]string{"from": ev.State, "to": target})
	return s.GetEvaluation(ctx, tenantID, evaluationID)
}

// Dashboard returns the tenant snapshot, served from cache when possible.
// Concurrent misses share one computation.
func (s *Service) Dashboard(ctx context.Context, tenantID string) (Dashboard, error) {
	key := dashboardKey(tenantID)
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("dashboard cache read failed", zap.String("tenantId", tenantID), zap.Error(err))
		}
		if ok {
			var cached Dashboard
			if err := json.Unmarshal(raw, &cached); err == nil {
				s.observer.RecordCacheLookup(true)
				return cached, nil
			}
		}
		s.observer.RecordCacheLookup(false)
	}

	v, err, _ := s.sf.Do(key, func() (any, error) {
		dashboard, err := s.buildDashboard(ctx, tenantID)
		if err != nil {
			return Dashboard{}, err
		}
		if s.cache != nil {
			if raw, err := json.Marshal(dashboard); err == nil {
				if err := s.cache.Set(ctx, key, raw, s.opts.DashboardCacheTTL); err != nil {
					zap.L().Warn("dashboard cache write failed", zap.String("tenantId", tenantID), zap.Error(err))
				}
			}
		}
		return dashboard, nil
	})
	if err != nil {
		return Dashboard{}, err
	}
	return v.(Dashboard), nil
}

// RefreshDashboard drops the cached snapshot and rebuilds it.
func (s *Service) RefreshDashboard(ctx context.Context, tenantID string) (Dashboard, error) {
	s.InvalidateDashboard(ctx, tenantID)
	return s.Dashboard(ctx, tenantID)
}

func (s *Service) buildDashboard(ctx context.Context, tenantID string) (Dashboard, error) {
	records, err := s.store.DashboardRecords(ctx, tenantID)
	if err != nil {
		return Dashboard{}, err
	}
	employees, err := s.store.EmployeeCount(ctx, tenantID)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(records, employees, DashboardOptions{
		RowLimit:     s.opts.DashboardRowLimit,
		RatingLevels: s.opts.DashboardRatingLevels,
	}), nil
}
