package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/timetable"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

// Generation outcomes recorded in metrics and logs.
const (
	GenerationSucceeded  = "succeeded"
	GenerationInfeasible = "infeasible"
	GenerationFailed     = "failed"
	GenerationCancelled  = "cancelled"
)

const generationJobType = "timetable.generate"

type generationWorkspace interface {
	Pinned(ctx context.Context) (*timetable.Store, int64, error)
	SaveGenerated(ctx context.Context, store *timetable.Store, result interface{}, apply bool, expectedRevision int64) (string, bool, int64, error)
}

type catalogSource interface {
	Catalog(ctx context.Context) (timetable.Catalog, error)
}

type generationObserver interface {
	ObserveGeneration(outcome string, duration time.Duration)
	TaskStarted()
	TaskFinished()
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// GeneratorConfig tunes generation limits.
type GeneratorConfig struct {
	TaskTTL      time.Duration
	MaxSolveTime time.Duration
	MaxSteps     int
}

// generationInput is everything a search needs, captured when the request
// arrives so a queued task works against the workspace as it was then.
type generationInput struct {
	Request  timetable.GenerateRequest
	Revision int64
	Apply    bool
}

// generationSummary is stored alongside an auto-schedule snapshot.
type generationSummary struct {
	Placed     int                     `json:"placed"`
	Stats      timetable.GenerateStats `json:"stats"`
	DurationMS int64                   `json:"durationMs"`
}

// GeneratorService runs the Auto-Generator synchronously or as queued tasks.
type GeneratorService struct {
	workspace generationWorkspace
	catalog   catalogSource
	metrics   generationObserver
	queue     jobEnqueuer
	tasks     *taskStore
	validator *validator.Validate
	logger    *zap.Logger
	cfg       GeneratorConfig

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewGeneratorService wires the generator. catalog may be nil when the stored
// catalog is disabled; requests must then carry one inline.
func NewGeneratorService(workspace generationWorkspace, catalog catalogSource, cache taskCache, metrics generationObserver, validate *validator.Validate, logger *zap.Logger, cfg GeneratorConfig) *GeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TaskTTL <= 0 {
		cfg.TaskTTL = 24 * time.Hour
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = timetable.DefaultMaxSteps
	}
	return &GeneratorService{
		workspace: workspace,
		catalog:   catalog,
		metrics:   metrics,
		tasks:     newTaskStore(cache, cfg.TaskTTL),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// AttachQueue sets the queue used by Submit. The queue handler must be HandleJob.
func (s *GeneratorService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Run generates synchronously within the configured solve time.
func (s *GeneratorService) Run(ctx context.Context, req dto.GenerateRequest) (*dto.GenerateResponse, error) {
	input, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, outcome, err := s.execute(ctx, input)
	s.logger.Sugar().Infow("generation finished", "mode", "sync", "outcome", outcome)
	return resp, err
}

// Submit queues a generation and returns its task handle.
func (s *GeneratorService) Submit(ctx context.Context, req dto.GenerateRequest) (*dto.TaskHandle, error) {
	if s.queue == nil {
		return nil, appErrors.Clone(appErrors.ErrServiceUnavailable, "generation queue is not running")
	}
	input, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	task := models.GenerationTask{
		ID:        uuid.NewString(),
		State:     models.TaskStateQueued,
		Apply:     input.Apply,
		Revision:  input.Revision,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record generation task")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: task.ID, Type: generationJobType, Payload: input}); err != nil {
		s.finishTask(ctx, task, models.TaskStateFailed, nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "generation queue rejected the task"))
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "generation queue is full")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "generation queue is not running")
	}
	s.logger.Sugar().Infow("generation task queued", "task_id", task.ID, "revision", input.Revision, "apply", input.Apply)
	return &dto.TaskHandle{TaskID: task.ID, State: string(task.State)}, nil
}

// Get returns the task record. Unknown or expired ids report PENDING.
func (s *GeneratorService) Get(ctx context.Context, id string) (*models.GenerationTask, error) {
	task, ok, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read generation task")
	}
	if !ok {
		return &models.GenerationTask{ID: id, State: models.TaskStatePending}, nil
	}
	return &task, nil
}

// Cancel stops a queued or running task. Finished tasks are returned unchanged.
func (s *GeneratorService) Cancel(ctx context.Context, id string) (*models.GenerationTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read generation task")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation task not found")
	}
	if task.State.Terminal() {
		return &task, nil
	}

	if cancel, running := s.cancels[id]; running {
		// the worker records CANCELLED once the search unwinds
		cancel()
		s.logger.Sugar().Infow("generation task cancel requested", "task_id", id)
		return &task, nil
	}

	now := time.Now().UTC()
	task.State = models.TaskStateCancelled
	task.FinishedAt = &now
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel generation task")
	}
	s.logger.Sugar().Infow("queued generation task cancelled", "task_id", id)
	return &task, nil
}

// HandleJob is the queue handler for generation tasks. Failures are recorded on
// the task and never retried since the search is deterministic.
func (s *GeneratorService) HandleJob(ctx context.Context, job jobs.Job) error {
	input, ok := job.Payload.(generationInput)
	if !ok {
		return jobs.Permanent(fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	task, found, err := s.tasks.Get(ctx, job.ID)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("load task %s: %w", job.ID, err)
	}
	if !found || task.State != models.TaskStateQueued {
		s.mu.Unlock()
		s.logger.Sugar().Infow("generation task skipped", "task_id", job.ID, "found", found, "state", task.State)
		return nil
	}
	started := time.Now().UTC()
	task.State = models.TaskStateRunning
	task.StartedAt = &started
	if err := s.tasks.Save(ctx, task); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("mark task %s running: %w", job.ID, err)
	}
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.cancels, job.ID)
		s.mu.Unlock()
	}()

	if s.metrics != nil {
		s.metrics.TaskStarted()
		defer s.metrics.TaskFinished()
	}

	resp, outcome, runErr := s.execute(runCtx, input)
	state := taskState(outcome)
	if resp != nil {
		task.Applied = resp.Applied
		task.SnapshotID = resp.SnapshotID
		if resp.Revision > 0 {
			task.Revision = resp.Revision
		}
	}
	s.finishTask(ctx, task, state, resp, runErr)
	s.logger.Sugar().Infow("generation finished", "mode", "task", "task_id", job.ID, "outcome", outcome, "attempt", job.Attempt)
	if outcome == GenerationFailed && runErr != nil {
		return jobs.Permanent(runErr)
	}
	return nil
}

func (s *GeneratorService) finishTask(ctx context.Context, task models.GenerationTask, state models.TaskState, resp *dto.GenerateResponse, taskErr error) {
	finished := time.Now().UTC()
	task.State = state
	task.FinishedAt = &finished
	if resp != nil {
		if raw, err := json.Marshal(resp); err == nil {
			task.Result = raw
		}
	}
	if taskErr != nil {
		if raw, err := json.Marshal(appErrors.FromError(taskErr)); err == nil {
			task.Error = raw
		}
	}
	// a detached context so a cancelled search can still record its outcome
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.tasks.Save(saveCtx, task); err != nil {
		s.logger.Sugar().Errorw("failed to record generation task", "task_id", task.ID, "state", state, "error", err)
	}
}

// prepare validates the request and captures the search input.
func (s *GeneratorService) prepare(ctx context.Context, req dto.GenerateRequest) (generationInput, error) {
	if err := s.validator.Struct(req); err != nil {
		return generationInput{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	days, err := timetable.ParseWeekdays(req.Days)
	if err != nil {
		return generationInput{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	var catalog timetable.Catalog
	switch {
	case req.Catalog != nil:
		catalog, err = ToCatalog(*req.Catalog)
		if err != nil {
			return generationInput{}, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
	case s.catalog != nil:
		catalog, err = s.catalog.Catalog(ctx)
		if err != nil {
			return generationInput{}, err
		}
	default:
		return generationInput{}, appErrors.Clone(appErrors.ErrValidation, "catalog is required")
	}

	current, revision, err := s.workspace.Pinned(ctx)
	if err != nil {
		return generationInput{}, err
	}
	pinned := current
	if !req.PinnedEnabled() {
		slots := current.TimeSlots()
		if len(req.TimeSlots) > 0 {
			slots = req.TimeSlots
		}
		pinned = timetable.NewStore(slots)
		for _, sec := range current.Sections() {
			if _, err := pinned.AddSection(sec.ID, sec.Track); err != nil {
				return generationInput{}, mapEngineError(err)
			}
		}
	} else if len(req.TimeSlots) > 0 {
		return generationInput{}, appErrors.Clone(appErrors.ErrValidation, "timeSlots can only be set when usePinned is false")
	}

	plans, err := SectionPlans(req.Sections, pinned.Sections())
	if err != nil {
		return generationInput{}, err
	}
	if len(plans) == 0 {
		return generationInput{}, appErrors.Clone(appErrors.ErrValidation, "at least one section is required")
	}

	return generationInput{
		Request: timetable.GenerateRequest{
			Sections: plans,
			Catalog:  catalog,
			Pinned:   pinned,
			Days:     days,
			MaxSteps: s.cfg.MaxSteps,
		},
		Revision: revision,
		Apply:    req.Apply,
	}, nil
}

// execute runs one search and persists a successful result.
func (s *GeneratorService) execute(ctx context.Context, input generationInput) (*dto.GenerateResponse, string, error) {
	if s.cfg.MaxSolveTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.MaxSolveTime)
		defer cancel()
	}

	started := time.Now()
	result, err := timetable.Generate(ctx, input.Request)
	elapsed := time.Since(started)
	if err != nil {
		outcome, mapped := s.classify(err)
		s.observe(outcome, elapsed)
		s.logger.Sugar().Warnw("generation did not complete", "outcome", outcome, "duration", elapsed, "error", err)
		return nil, outcome, mapped
	}

	summary := generationSummary{Placed: len(result.Placed), Stats: result.Stats, DurationMS: elapsed.Milliseconds()}
	snapshotID, applied, revision, err := s.workspace.SaveGenerated(context.WithoutCancel(ctx), result.Store, summary, input.Apply, input.Revision)
	if err != nil {
		s.observe(GenerationFailed, elapsed)
		return nil, GenerationFailed, err
	}
	s.observe(GenerationSucceeded, elapsed)
	s.logger.Sugar().Infow("generation succeeded",
		"placed", len(result.Placed), "units", result.Stats.Units, "nodes", result.Stats.Nodes,
		"backtracks", result.Stats.Backtracks, "duration", elapsed, "snapshot_id", snapshotID, "applied", applied)

	resp := &dto.GenerateResponse{
		ScheduleDocument: SnapshotToDocument(result.Store.Snapshot(), nil),
		Placed:           result.Placed,
		Stats:            result.Stats,
		SnapshotID:       snapshotID,
		Applied:          applied,
		DurationMS:       elapsed.Milliseconds(),
	}
	if applied {
		resp.Revision = revision
	}
	if resp.Placed == nil {
		resp.Placed = []timetable.Session{}
	}
	return resp, GenerationSucceeded, nil
}

func (s *GeneratorService) classify(err error) (string, error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		limit := s.cfg.MaxSolveTime
		mapped := appErrors.Wrap(err, appErrors.ErrInfeasible.Code, appErrors.ErrInfeasible.Status,
			fmt.Sprintf("no schedule found within %s", limit))
		mapped.Details = searchDetails(err)
		return GenerationInfeasible, mapped
	case errors.Is(err, context.Canceled):
		mapped := appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "generation cancelled")
		mapped.Details = searchDetails(err)
		return GenerationCancelled, mapped
	case errors.Is(err, timetable.ErrInfeasible):
		return GenerationInfeasible, mapEngineError(err)
	}
	var engineErr *timetable.Error
	if errors.As(err, &engineErr) {
		return GenerationFailed, mapEngineError(err)
	}
	return GenerationFailed, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "generation failed")
}

func (s *GeneratorService) observe(outcome string, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveGeneration(outcome, elapsed)
	}
}

func taskState(outcome string) models.TaskState {
	switch outcome {
	case GenerationSucceeded:
		return models.TaskStateSucceeded
	case GenerationInfeasible:
		return models.TaskStateInfeasible
	case GenerationCancelled:
		return models.TaskStateCancelled
	}
	return models.TaskStateFailed
}

// SectionPlans resolves the requested sections; none means every workspace
// section with demand taken from the catalog.
func SectionPlans(reqs []dto.SectionPlanRequest, existing []timetable.Section) ([]timetable.SectionPlan, error) {
	if len(reqs) == 0 {
		plans := make([]timetable.SectionPlan, 0, len(existing))
		for _, sec := range existing {
			plans = append(plans, timetable.SectionPlan{Section: sec})
		}
		return plans, nil
	}

	plans := make([]timetable.SectionPlan, 0, len(reqs))
	seen := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		id := strings.TrimSpace(r.ID)
		if seen[id] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("section %s listed twice", id))
		}
		seen[id] = true
		track, err := timetable.ParseTrack(r.Track)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		plan := timetable.SectionPlan{Section: timetable.Section{ID: id, Track: track}, Strength: r.Strength}
		for _, req := range r.Requirements {
			plan.Requirements = append(plan.Requirements, timetable.Requirement{Subject: strings.TrimSpace(req.Subject), PerWeek: req.PerWeek})
		}
		plans = append(plans, plan)
	}
	return plans, nil
}
