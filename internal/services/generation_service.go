package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nicetravel/internal/models/db_models"
	"nicetravel/internal/models/response_models"
	"nicetravel/internal/queue"
	"nicetravel/internal/repositories"
	"nicetravel/pkg/llm"
	"nicetravel/pkg/utils"
)

const (
	generationTemperature = 0.7
	terminalWriteTimeout  = 10 * time.Second
)

type GenerationOptions struct {
	InitialEstimate time.Duration
	TickInterval    time.Duration
	Timeout         time.Duration
	EnrichPolicy    EnrichmentPolicy
	Region          string
	Model           string
}

type GenerationServiceInterface interface {
	InitializeGeneration(ctx context.Context, planID, userID uuid.UUID) (*response_models.GenerationStartResponse, error)
	RunGeneration(ctx context.Context, task queue.GenerationTask) error
	MarkFailed(ctx context.Context, task queue.GenerationTask, cause error)
	GetGenerationStatus(ctx context.Context, planID, userID uuid.UUID) (*response_models.GenerationStatusResponse, error)
	GetGeneratedPlan(ctx context.Context, planID, userID uuid.UUID) (*response_models.GeneratedPlanResponse, error)
}

type GenerationService struct {
	planRepo   repositories.PlanRepository
	jobRepo    repositories.GenerationJobRepository
	chat       llm.ChatClient
	dispatcher queue.Dispatcher
	enricher   *itineraryEnricher
	opts       GenerationOptions
	logger     *zap.Logger
	now        func() time.Time
}

func NewGenerationService(
	planRepo repositories.PlanRepository,
	jobRepo repositories.GenerationJobRepository,
	chat llm.ChatClient,
	photos PhotoResolver,
	dispatcher queue.Dispatcher,
	opts GenerationOptions,
	logger *zap.Logger,
) *GenerationService {
	if opts.InitialEstimate < time.Second {
		opts.InitialEstimate = 90 * time.Second
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 5 * time.Second
	}
	if opts.EnrichPolicy == "" {
		opts.EnrichPolicy = EnrichAbort
	}
	logger = logger.With(zap.String("component", "generation"))
	return &GenerationService{
		planRepo:   planRepo,
		jobRepo:    jobRepo,
		chat:       chat,
		dispatcher: dispatcher,
		enricher: &itineraryEnricher{
			photos: photos,
			region: opts.Region,
			policy: opts.EnrichPolicy,
			logger: logger,
		},
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

func (s *GenerationService) InitializeGeneration(ctx context.Context, planID, userID uuid.UUID) (*response_models.GenerationStartResponse, error) {
	plan, err := s.planRepo.FindPlanWithPlaces(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if plan == nil {
		return nil, utils.ErrPlanNotFound
	}
	if plan.AccountID != userID {
		s.logger.Warn("generation denied, plan owned by another user",
			zap.String("plan_id", planID.String()),
			zap.String("user_id", userID.String()),
		)
		return nil, utils.ErrPlanForbidden
	}
	if len(plan.Places) == 0 {
		return nil, utils.ErrPlanHasNoPlaces
	}
	if plan.StartDate == nil || plan.EndDate == nil {
		return nil, utils.ErrPlanMissingDates
	}

	active, err := s.jobRepo.FindActiveJob(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if active != nil {
		return nil, utils.ErrGenerationInProgress
	}

	estimate := s.initialEstimateSeconds()
	job, err := s.jobRepo.ClaimJob(ctx, planID, estimate)
	if errors.Is(err, repositories.ErrJobActive) {
		return nil, utils.ErrGenerationInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	task := queue.GenerationTask{
		JobID:      job.ID,
		PlanID:     planID,
		Attempt:    job.Attempt,
		EnqueuedAt: s.now(),
	}
	if err := s.dispatcher.Dispatch(ctx, task); err != nil {
		s.MarkFailed(ctx, task, err)
		return nil, fmt.Errorf("dispatch generation task: %w", err)
	}

	s.logger.Info("generation started",
		zap.String("plan_id", planID.String()),
		zap.String("job_id", job.ID.String()),
		zap.Int("attempt", job.Attempt),
	)
	return &response_models.GenerationStartResponse{
		ID:            job.ID.String(),
		Status:        string(db_models.GenerationStatusProcessing),
		EstimatedTime: estimate,
	}, nil
}

// RunGeneration is the background half of a generation: model call, parsing,
// photo enrichment and the terminal write. Any error leaves the job failed.
func (s *GenerationService) RunGeneration(ctx context.Context, task queue.GenerationTask) error {
	logger := s.logger.With(
		zap.String("plan_id", task.PlanID.String()),
		zap.String("job_id", task.JobID.String()),
		zap.Int("attempt", task.Attempt),
	)

	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	stopTicker := s.startProgressTicker(ctx, task.JobID, logger)
	content, warnings, err := s.generate(ctx, task.PlanID, logger)
	stopTicker()

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("generation exceeded %s deadline: %w", s.opts.Timeout, err)
		}
		s.MarkFailed(ctx, task, err)
		return err
	}

	encoded, err := json.Marshal(content)
	if err != nil {
		s.MarkFailed(ctx, task, err)
		return fmt.Errorf("encode itinerary: %w", err)
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()
	if err := s.jobRepo.CompleteJob(writeCtx, task.JobID, task.PlanID, encoded, warnings); err != nil {
		if errors.Is(err, repositories.ErrJobNotActive) {
			logger.Warn("generation result discarded, job no longer processing")
			return nil
		}
		s.MarkFailed(ctx, task, err)
		return fmt.Errorf("persist completed job: %w", err)
	}

	logger.Info("generation completed",
		zap.Int("places", len(content.Places)),
		zap.Int("warnings", len(warnings)),
	)
	return nil
}

// MarkFailed moves a processing job to failed. It is best-effort: a failing
// write is logged and otherwise ignored.
func (s *GenerationService) MarkFailed(ctx context.Context, task queue.GenerationTask, cause error) {
	logger := s.logger.With(
		zap.String("plan_id", task.PlanID.String()),
		zap.String("job_id", task.JobID.String()),
		zap.Int("attempt", task.Attempt),
	)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout)
	defer cancel()

	err := s.jobRepo.FailJob(writeCtx, task.JobID)
	switch {
	case err == nil:
		logger.Error("generation failed", zap.Error(cause))
	case errors.Is(err, repositories.ErrJobNotActive):
		logger.Debug("job already terminal, failure not recorded again", zap.Error(cause))
	default:
		logger.Warn("failed to mark job as failed", zap.NamedError("cause", cause), zap.Error(err))
	}
}

func (s *GenerationService) generate(ctx context.Context, planID uuid.UUID, logger *zap.Logger) (*response_models.GeneratedItineraryContent, []string, error) {
	plan, err := s.planRepo.FindPlanWithPlaces(ctx, planID)
	if err != nil {
		return nil, nil, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return nil, nil, fmt.Errorf("plan %s no longer exists", planID)
	}

	conv := llm.NewConversation(itinerarySystemPrompt)
	conv.Add(llm.RoleUser, BuildItineraryPrompt(plan))
	resp, err := s.chat.Chat(ctx, conv.Messages(), llm.ChatOptions{
		Model:          s.opts.Model,
		Temperature:    llm.Float32(generationTemperature),
		ResponseFormat: &llm.ResponseFormat{Type: llm.ResponseFormatJSONObject},
		NoCache:        true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("model call: %w", err)
	}
	logger.Debug("model response received",
		zap.Int("choices", len(resp.Choices)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	content, err := response_models.ParseItineraryContent(llm.ExtractJSON(resp.Content()))
	if err != nil {
		return nil, nil, fmt.Errorf("parse model response: %w", err)
	}

	warnings, err := s.enricher.enrich(ctx, content)
	if err != nil {
		return nil, nil, fmt.Errorf("enrich itinerary: %w", err)
	}
	return content, warnings, nil
}

// startProgressTicker persists the remaining-time countdown until the returned
// stop function is called. stop waits for the ticker goroutine to exit.
func (s *GenerationService) startProgressTicker(ctx context.Context, jobID uuid.UUID, logger *zap.Logger) (stop func()) {
	tickCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	started := s.now()
	initial := s.initialEstimateSeconds()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.opts.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-tickCtx.Done():
				return
			case <-ticker.C:
				remaining := RemainingSeconds(initial, s.now().Sub(started))
				if err := s.jobRepo.UpdateProgress(tickCtx, jobID, remaining); err != nil && tickCtx.Err() == nil {
					logger.Warn("progress update failed", zap.Int("remaining", remaining), zap.Error(err))
				}
				if remaining == 0 {
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

func (s *GenerationService) GetGenerationStatus(ctx context.Context, planID, userID uuid.UUID) (*response_models.GenerationStatusResponse, error) {
	if err := s.authorize(ctx, planID, userID); err != nil {
		return nil, err
	}

	job, err := s.jobRepo.FindLatestJob(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if job == nil {
		return nil, utils.ErrGenerationNotFound
	}

	return &response_models.GenerationStatusResponse{
		Status:                 string(job.Status),
		Progress:               Progress(job.EstimatedTimeRemaining, s.initialEstimateSeconds()),
		EstimatedTimeRemaining: job.EstimatedTimeRemaining,
	}, nil
}

func (s *GenerationService) GetGeneratedPlan(ctx context.Context, planID, userID uuid.UUID) (*response_models.GeneratedPlanResponse, error) {
	if err := s.authorize(ctx, planID, userID); err != nil {
		return nil, err
	}

	job, err := s.jobRepo.FindLatestCompletedJob(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if job == nil {
		return nil, utils.ErrGeneratedPlanMissing
	}

	content, err := response_models.ParseItineraryContent([]byte(job.Content))
	if err != nil {
		return nil, fmt.Errorf("stored itinerary of job %s is unreadable: %w", job.ID, err)
	}

	return &response_models.GeneratedPlanResponse{
		ID:        job.ID.String(),
		Content:   content,
		Warnings:  job.Warnings,
		CreatedAt: utils.FormatRFC3339(job.CreatedAt),
		UpdatedAt: utils.FormatRFC3339(job.UpdatedAt),
	}, nil
}

func (s *GenerationService) authorize(ctx context.Context, planID, userID uuid.UUID) error {
	plan, err := s.planRepo.FindPlan(ctx, planID)
	if err != nil {
		return fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if plan == nil {
		return utils.ErrPlanNotFound
	}
	if plan.AccountID != userID {
		return utils.ErrPlanForbidden
	}
	return nil
}

func (s *GenerationService) initialEstimateSeconds() int {
	return int(s.opts.InitialEstimate / time.Second)
}

// RemainingSeconds counts down from initial by whole elapsed seconds, never below zero.
func RemainingSeconds(initial int, elapsed time.Duration) int {
	remaining := initial - int(elapsed/time.Second)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Progress converts remaining seconds into a 0-100 percentage of initial.
// Terminal jobs have no time remaining, so failed jobs report 100 as well;
// clients tell the outcome apart by status.
func Progress(remaining, initial int) int {
	if initial <= 0 {
		return 100
	}
	pct := math.Round(100 * float64(initial-remaining) / float64(initial))
	return int(math.Max(0, math.Min(100, pct)))
}
