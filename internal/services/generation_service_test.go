package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"nicetravel/internal/models/db_models"
	"nicetravel/internal/models/response_models"
	"nicetravel/internal/queue"
	"nicetravel/internal/repositories"
	"nicetravel/pkg/llm"
	"nicetravel/pkg/utils"
)

const krakowItinerary = `{
  "version": "1.0",
  "places": [{
    "name": "Krakow",
    "days": [{
      "date": "2024-01-01",
      "schedule": [
        {"time": "09:00", "activity": "Travel", "address": "Krakow Airport", "description": "Arrive and transfer"},
        {"time": "11:00", "activity": "Visit Wawel Castle", "address": "Wawel 5, 31-001 Krakow", "description": "Royal castle tour"},
        {"time": "15:00", "activity": "check-in", "address": "Hotel Stary", "description": "Drop the bags"}
      ],
      "dining_recommendations": [
        {"type": "dinner", "name": "Pod Wawelem", "address": "Sw. Gertrudy 26", "description": "Hearty Polish food"}
      ]
    }]
  }]
}`

type generationFixture struct {
	db         *gorm.DB
	svc        *GenerationService
	plans      repositories.PlanRepository
	jobs       repositories.GenerationJobRepository
	photos     *fakePhotos
	dispatcher *recordingDispatcher
	owner      uuid.UUID
	plan       *db_models.Plan
}

func newGenerationFixture(t *testing.T, chat llm.ChatClient, opts GenerationOptions) *generationFixture {
	t.Helper()
	db := newTestDB(t)
	f := &generationFixture{
		db:         db,
		plans:      repositories.NewPlanRepository(db),
		jobs:       repositories.NewGenerationJobRepository(db),
		photos:     &fakePhotos{fail: map[string]error{}},
		dispatcher: &recordingDispatcher{},
		owner:      uuid.New(),
	}
	if opts.Region == "" {
		opts.Region = "Poland"
	}
	f.svc = NewGenerationService(f.plans, f.jobs, chat, f.photos, f.dispatcher, opts, zap.NewNop())
	f.plan = createPlan(t, db, f.owner, seedPlace{name: "Krakow", start: "2024-01-01", end: "2024-01-03"})
	return f
}

// start admits a generation and runs the dispatched task inline.
func (f *generationFixture) start(t *testing.T) (queue.GenerationTask, error) {
	t.Helper()
	_, err := f.svc.InitializeGeneration(context.Background(), f.plan.ID, f.owner)
	require.NoError(t, err)
	task := f.dispatcher.last()
	return task, f.svc.RunGeneration(context.Background(), task)
}

func (f *generationFixture) planStatus(t *testing.T) db_models.PlanStatus {
	t.Helper()
	plan, err := f.plans.FindPlan(context.Background(), f.plan.ID)
	require.NoError(t, err)
	return plan.Status
}

func TestInitializeGeneration_Admits(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{InitialEstimate: 90 * time.Second})

	started, err := f.svc.InitializeGeneration(context.Background(), f.plan.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "processing", started.Status)
	assert.Equal(t, 90, started.EstimatedTime)

	require.Len(t, f.dispatcher.tasks, 1)
	task := f.dispatcher.tasks[0]
	assert.Equal(t, started.ID, task.JobID.String())
	assert.Equal(t, f.plan.ID, task.PlanID)
	assert.Equal(t, 1, task.Attempt)

	status, err := f.svc.GetGenerationStatus(context.Background(), f.plan.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, &response_models.GenerationStatusResponse{Status: "processing", Progress: 0, EstimatedTimeRemaining: 90}, status)
}

func TestInitializeGeneration_RejectsPlanWithoutPlaces(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{})
	empty := createPlan(t, f.db, f.owner)

	_, err := f.svc.InitializeGeneration(context.Background(), empty.ID, f.owner)
	assert.ErrorIs(t, err, utils.ErrPlanHasNoPlaces)
	assert.ErrorIs(t, err, utils.ErrValidation)

	job, err := f.jobs.FindLatestJob(context.Background(), empty.ID)
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.Empty(t, f.dispatcher.tasks)
}

func TestInitializeGeneration_RejectsPlanWithoutDates(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{})
	require.NoError(t, f.db.Model(&db_models.Plan{}).Where("id = ?", f.plan.ID).Update("end_date", nil).Error)

	_, err := f.svc.InitializeGeneration(context.Background(), f.plan.ID, f.owner)
	assert.ErrorIs(t, err, utils.ErrPlanMissingDates)
}

func TestInitializeGeneration_ForbiddenForOtherUsers(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{})
	stranger := uuid.New()

	_, err := f.svc.InitializeGeneration(context.Background(), f.plan.ID, stranger)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	// still forbidden while the owner's job is processing
	_, err = f.svc.InitializeGeneration(context.Background(), f.plan.ID, f.owner)
	require.NoError(t, err)
	_, err = f.svc.InitializeGeneration(context.Background(), f.plan.ID, stranger)
	assert.ErrorIs(t, err, utils.ErrForbidden)

	_, err = f.svc.GetGenerationStatus(context.Background(), f.plan.ID, stranger)
	assert.ErrorIs(t, err, utils.ErrForbidden)
	_, err = f.svc.GetGeneratedPlan(context.Background(), f.plan.ID, stranger)
	assert.ErrorIs(t, err, utils.ErrForbidden)
}

func TestInitializeGeneration_UnknownPlan(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{})

	_, err := f.svc.InitializeGeneration(context.Background(), uuid.New(), f.owner)
	assert.ErrorIs(t, err, utils.ErrNotFound)
	_, err = f.svc.GetGenerationStatus(context.Background(), uuid.New(), f.owner)
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestInitializeGeneration_ConcurrentCallsAdmitOne(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{})

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.InitializeGeneration(context.Background(), f.plan.ID, f.owner)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, utils.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	var count int64
	require.NoError(t, f.db.Model(&db_models.GenerationJob{}).Where("plan_id = ?", f.plan.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Len(t, f.dispatcher.tasks, 1)
}

func TestRunGeneration_CompletesAndEnriches(t *testing.T) {
	var gotMessages []llm.Message
	var gotOpts llm.ChatOptions
	chat := chatFunc(func(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.ChatResponse, error) {
		gotMessages, gotOpts = messages, opts
		return replyWith("```json\n" + krakowItinerary + "\n```")(ctx, messages, opts)
	})
	f := newGenerationFixture(t, chat, GenerationOptions{})

	_, err := f.start(t)
	require.NoError(t, err)

	require.Len(t, gotMessages, 2)
	assert.Equal(t, llm.RoleSystem, gotMessages[0].Role)
	assert.Equal(t, llm.RoleUser, gotMessages[1].Role)
	assert.Contains(t, gotMessages[1].Content, "- Krakow (2024-01-01 to 2024-01-03)")
	require.NotNil(t, gotOpts.Temperature)
	assert.InDelta(t, 0.7, *gotOpts.Temperature, 1e-6)
	assert.Equal(t, &llm.ResponseFormat{Type: llm.ResponseFormatJSONObject}, gotOpts.ResponseFormat)
	assert.True(t, gotOpts.NoCache)

	assert.Equal(t, []photoCall{
		{"Visit Wawel Castle", "Krakow, Poland"},
		{"Pod Wawelem", "Krakow, Poland"},
	}, f.photos.calls)

	status, err := f.svc.GetGenerationStatus(context.Background(), f.plan.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, 100, status.Progress)
	assert.Equal(t, 0, status.EstimatedTimeRemaining)
	assert.Equal(t, db_models.PlanStatusGenerated, f.planStatus(t))

	generated, err := f.svc.GetGeneratedPlan(context.Background(), f.plan.ID, f.owner)
	require.NoError(t, err)
	assert.Empty(t, generated.Warnings)
	day := generated.Content.Places[0].Days[0]
	assert.Empty(t, day.Schedule[0].ImageURL, "logistics items stay without photo")
	assert.NotEmpty(t, day.Schedule[1].ImageURL)
	assert.Empty(t, day.Schedule[2].ImageURL)
	assert.NotEmpty(t, day.DiningRecommendations[0].ImageURL)
}

func TestRunGeneration_ContentRoundTrips(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{})
	_, err := f.start(t)
	require.NoError(t, err)

	generated, err := f.svc.GetGeneratedPlan(context.Background(), f.plan.ID, f.owner)
	require.NoError(t, err)

	encoded, err := json.Marshal(generated.Content)
	require.NoError(t, err)
	reparsed, err := response_models.ParseItineraryContent(encoded)
	require.NoError(t, err)
	assert.Equal(t, generated.Content, reparsed)

	original, err := response_models.ParseItineraryContent(krakowItinerary)
	require.NoError(t, err)
	require.Len(t, reparsed.Places[0].Days[0].Schedule, len(original.Places[0].Days[0].Schedule))
	for i, item := range original.Places[0].Days[0].Schedule {
		got := reparsed.Places[0].Days[0].Schedule[i]
		assert.Equal(t, item.Activity, got.Activity)
		assert.Equal(t, item.Time, got.Time)
		assert.Equal(t, item.Address, got.Address)
	}
}

func TestRunGeneration_PhotoFailureAbortsJob(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{EnrichPolicy: EnrichAbort})
	f.photos.fail["Pod Wawelem"] = errors.New("places http error: connection reset")

	_, err := f.start(t)
	require.Error(t, err)

	status, err := f.svc.GetGenerationStatus(context.Background(), f.plan.ID, f.owner)
	require.NoError(t, err)
	assert.Equal(t, "failed", status.Status)
	assert.Equal(t, 0, status.EstimatedTimeRemaining)
	// a terminal job always reads as fully progressed; status tells the outcome
	assert.Equal(t, 100, status.Progress)
	assert.Equal(t, db_models.PlanStatusDraft, f.planStatus(t))

	job, err := f.jobs.FindLatestJob(context.Background(), f.plan.ID)
	require.NoError(t, err)
	assert.Empty(t, job.Content)

	_, err = f.svc.GetGeneratedPlan(context.Background(), f.plan.ID, f.owner)
	assert.ErrorIs(t, err, utils.ErrGeneratedPlanMissing)

	// a failed job can be retried
	delete(f.photos.fail, "Pod Wawelem")
	task, err := f.start(t)
	require.NoError(t, err)
	assert.Equal(t, 2, task.Attempt)
	assert.Equal(t, db_models.PlanStatusGenerated, f.planStatus(t))
}

func TestRunGeneration_SkipPolicyKeepsGoing(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{EnrichPolicy: EnrichSkip})
	f.photos.fail["Visit Wawel Castle"] = errors.New("places api error: status OVER_QUERY_LIMIT")

	_, err := f.start(t)
	require.NoError(t, err)

	generated, err := f.svc.GetGeneratedPlan(context.Background(), f.plan.ID, f.owner)
	require.NoError(t, err)
	require.Len(t, generated.Warnings, 1)
	assert.Contains(t, generated.Warnings[0], "Visit Wawel Castle")
	day := generated.Content.Places[0].Days[0]
	assert.Empty(t, day.Schedule[1].ImageURL)
	assert.NotEmpty(t, day.DiningRecommendations[0].ImageURL)
}

func TestRunGeneration_FailsOnBadModelOutput(t *testing.T) {
	cases := map[string]llm.ChatClient{
		"provider error": chatFunc(func(context.Context, []llm.Message, llm.ChatOptions) (*llm.ChatResponse, error) {
			return nil, llm.NewAPIError(500, "upstream down")
		}),
		"not json":     replyWith("Sorry, I cannot help with that."),
		"empty places": replyWith(`{"version":"1.0","places":[]}`),
		"no choices": chatFunc(func(context.Context, []llm.Message, llm.ChatOptions) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{}, nil
		}),
	}
	for name, chat := range cases {
		t.Run(name, func(t *testing.T) {
			f := newGenerationFixture(t, chat, GenerationOptions{})

			_, err := f.start(t)
			require.Error(t, err)

			job, err := f.jobs.FindLatestJob(context.Background(), f.plan.ID)
			require.NoError(t, err)
			assert.Equal(t, db_models.GenerationStatusFailed, job.Status)
			assert.Empty(t, job.Content)
			assert.Equal(t, db_models.PlanStatusDraft, f.planStatus(t))
		})
	}
}

func TestRunGeneration_Timeout(t *testing.T) {
	chat := chatFunc(func(ctx context.Context, _ []llm.Message, _ llm.ChatOptions) (*llm.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	f := newGenerationFixture(t, chat, GenerationOptions{Timeout: 30 * time.Millisecond})

	_, err := f.start(t)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "deadline")

	job, err := f.jobs.FindLatestJob(context.Background(), f.plan.ID)
	require.NoError(t, err)
	assert.Equal(t, db_models.GenerationStatusFailed, job.Status)
}

func TestRunGeneration_DiscardsResultWhenPlanEdited(t *testing.T) {
	var f *generationFixture
	chat := chatFunc(func(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.ChatResponse, error) {
		plan, err := f.plans.FindPlan(ctx, f.plan.ID)
		if err != nil {
			return nil, err
		}
		plan.Name = "Edited while generating"
		if _, err := f.plans.UpdatePlan(ctx, plan); err != nil {
			return nil, err
		}
		return replyWith(krakowItinerary)(ctx, messages, opts)
	})
	f = newGenerationFixture(t, chat, GenerationOptions{})

	_, err := f.start(t)
	require.NoError(t, err)

	job, err := f.jobs.FindLatestJob(context.Background(), f.plan.ID)
	require.NoError(t, err)
	assert.Nil(t, job)
	assert.Equal(t, db_models.PlanStatusDraft, f.planStatus(t))
}

func TestInitializeGeneration_DispatchFailureFailsJob(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{})
	f.dispatcher.err = queue.ErrQueueFull

	_, err := f.svc.InitializeGeneration(context.Background(), f.plan.ID, f.owner)
	assert.ErrorIs(t, err, queue.ErrQueueFull)

	job, err := f.jobs.FindLatestJob(context.Background(), f.plan.ID)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, db_models.GenerationStatusFailed, job.Status)

	// not stuck in processing: a later call is admitted
	f.dispatcher.err = nil
	_, err = f.svc.InitializeGeneration(context.Background(), f.plan.ID, f.owner)
	assert.NoError(t, err)
}

func TestGetGenerationStatus_NoJob(t *testing.T) {
	f := newGenerationFixture(t, replyWith(krakowItinerary), GenerationOptions{})

	_, err := f.svc.GetGenerationStatus(context.Background(), f.plan.ID, f.owner)
	assert.ErrorIs(t, err, utils.ErrGenerationNotFound)
	_, err = f.svc.GetGeneratedPlan(context.Background(), f.plan.ID, f.owner)
	assert.ErrorIs(t, err, utils.ErrGeneratedPlanMissing)
}

type progressRecorder struct {
	repositories.GenerationJobRepository
	mu     sync.Mutex
	values []int
}

func (p *progressRecorder) UpdateProgress(ctx context.Context, jobID uuid.UUID, remaining int) error {
	p.mu.Lock()
	p.values = append(p.values, remaining)
	p.mu.Unlock()
	return p.GenerationJobRepository.UpdateProgress(ctx, jobID, remaining)
}

func (p *progressRecorder) snapshot() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.values...)
}

type stepClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

func TestRunGeneration_ProgressCountsDown(t *testing.T) {
	db := newTestDB(t)
	owner := uuid.New()
	plan := createPlan(t, db, owner, seedPlace{name: "Krakow", start: "2024-01-01", end: "2024-01-03"})
	recorder := &progressRecorder{GenerationJobRepository: repositories.NewGenerationJobRepository(db)}
	dispatcher := &recordingDispatcher{}

	var observed []int
	chat := chatFunc(func(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.ChatResponse, error) {
		deadline := time.Now().Add(2 * time.Second)
		for len(recorder.snapshot()) < 4 && time.Now().Before(deadline) {
			time.Sleep(2 * time.Millisecond)
		}
		job, err := recorder.FindLatestJob(ctx, plan.ID)
		if err != nil {
			return nil, err
		}
		observed = append(observed, job.EstimatedTimeRemaining)
		return replyWith(krakowItinerary)(ctx, messages, opts)
	})

	svc := NewGenerationService(repositories.NewPlanRepository(db), recorder, chat, &fakePhotos{}, dispatcher,
		GenerationOptions{InitialEstimate: 90 * time.Second, TickInterval: time.Millisecond}, zap.NewNop())
	svc.now = (&stepClock{t: time.Unix(1_700_000_000, 0), step: 10 * time.Second}).now

	_, err := svc.InitializeGeneration(context.Background(), plan.ID, owner)
	require.NoError(t, err)
	require.NoError(t, svc.RunGeneration(context.Background(), dispatcher.last()))

	values := recorder.snapshot()
	require.GreaterOrEqual(t, len(values), 4)
	for i := 1; i < len(values); i++ {
		assert.LessOrEqual(t, values[i], values[i-1], "remaining time never goes up")
	}
	for _, v := range values {
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 90)
	}
	require.Len(t, observed, 1)
	assert.Less(t, observed[0], 90, "the countdown was persisted while the model call ran")
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(90, 90))
	assert.Equal(t, 50, Progress(45, 90))
	assert.Equal(t, 100, Progress(0, 90))
	assert.Equal(t, 0, Progress(120, 90), "clamped below")
	assert.Equal(t, 100, Progress(-5, 90), "clamped above")
	assert.Equal(t, 100, Progress(10, 0))

	last := -1
	for elapsed := 0; elapsed <= 120; elapsed += 5 {
		p := Progress(RemainingSeconds(90, time.Duration(elapsed)*time.Second), 90)
		assert.GreaterOrEqual(t, p, last)
		assert.GreaterOrEqual(t, p, 0)
		assert.LessOrEqual(t, p, 100)
		last = p
	}
}

func TestRemainingSeconds(t *testing.T) {
	assert.Equal(t, 90, RemainingSeconds(90, 0))
	assert.Equal(t, 90, RemainingSeconds(90, 999*time.Millisecond))
	assert.Equal(t, 85, RemainingSeconds(90, 5*time.Second))
	assert.Equal(t, 0, RemainingSeconds(90, 10*time.Minute))
}
