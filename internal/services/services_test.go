package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"nicetravel/internal/infra"
	"nicetravel/internal/models/db_models"
	"nicetravel/internal/queue"
	"nicetravel/pkg/llm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, infra.Migrate(db))
	return db
}

func mustDate(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

type seedPlace struct {
	name, start, end, note string
}

func createPlan(t *testing.T, db *gorm.DB, owner uuid.UUID, places ...seedPlace) *db_models.Plan {
	t.Helper()
	start, end := mustDate("2024-01-01"), mustDate("2024-01-07")
	plan := &db_models.Plan{
		AccountID:         owner,
		Name:              "Poland",
		StartDate:         &start,
		EndDate:           &end,
		PeopleCount:       2,
		TravelPreferences: "Cultural experiences",
		Status:            db_models.PlanStatusDraft,
	}
	require.NoError(t, db.Create(plan).Error)
	for _, p := range places {
		require.NoError(t, db.Create(&db_models.Place{
			PlanID:    plan.ID,
			Name:      p.name,
			StartDate: mustDate(p.start),
			EndDate:   mustDate(p.end),
			Note:      p.note,
		}).Error)
	}
	return plan
}

// chatFunc adapts a function to llm.ChatClient.
type chatFunc func(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.ChatResponse, error)

func (f chatFunc) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.ChatResponse, error) {
	return f(ctx, messages, opts)
}

func replyWith(content string) chatFunc {
	return func(context.Context, []llm.Message, llm.ChatOptions) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Choices: []llm.Choice{{Message: llm.Message{Role: llm.RoleAssistant, Content: content}}}}, nil
	}
}

type photoCall struct {
	query, location string
}

type fakePhotos struct {
	mu    sync.Mutex
	calls []photoCall
	fail  map[string]error
}

func (f *fakePhotos) GetPlacePhoto(_ context.Context, query, location string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, photoCall{query, location})
	if err := f.fail[query]; err != nil {
		return "", err
	}
	return "https://photos.example/" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(query)).String(), nil
}

type recordingDispatcher struct {
	mu    sync.Mutex
	tasks []queue.GenerationTask
	err   error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, task queue.GenerationTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.tasks = append(d.tasks, task)
	return nil
}

func (d *recordingDispatcher) last() queue.GenerationTask {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tasks[len(d.tasks)-1]
}
