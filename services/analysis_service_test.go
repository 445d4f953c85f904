package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-soilsync/engine"
	"go-soilsync/history"
	"go-soilsync/logger"
	"go-soilsync/models"
	"go-soilsync/utils"
)

var lowNitrogen = models.SoilSample{
	Phosphorus:     30,
	Potassium:      200,
	Nitrogen:       0.1,
	OrganicCarbon:  2,
	CationExchange: 15,
	CropType:       "wheat",
}

func sequentialIDs() func() (string, error) {
	n := 0
	return func() (string, error) {
		n++
		return fmt.Sprintf("analysis%08d", n), nil
	}
}

func newService(t *testing.T, store history.Store, opts ...Option) *AnalysisService {
	t.Helper()
	clock := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	base := []Option{
		WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
		WithIDGenerator(sequentialIDs()),
	}
	return NewAnalysisService(engine.NewRuleEngine(engine.NoJitter), store, logger.Nop(), append(base, opts...)...)
}

type failingStore struct {
	history.Store
}

func (failingStore) Append(context.Context, models.HistoryEntry) error {
	return errors.New("disk full")
}

func TestPredictDoesNotPersist(t *testing.T) {
	store := history.NewMemoryStore(10)
	svc := newService(t, store)

	rec := svc.Predict(context.Background(), lowNitrogen)
	assert.Equal(t, models.FertilizerUrea, rec.Fertilizer)
	assert.Equal(t, models.SourceRules, rec.Source)

	list, err := store.List(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAnalyzeSavesAndLists(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, history.NewMemoryStore(10))

	first, err := svc.Analyze(ctx, "u1", lowNitrogen)
	require.NoError(t, err)
	assert.Equal(t, "analysis00000001", first.ID)
	assert.Equal(t, "u1", first.UserID)
	assert.Equal(t, lowNitrogen, first.SoilData)
	assert.Equal(t, models.FertilizerUrea, first.Fertilizer)

	second, err := svc.Analyze(ctx, "u1", lowNitrogen)
	require.NoError(t, err)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	list, err := svc.History(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	got, err := svc.Get(ctx, "u1", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	_, err = svc.Get(ctx, "u2", first.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGetRejectsMalformedID(t *testing.T) {
	svc := newService(t, history.NewMemoryStore(10))
	_, err := svc.Get(context.Background(), "", "../../etc/passwd")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAnalyzeDefaultIDs(t *testing.T) {
	svc := NewAnalysisService(engine.NewRuleEngine(engine.NoJitter), history.NewMemoryStore(5), nil)
	entry, err := svc.Analyze(context.Background(), "", lowNitrogen)
	require.NoError(t, err)
	assert.True(t, utils.ValidateAnalysisID(entry.ID))
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestAnalyzeStoreFailureKeepsRecommendation(t *testing.T) {
	svc := newService(t, failingStore{Store: history.NewMemoryStore(10)})

	entry, err := svc.Analyze(context.Background(), "u1", lowNitrogen)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotSaved)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, models.FertilizerUrea, entry.Fertilizer)
	assert.NotEmpty(t, entry.ID)
}

func TestAnalyzeIDFailure(t *testing.T) {
	svc := newService(t, history.NewMemoryStore(10), WithIDGenerator(func() (string, error) {
		return "", errors.New("entropy exhausted")
	}))

	entry, err := svc.Analyze(context.Background(), "", lowNitrogen)
	assert.ErrorIs(t, err, ErrNotSaved)
	assert.Equal(t, models.FertilizerUrea, entry.Fertilizer)
}

func TestAnalyticsUsesAllRetainedEntries(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, history.NewMemoryStore(12))

	for i := 0; i < 15; i++ {
		_, err := svc.Analyze(ctx, "u1", lowNitrogen)
		require.NoError(t, err)
	}
	_, err := svc.Analyze(ctx, "u2", lowNitrogen)
	require.NoError(t, err)

	a, err := svc.Analytics(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 12, a.TotalAnalyses)
	assert.Len(t, a.RecentAnalyses, history.RecentLimit)
	assert.Equal(t, map[string]int{models.FertilizerUrea: 12}, a.FertilizerUsage)
	assert.Equal(t, map[string]int{"wheat": 12}, a.CropAnalysis)
	assert.Equal(t, 12, svc.MaxEntries())
}

func TestBatch(t *testing.T) {
	svc := newService(t, history.NewMemoryStore(10), WithBatchLimits(2, 2))

	report, err := svc.Batch(context.Background(), strings.NewReader("nitrogen,phosphorus,potassium,label\n0.1,30,200,Add_Urea\n0.3,30,200,\n"))
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, 1, report.Summary.Matches)

	_, err = svc.Batch(context.Background(), strings.NewReader("nitrogen\n1\n2\n3\n"))
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestSimulateUsesRandomSource(t *testing.T) {
	a := newService(t, history.NewMemoryStore(1), WithRandom(engine.NewSeededSource(7))).Simulate()
	b := newService(t, history.NewMemoryStore(1), WithRandom(engine.NewSeededSource(7))).Simulate()
	assert.Equal(t, a, b)
	assert.Contains(t, models.Crops, a.CropType)
}
