package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-soilsync/config"
	"go-soilsync/logger"
	"go-soilsync/models"
)

var epoch = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func entry(owner string, i int) models.HistoryEntry {
	return models.HistoryEntry{
		ID:        fmt.Sprintf("entry-%03d", i),
		UserID:    owner,
		CreatedAt: epoch.Add(time.Duration(i) * time.Minute),
		SoilData: models.SoilSample{
			Phosphorus:     float64(i),
			Potassium:      100,
			Nitrogen:       0.2,
			OrganicCarbon:  1.5,
			CationExchange: 12,
			SandPercent:    40,
			ClayPercent:    30,
			SiltPercent:    30,
			Rainfall:       1000,
			Elevation:      1500,
			CropType:       "maize",
		},
		Recommendation: models.Recommendation{
			Fertilizer:    "DAP",
			Rate:          110,
			Confidence:    90.5,
			ExpectedYield: 22,
			Source:        models.SourceRules,
		},
	}
}

func newSQLiteStore(t *testing.T, max int) Store {
	t.Helper()
	db, err := config.OpenDB(context.Background(), config.StorageConfig{Driver: config.DriverSQLite, DSN: ":memory:"}, logger.Nop())
	require.NoError(t, err)
	s := NewSQLStore(db, max)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newRedisStore(t *testing.T, max int) Store {
	t.Helper()
	mr := miniredis.RunT(t)
	s := NewRedisStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "", max)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var backends = map[string]func(t *testing.T, max int) Store{
	"memory": func(t *testing.T, max int) Store { return NewMemoryStore(max) },
	"sqlite": newSQLiteStore,
	"redis":  newRedisStore,
}

func TestStoreMostRecentFirst(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 10)

			for i := 1; i <= 3; i++ {
				require.NoError(t, s.Append(ctx, entry("u1", i)))
			}

			list, err := s.List(ctx, "u1", 0)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, "entry-003", list[0].ID)
			assert.Equal(t, "entry-001", list[2].ID)
			assert.Equal(t, entry("u1", 3), list[0])
		})
	}
}

func TestStoreEvictsOldest(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 5)
			assert.Equal(t, 5, s.MaxEntries())

			for i := 1; i <= 8; i++ {
				require.NoError(t, s.Append(ctx, entry("u1", i)))
			}

			list, err := s.List(ctx, "u1", 100)
			require.NoError(t, err)
			require.Len(t, list, 5)
			for i, e := range list {
				assert.Equal(t, fmt.Sprintf("entry-%03d", 8-i), e.ID)
			}

			_, err = s.Get(ctx, "u1", "entry-001")
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestStoreLimit(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 10)
			for i := 1; i <= 6; i++ {
				require.NoError(t, s.Append(ctx, entry("u1", i)))
			}

			list, err := s.List(ctx, "u1", 2)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "entry-006", list[0].ID)
			assert.Equal(t, "entry-005", list[1].ID)
		})
	}
}

func TestStoreScopesByOwner(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t, 2)

			require.NoError(t, s.Append(ctx, entry("", 1)))
			require.NoError(t, s.Append(ctx, entry("u1", 2)))
			require.NoError(t, s.Append(ctx, entry("u2", 3)))
			require.NoError(t, s.Append(ctx, entry("u2", 4)))
			require.NoError(t, s.Append(ctx, entry("u2", 5)))

			anon, err := s.List(ctx, "", 0)
			require.NoError(t, err)
			require.Len(t, anon, 1)
			assert.Equal(t, "entry-001", anon[0].ID)

			u1, err := s.List(ctx, "u1", 0)
			require.NoError(t, err)
			require.Len(t, u1, 1, "other owners must not evict u1")

			got, err := s.Get(ctx, "u2", "entry-005")
			require.NoError(t, err)
			assert.Equal(t, "u2", got.UserID)

			_, err = s.Get(ctx, "u1", "entry-005")
			assert.ErrorIs(t, err, models.ErrNotFound)
		})
	}
}

func TestStoreEmpty(t *testing.T) {
	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			list, err := open(t, 5).List(context.Background(), "nobody", 10)
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestMemoryStoreDefaultsCap(t *testing.T) {
	assert.Equal(t, DefaultMaxEntries, NewMemoryStore(0).MaxEntries())
}

func TestRedisStoreKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedisStore(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}), "test", 3)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, entry("", 1)))
	require.NoError(t, s.Append(ctx, entry("u1", 2)))

	assert.True(t, mr.Exists("test:anonymous"))
	assert.True(t, mr.Exists("test:u1"))
}

func TestDialRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb, err := DialRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	require.NoError(t, rdb.Close())

	mr.Close()
	_, err = DialRedis(context.Background(), mr.Addr(), "", 0)
	require.Error(t, err)
}
