package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/seantiz/errand/internal/model"
)

func newTestFileStore(t *testing.T) (*FileStore, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	s, err := NewFileStore(fsys, "/var/lib/errand/results")
	require.NoError(t, err)
	return s, fsys
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestRedisStore connects to ERRAND_TEST_REDIS_ADDR, skipping when unset.
func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("ERRAND_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ERRAND_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}
	s := NewRedisStore(client)
	t.Cleanup(func() { s.Close() })
	return s
}

func makeTestRecord(status, result string) *model.JobRecord {
	return &model.JobRecord{
		RequestID: model.NewID(),
		Result:    result,
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Status:    status,
	}
}

// durableBackends returns every backend available in this environment.
func durableBackends(t *testing.T) map[string]func(t *testing.T) Durable {
	return map[string]func(t *testing.T) Durable{
		"file": func(t *testing.T) Durable {
			s, _ := newTestFileStore(t)
			return s
		},
		"sqlite": func(t *testing.T) Durable { return newTestSQLiteStore(t) },
		"redis":  func(t *testing.T) Durable { return newTestRedisStore(t) },
	}
}

func TestDurableWriteAndRead(t *testing.T) {
	for name, open := range durableBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			rec := makeTestRecord(model.StatusCompleted, "Found 3 pizza places near Stockholm")

			require.NoError(t, s.Write(ctx, rec))

			got, err := s.Read(ctx, rec.RequestID)
			require.NoError(t, err)
			assert.Equal(t, rec.RequestID, got.RequestID)
			assert.Equal(t, rec.Result, got.Result)
			assert.Equal(t, rec.Status, got.Status)
			assert.True(t, rec.Timestamp.Equal(got.Timestamp), "timestamp = %v, want %v", got.Timestamp, rec.Timestamp)
		})
	}
}

func TestDurableOverwrite(t *testing.T) {
	for name, open := range durableBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()
			rec := makeTestRecord(model.StatusRunning, "Search started, results pending")
			require.NoError(t, s.Write(ctx, rec))

			final := *rec
			final.Result = "Margherita 120 SEK"
			final.Status = model.StatusCompleted
			require.NoError(t, s.Write(ctx, &final))

			got, err := s.Read(ctx, rec.RequestID)
			require.NoError(t, err)
			assert.Equal(t, "Margherita 120 SEK", got.Result)
			assert.Equal(t, model.StatusCompleted, got.Status)
		})
	}
}

func TestDurableReadNotFound(t *testing.T) {
	for name, open := range durableBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			_, err := s.Read(context.Background(), model.NewID())
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestDurableRejectsInvalidID(t *testing.T) {
	for name, open := range durableBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			rec := makeTestRecord(model.StatusCompleted, "x")
			rec.RequestID = "../escape"
			assert.ErrorIs(t, s.Write(ctx, rec), ErrInvalidID)

			_, err := s.Read(ctx, "a/b")
			assert.ErrorIs(t, err, ErrInvalidID)
		})
	}
}

func TestDurableConcurrentWriters(t *testing.T) {
	for name, open := range durableBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			const n = 20
			ids := make([]string, n)
			for i := range ids {
				ids[i] = model.NewID()
			}

			var g errgroup.Group
			for i, id := range ids {
				g.Go(func() error {
					return s.Write(ctx, &model.JobRecord{
						RequestID: id,
						Result:    fmt.Sprintf("result %d", i),
						Timestamp: time.Now().UTC(),
						Status:    model.StatusCompleted,
					})
				})
			}
			require.NoError(t, g.Wait())

			for i, id := range ids {
				got, err := s.Read(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("result %d", i), got.Result)
			}
		})
	}
}

func TestFileStoreLayout(t *testing.T) {
	s, fsys := newTestFileStore(t)
	ctx := context.Background()
	rec := makeTestRecord(model.StatusCompleted, "done")

	require.NoError(t, s.Write(ctx, rec))

	b, err := afero.ReadFile(fsys, "/var/lib/errand/results/"+rec.RequestID+".json")
	require.NoError(t, err)
	assert.Contains(t, string(b), `"request_id": "`+rec.RequestID+`"`)
	assert.Contains(t, string(b), `"status": "completed"`)

	entries, err := afero.ReadDir(fsys, s.Dir())
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, rec.RequestID+".json", entries[0].Name())
}

func TestFileStoreEmptyAndCorruptFiles(t *testing.T) {
	s, fsys := newTestFileStore(t)
	ctx := context.Background()

	empty := model.NewID()
	require.NoError(t, afero.WriteFile(fsys, s.Path(empty), nil, 0o644))
	_, err := s.Read(ctx, empty)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	corrupt := model.NewID()
	require.NoError(t, afero.WriteFile(fsys, s.Path(corrupt), []byte("{not json"), 0o644))
	_, err = s.Read(ctx, corrupt)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "parse record"))
}

func TestNewFileStoreRequiresDir(t *testing.T) {
	_, err := NewFileStore(afero.NewMemMapFs(), "  ")
	assert.Error(t, err)
}

func TestFileStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(afero.NewOsFs(), dir)
	require.NoError(t, err)

	rec := makeTestRecord(model.StatusError, "Error: engine crashed")
	require.NoError(t, s.Write(context.Background(), rec))

	got, err := s.Read(context.Background(), rec.RequestID)
	require.NoError(t, err)
	assert.Equal(t, rec.Result, got.Result)
	assert.FileExists(t, s.Path(rec.RequestID))
}
