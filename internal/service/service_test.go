package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-management/internal/config"
	"github.com/aanand-mishra/student-management/internal/storage"
	"github.com/aanand-mishra/student-management/internal/storage/sqlite"
	"github.com/aanand-mishra/student-management/internal/storage/storagetest"
	"github.com/aanand-mishra/student-management/internal/types"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newSQLiteService(t *testing.T) *Students {
	t.Helper()
	return newSQLiteServicePool(t, 1)
}

// newSQLiteServicePool opens a service whose pool allows maxOpen
// connections; zero keeps the database/sql default (unbounded).
func newSQLiteServicePool(t *testing.T, maxOpen int) *Students {
	t.Helper()

	repo, err := sqlite.New(config.Storage{
		Driver:       config.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "students.db"),
		QueryTimeout: 10 * time.Second,
		MaxOpenConns: maxOpen,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return New(repo, quietLogger())
}

// failingRepo returns errStore from every call.
type failingRepo struct {
	storage.StudentRepository
}

var errStore = errors.New("store unavailable")

func (failingRepo) Save(context.Context, types.Student) (types.Student, error) {
	return types.Student{}, errStore
}
func (failingRepo) DeleteByID(context.Context, int) (bool, error) { return false, errStore }
func (failingRepo) FindAll(context.Context) ([]types.Student, error) {
	return nil, errStore
}
func (failingRepo) Count(context.Context) (int64, error) { return 0, errStore }
func (failingRepo) FindNbrStudentByYear(context.Context) ([]types.YearCount, error) {
	return nil, errStore
}

func TestStudents_EmptyStore(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	all, err := svc.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err := svc.CountStudents(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	byYear, err := svc.FindNbrStudentByYear(ctx)
	require.NoError(t, err)
	assert.Empty(t, byYear)
}

func TestStudents_SaveThenFindAll(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	in := storagetest.Born("nina", 2000, time.May, 20)
	saved, err := svc.Save(ctx, in)
	require.NoError(t, err)

	all, err := svc.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	in.ID = saved.ID
	assert.Equal(t, in, all[0])
}

func TestStudents_Delete(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	saved, err := svc.Save(ctx, storagetest.Born("omar", 2001, time.September, 9))
	require.NoError(t, err)

	removed, err := svc.Delete(ctx, saved.ID+1)
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := svc.CountStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	removed, err = svc.Delete(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := svc.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStudents_ConcurrentDeleteReportsOnce(t *testing.T) {
	for name, maxOpen := range map[string]int{
		"SingleConn":  1,
		"DefaultPool": 0,
	} {
		t.Run(name, func(t *testing.T) {
			svc := newSQLiteServicePool(t, maxOpen)
			ctx := context.Background()

			for round := 0; round < 5; round++ {
				saved, err := svc.Save(ctx, storagetest.Born("pia", 1999, time.April, 4))
				require.NoError(t, err)

				var (
					wg      sync.WaitGroup
					start   = make(chan struct{})
					removed atomic.Int32
				)
				for i := 0; i < 8; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						<-start
						ok, err := svc.Delete(ctx, saved.ID)
						assert.NoError(t, err)
						if ok {
							removed.Add(1)
						}
					}()
				}
				close(start)
				wg.Wait()

				assert.Equal(t, int32(1), removed.Load(), "round %d", round)
			}

			n, err := svc.CountStudents(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestStudents_UpdateKeepsCount(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	five := storagetest.Born("quinn", 2000, time.June, 6)
	five.ID = 5
	_, err := svc.Save(ctx, five)
	require.NoError(t, err)
	_, err = svc.Save(ctx, storagetest.Born("rosa", 2002, time.July, 7))
	require.NoError(t, err)

	five.Name = "quinn updated"
	five.DateOfBirth = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Save(ctx, five)
	require.NoError(t, err)

	n, err := svc.CountStudents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := svc.FindByID(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, five, *got)
}

func TestStudents_ByYearSumsToCount(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	for _, s := range []types.Student{
		storagetest.Born("sam", 2000, time.February, 1),
		storagetest.Born("tess", 2000, time.November, 30),
		storagetest.Born("uma", 2001, time.March, 3),
	} {
		_, err := svc.Save(ctx, s)
		require.NoError(t, err)
	}

	byYear, err := svc.FindNbrStudentByYear(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.YearCount{{Year: 2000, Count: 2}, {Year: 2001, Count: 1}}, byYear)

	n, err := svc.CountStudents(ctx)
	require.NoError(t, err)
	var sum int64
	for _, yc := range byYear {
		sum += yc.Count
	}
	assert.Equal(t, n, sum)
}

func TestStudents_PropagatesStoreErrors(t *testing.T) {
	svc := New(failingRepo{}, nil)
	ctx := context.Background()

	_, err := svc.Save(ctx, types.Student{})
	assert.ErrorIs(t, err, errStore)

	removed, err := svc.Delete(ctx, 1)
	assert.ErrorIs(t, err, errStore)
	assert.False(t, removed)

	_, err = svc.FindAll(ctx)
	assert.ErrorIs(t, err, errStore)

	_, err = svc.CountStudents(ctx)
	assert.ErrorIs(t, err, errStore)

	_, err = svc.FindNbrStudentByYear(ctx)
	assert.ErrorIs(t, err, errStore)
}
