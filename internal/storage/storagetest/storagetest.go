// Package storagetest holds a conformance suite every
// storage.StudentRepository backend must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-management/internal/storage"
	"github.com/aanand-mishra/student-management/internal/types"
)

// Factory returns an empty repository. It should register its own cleanup.
type Factory func(t *testing.T) storage.StudentRepository

// Born builds a student born on the given calendar day.
func Born(name string, year int, month time.Month, day int) types.Student {
	return types.Student{
		Name:        name,
		Email:       name + "@school.test",
		DateOfBirth: time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
	}
}

// Run executes the conformance suite against repositories from newRepo.
func Run(t *testing.T, newRepo Factory) {
	t.Run("EmptyStore", func(t *testing.T) { testEmptyStore(t, newRepo(t)) })
	t.Run("SaveInsert", func(t *testing.T) { testSaveInsert(t, newRepo(t)) })
	t.Run("SaveUpdate", func(t *testing.T) { testSaveUpdate(t, newRepo(t)) })
	t.Run("SaveExplicitID", func(t *testing.T) { testSaveExplicitID(t, newRepo(t)) })
	t.Run("FindByIDMissing", func(t *testing.T) { testFindByIDMissing(t, newRepo(t)) })
	t.Run("DeleteByID", func(t *testing.T) { testDeleteByID(t, newRepo(t)) })
	t.Run("DeleteEntity", func(t *testing.T) { testDeleteEntity(t, newRepo(t)) })
	t.Run("CountByYear", func(t *testing.T) { testCountByYear(t, newRepo(t)) })
	t.Run("CountMatchesFindAll", func(t *testing.T) { testCountMatchesFindAll(t, newRepo(t)) })
	t.Run("DateOutOfRange", func(t *testing.T) { testDateOutOfRange(t, newRepo(t)) })
	t.Run("IDsNotReused", func(t *testing.T) { testIDsNotReused(t, newRepo(t)) })
}

func testEmptyStore(t *testing.T, repo storage.StudentRepository) {
	ctx := context.Background()

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	byYear, err := repo.FindNbrStudentByYear(ctx)
	require.NoError(t, err)
	assert.NotNil(t, byYear)
	assert.Empty(t, byYear)
}

func testSaveInsert(t *testing.T, repo storage.StudentRepository) {
	ctx := context.Background()
	in := Born("alice", 2000, time.March, 14)

	saved, err := repo.Save(ctx, in)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	in.ID = saved.ID
	assert.Equal(t, in, saved)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, in, all[0])

	second, err := repo.Save(ctx, Born("bob", 2001, time.July, 1))
	require.NoError(t, err)
	assert.NotEqual(t, saved.ID, second.ID)
}

func testSaveUpdate(t *testing.T, repo storage.StudentRepository) {
	ctx := context.Background()

	saved, err := repo.Save(ctx, Born("carol", 1999, time.January, 2))
	require.NoError(t, err)
	_, err = repo.Save(ctx, Born("dave", 2002, time.May, 5))
	require.NoError(t, err)

	updated := saved
	updated.Name = "caroline"
	updated.Email = "caroline@school.test"
	updated.DateOfBirth = time.Date(1998, time.December, 31, 0, 0, 0, 0, time.UTC)

	_, err = repo.Save(ctx, updated)
	require.NoError(t, err)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, updated, *got)
}

func testSaveExplicitID(t *testing.T, repo storage.StudentRepository) {
	ctx := context.Background()

	in := Born("erin", 2003, time.April, 9)
	in.ID = 5
	saved, err := repo.Save(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 5, saved.ID)

	got, err := repo.FindByID(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "erin", got.Name)

	// A later generated id must not collide with the explicit one.
	next, err := repo.Save(ctx, Born("frank", 2003, time.June, 1))
	require.NoError(t, err)
	assert.NotEqual(t, 5, next.ID)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func testFindByIDMissing(t *testing.T, repo storage.StudentRepository) {
	got, err := repo.FindByID(context.Background(), 424242)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testDeleteByID(t *testing.T, repo storage.StudentRepository) {
	ctx := context.Background()

	saved, err := repo.Save(ctx, Born("gina", 2000, time.August, 8))
	require.NoError(t, err)

	removed, err := repo.DeleteByID(ctx, saved.ID+1000)
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	removed, err = repo.DeleteByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := repo.FindByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	removed, err = repo.DeleteByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, removed, "second delete of the same id removes nothing")
}

func testDeleteEntity(t *testing.T, repo storage.StudentRepository) {
	ctx := context.Background()

	saved, err := repo.Save(ctx, Born("hank", 2001, time.February, 28))
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, saved)
	require.NoError(t, err)
	assert.True(t, removed)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testCountByYear(t *testing.T, repo storage.StudentRepository) {
	ctx := context.Background()

	for _, s := range []types.Student{
		Born("ivy", 2000, time.January, 1),
		Born("jack", 2000, time.December, 31),
		Born("kate", 2001, time.June, 15),
	} {
		_, err := repo.Save(ctx, s)
		require.NoError(t, err)
	}

	byYear, err := repo.FindNbrStudentByYear(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []types.YearCount{
		{Year: 2000, Count: 2},
		{Year: 2001, Count: 1},
	}, byYear)
}

func testCountMatchesFindAll(t *testing.T, repo storage.StudentRepository) {
	ctx := context.Background()

	years := []int{1990, 1995, 1995, 2004, 2004, 2004, 2010}
	for i, y := range years {
		_, err := repo.Save(ctx, Born("student", y, time.Month(i%12+1), i+1))
		require.NoError(t, err)
	}

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(all)), n)

	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].ID, all[i].ID, "FindAll is ordered by id")
	}

	byYear, err := repo.FindNbrStudentByYear(ctx)
	require.NoError(t, err)
	var sum int64
	for _, yc := range byYear {
		sum += yc.Count
	}
	assert.Equal(t, n, sum)
	assert.Len(t, byYear, 4)
}

func testDateOutOfRange(t *testing.T, repo storage.StudentRepository) {
	ctx := context.Background()

	kept, err := repo.Save(ctx, Born("valid", 2000, time.May, 1))
	require.NoError(t, err)

	for _, year := range []int{10000, 0, -5} {
		_, err := repo.Save(ctx, Born("bad", year, time.January, 1))
		assert.ErrorIs(t, err, storage.ErrDateOutOfRange, "year %d", year)

		existing := kept
		existing.DateOfBirth = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		_, err = repo.Save(ctx, existing)
		assert.ErrorIs(t, err, storage.ErrDateOutOfRange, "update to year %d", year)
	}

	edge, err := repo.Save(ctx, Born("edge", 9999, time.December, 31))
	require.NoError(t, err)

	// Rejected saves wrote nothing; the store still reads back whole.
	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, kept, all[0])
	assert.Equal(t, edge, all[1])

	byYear, err := repo.FindNbrStudentByYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, []types.YearCount{{Year: 2000, Count: 1}, {Year: 9999, Count: 1}}, byYear)
}

func testIDsNotReused(t *testing.T, repo storage.StudentRepository) {
	ctx := context.Background()

	var ids []int
	for i := 0; i < 5; i++ {
		s, err := repo.Save(ctx, Born("row", 2000+i, time.March, 3))
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	highest := ids[len(ids)-1]

	// Drop the top rows, then save with an explicit low id.
	for _, id := range ids[2:] {
		removed, err := repo.DeleteByID(ctx, id)
		require.NoError(t, err)
		require.True(t, removed)
	}
	low := Born("low", 1999, time.June, 6)
	low.ID = ids[0]
	_, err := repo.Save(ctx, low)
	require.NoError(t, err)

	next, err := repo.Save(ctx, Born("next", 2010, time.July, 7))
	require.NoError(t, err)
	assert.Greater(t, next.ID, highest, "a deleted id was handed out again")
}
