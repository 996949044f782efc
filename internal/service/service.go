// Package service exposes the narrow student API used by callers and
// hides which storage backend sits underneath.
package service

import (
	"context"
	"log/slog"

	"github.com/aanand-mishra/student-management/internal/storage"
	"github.com/aanand-mishra/student-management/internal/types"
)

// StudentService is the facade over the student repository.
type StudentService interface {
	Save(ctx context.Context, student types.Student) (types.Student, error)
	Delete(ctx context.Context, id int) (bool, error)
	FindByID(ctx context.Context, id int) (*types.Student, error)
	FindAll(ctx context.Context) ([]types.Student, error)
	CountStudents(ctx context.Context) (int64, error)
	FindNbrStudentByYear(ctx context.Context) ([]types.YearCount, error)
}

// Students implements StudentService by delegating to a repository.
// It keeps no state between calls.
type Students struct {
	repo storage.StudentRepository
	log  *slog.Logger
}

var _ StudentService = (*Students)(nil)

// New returns a service backed by repo. A nil logger falls back to
// slog.Default().
func New(repo storage.StudentRepository, log *slog.Logger) *Students {
	if log == nil {
		log = slog.Default()
	}
	return &Students{repo: repo, log: log}
}

// Save persists the student as given; storage errors are returned as-is.
func (s *Students) Save(ctx context.Context, student types.Student) (types.Student, error) {
	saved, err := s.repo.Save(ctx, student)
	if err != nil {
		return types.Student{}, err
	}

	s.log.Debug("student saved", slog.Int("id", saved.ID))
	return saved, nil
}

// Delete removes the student with the given id in one store operation.
// It returns true only if a row was actually removed, so concurrent
// deletes of the same id report true at most once.
func (s *Students) Delete(ctx context.Context, id int) (bool, error) {
	removed, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return false, err
	}

	s.log.Debug("student delete", slog.Int("id", id), slog.Bool("removed", removed))
	return removed, nil
}

// FindByID returns the student or nil when absent.
func (s *Students) FindByID(ctx context.Context, id int) (*types.Student, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Students) FindAll(ctx context.Context) ([]types.Student, error) {
	return s.repo.FindAll(ctx)
}

func (s *Students) CountStudents(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// FindNbrStudentByYear returns (year, count) pairs computed by the store.
func (s *Students) FindNbrStudentByYear(ctx context.Context) ([]types.YearCount, error) {
	return s.repo.FindNbrStudentByYear(ctx)
}
