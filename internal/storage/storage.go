// Package storage defines the StudentRepository interface — a contract
// that any database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// The service layer should not know or care which database it is
// talking to. By depending only on this interface:
//
//   - Switching databases = implement the interface for the new DB,
//     set storage.driver in the config. Zero service changes.
//
//   - Writing tests = pass a fake that satisfies the interface.
//     No real database needed for unit tests.
//
// Every backend is checked against the same behaviour by the
// storagetest package.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aanand-mishra/student-management/internal/types"
)

// ErrDateOutOfRange is returned by Save when DateOfBirth cannot be
// stored as a four-digit YYYY-MM-DD date.
var ErrDateOutOfRange = errors.New("date of birth out of range")

// Year bounds for DateOfBirth. Above MaxYear there is no four-digit text
// form for SQLite to parse or group again; PostgreSQL has no year 0.
const (
	MinYear = 1
	MaxYear = 9999
)

// StudentRepository is the database contract.
// Any concrete type that implements ALL of these methods satisfies this
// interface implicitly — Go has no "implements" keyword.
type StudentRepository interface {
	// FindByID fetches a single student by primary key.
	// Returns (nil, nil) when no student has that id: not-found is an
	// absent result, never an error.
	FindByID(ctx context.Context, id int) (*types.Student, error)

	// Save inserts the student when its ID is zero and returns it with the
	// generated ID; otherwise it inserts or updates the row keyed by ID.
	// A DateOfBirth outside [MinYear, MaxYear] is rejected with
	// ErrDateOutOfRange before anything is written.
	Save(ctx context.Context, student types.Student) (types.Student, error)

	// Delete removes the row referenced by student.ID.
	Delete(ctx context.Context, student types.Student) (bool, error)

	// DeleteByID removes a student in a single statement. It reports
	// whether a row was actually removed; a missing id is not an error.
	DeleteByID(ctx context.Context, id int) (bool, error)

	// FindAll returns every student ordered by id.
	// Returns an empty slice (not nil) if there are no students.
	FindAll(ctx context.Context) ([]types.Student, error)

	// Count returns the number of persisted students.
	Count(ctx context.Context) (int64, error)

	// FindNbrStudentByYear groups students by calendar year of birth and
	// counts each group, ordered by year. The counts sum to Count.
	FindNbrStudentByYear(ctx context.Context) ([]types.YearCount, error)

	// Close releases the underlying connection pool.
	Close() error
}

// CheckDateOfBirth reports ErrDateOutOfRange for a date whose year falls
// outside [MinYear, MaxYear]. Backends call it at the top of Save.
func CheckDateOfBirth(t time.Time) error {
	if y := t.Year(); y < MinYear || y > MaxYear {
		return fmt.Errorf("%w: year %d not in [%d, %d]", ErrDateOutOfRange, y, MinYear, MaxYear)
	}
	return nil
}
