// Package sqlite provides a SQLite-backed implementation of the
// storage.StudentRepository interface using Go's database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. It is the default backend; PostgreSQL is the alternative.
//
// DATES
// ─────
// date_of_birth is stored as YYYY-MM-DD text. SQLite's own date
// functions understand that form, so the birth-year aggregate runs
// inside the database with strftime('%Y', ...). Years outside 1–9999
// have no such form and are refused by Save.
//
// The blank import below registers the "sqlite3" driver with
// database/sql; nothing from it is called directly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aanand-mishra/student-management/internal/config"
	"github.com/aanand-mishra/student-management/internal/storage"
	"github.com/aanand-mishra/student-management/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	_ "github.com/mattn/go-sqlite3"
)

// ─────────────────────────────────────────────────────────────────────────────
// SQL — every statement the repository runs, in one place.
// ─────────────────────────────────────────────────────────────────────────────

const (
	// Schema:
	//   id            — integer primary key; AUTOINCREMENT never reuses an
	//                   id, even after the highest row is deleted
	//   name, email   — descriptive text
	//   date_of_birth — YYYY-MM-DD
	sqlCreateTable = `
		CREATE TABLE IF NOT EXISTS students (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			name          TEXT    NOT NULL,
			email         TEXT    NOT NULL,
			date_of_birth TEXT    NOT NULL
		)`

	sqlInsert = `INSERT INTO students (name, email, date_of_birth) VALUES (?, ?, ?)`

	// Keyed upsert: the row is replaced in place, so its id never moves.
	sqlUpsert = `
		INSERT INTO students (id, name, email, date_of_birth) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name          = excluded.name,
			email         = excluded.email,
			date_of_birth = excluded.date_of_birth`

	sqlFindByID = `SELECT id, name, email, date_of_birth FROM students WHERE id = ? LIMIT 1`

	sqlFindAll = `SELECT id, name, email, date_of_birth FROM students ORDER BY id`

	sqlDeleteByID = `DELETE FROM students WHERE id = ?`

	sqlCount = `SELECT COUNT(*) FROM students`

	sqlCountByYear = `
		SELECT CAST(strftime('%Y', date_of_birth) AS INTEGER) AS year, COUNT(*)
		FROM   students
		GROUP  BY year
		ORDER  BY year`
)

// SQLite is the concrete implementation of storage.StudentRepository.
// It holds a *sql.DB which is a connection pool managed by database/sql.
// A single *sql.DB is safe for concurrent use by multiple goroutines.
//
// queryTimeout bounds each statement when the caller's context has no
// deadline of its own.
type SQLite struct {
	Db           *sql.DB
	queryTimeout time.Duration
}

// New opens the SQLite database at cfg.Path, creates the students table
// if it does not already exist, and returns a ready-to-use *SQLite.
//
// sql.Open does NOT open a real connection yet — it only validates the
// driver name. The CREATE TABLE below is the first real round trip, so a
// bad path fails here rather than on the first command.
//
// CREATE TABLE IF NOT EXISTS is idempotent: safe to run on every start.
func New(cfg config.Storage) (*SQLite, error) {
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if _, err := db.Exec(sqlCreateTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	return &SQLite{Db: db, queryTimeout: cfg.QueryTimeout}, nil
}

// Close closes the connection pool.
func (s *SQLite) Close() error {
	return s.Db.Close()
}

// FindByID fetches exactly one student row matched by primary key.
func (s *SQLite) FindByID(ctx context.Context, id int) (*types.Student, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	student, err := scanStudent(s.Db.QueryRowContext(ctx, sqlFindByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("FindByID: scan: %w", err)
	}

	return &student, nil
}

// Save inserts a new student (ID zero) or upserts by ID.
//
// The date is checked before anything is written: a row whose date
// cannot be parsed back would break FindAll and the year aggregate for
// every other row in the table.
func (s *SQLite) Save(ctx context.Context, student types.Student) (types.Student, error) {
	if err := storage.CheckDateOfBirth(student.DateOfBirth); err != nil {
		return types.Student{}, fmt.Errorf("Save: %w", err)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	dob := student.DateOfBirth.Format(types.DateLayout)

	if student.ID == 0 {
		result, err := s.Db.ExecContext(ctx, sqlInsert, student.Name, student.Email, dob)
		if err != nil {
			return types.Student{}, fmt.Errorf("Save: insert: %w", err)
		}

		lastID, err := result.LastInsertId()
		if err != nil {
			return types.Student{}, fmt.Errorf("Save: last insert id: %w", err)
		}
		student.ID = int(lastID)
	} else {
		if _, err := s.Db.ExecContext(ctx, sqlUpsert, student.ID, student.Name, student.Email, dob); err != nil {
			return types.Student{}, fmt.Errorf("Save: upsert: %w", err)
		}
	}

	// Return the value as stored: the date is truncated to a calendar day.
	student.DateOfBirth = truncateDate(student.DateOfBirth)
	return student, nil
}

// Delete removes the row referenced by student.ID.
func (s *SQLite) Delete(ctx context.Context, student types.Student) (bool, error) {
	return s.DeleteByID(ctx, student.ID)
}

// DeleteByID removes a student row by primary key and reports whether a
// row was removed.
func (s *SQLite) DeleteByID(ctx context.Context, id int) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.Db.ExecContext(ctx, sqlDeleteByID, id)
	if err != nil {
		return false, fmt.Errorf("DeleteByID: exec: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteByID: rows affected: %w", err)
	}

	return affected > 0, nil
}

// FindAll returns all student rows ordered by id.
func (s *SQLite) FindAll(ctx context.Context) ([]types.Student, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.Db.QueryContext(ctx, sqlFindAll)
	if err != nil {
		return nil, fmt.Errorf("FindAll: query: %w", err)
	}
	defer rows.Close()

	students := make([]types.Student, 0)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("FindAll: scan row: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FindAll: rows iteration: %w", err)
	}

	return students, nil
}

// Count returns the number of student rows.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var n int64
	if err := s.Db.QueryRowContext(ctx, sqlCount).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: scan: %w", err)
	}
	return n, nil
}

// FindNbrStudentByYear counts students per birth year inside SQLite.
func (s *SQLite) FindNbrStudentByYear(ctx context.Context) ([]types.YearCount, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.Db.QueryContext(ctx, sqlCountByYear)
	if err != nil {
		return nil, fmt.Errorf("FindNbrStudentByYear: query: %w", err)
	}
	defer rows.Close()

	counts := make([]types.YearCount, 0)
	for rows.Next() {
		var yc types.YearCount
		if err := rows.Scan(&yc.Year, &yc.Count); err != nil {
			return nil, fmt.Errorf("FindNbrStudentByYear: scan row: %w", err)
		}
		counts = append(counts, yc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("FindNbrStudentByYear: rows iteration: %w", err)
	}

	return counts, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows, so one function
// reads a student out of either.
type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (types.Student, error) {
	var (
		student types.Student
		dob     string
	)
	// Scan order must match the SELECT column order.
	if err := row.Scan(
		&student.ID,    // id
		&student.Name,  // name
		&student.Email, // email
		&dob,           // date_of_birth, parsed below
	); err != nil {
		return types.Student{}, err
	}

	t, err := time.Parse(types.DateLayout, dob)
	if err != nil {
		return types.Student{}, fmt.Errorf("parse date_of_birth %q: %w", dob, err)
	}
	student.DateOfBirth = t

	return student, nil
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// withTimeout applies the configured query timeout unless the caller
// already set a deadline.
func (s *SQLite) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}
