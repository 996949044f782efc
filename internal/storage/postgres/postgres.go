// Package postgres implements storage.StudentRepository on PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aanand-mishra/student-management/internal/config"
	"github.com/aanand-mishra/student-management/internal/storage"
	"github.com/aanand-mishra/student-management/internal/types"
)

const (
	sqlCreateTable = `
		CREATE TABLE IF NOT EXISTS students (
			id            INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL,
			date_of_birth DATE NOT NULL
		)`

	sqlInsert = `
		INSERT INTO students (name, email, date_of_birth)
		VALUES ($1, $2, $3)
		RETURNING id`

	sqlUpsert = `
		INSERT INTO students (id, name, email, date_of_birth)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name          = EXCLUDED.name,
			email         = EXCLUDED.email,
			date_of_birth = EXCLUDED.date_of_birth`

	// Explicit ids bypass the identity sequence. The sequence is only ever
	// moved forward, past the explicit id, so generated ids neither collide
	// with it nor reuse ids of deleted rows. students_id_seq is the name
	// PostgreSQL gives the identity sequence of students.id.
	sqlLockSequence = `SELECT pg_advisory_xact_lock(hashtext('students_id_seq'))`

	sqlAdvanceSequence = `
		SELECT setval('students_id_seq', $1)
		FROM   students_id_seq
		WHERE  $1 >= CASE WHEN is_called THEN last_value + 1 ELSE last_value END`

	sqlFindByID = `
		SELECT id, name, email, date_of_birth
		FROM   students
		WHERE  id = $1
		LIMIT  1`

	sqlFindAll = `
		SELECT id, name, email, date_of_birth
		FROM   students
		ORDER  BY id`

	sqlDeleteByID = `DELETE FROM students WHERE id = $1`

	sqlCount = `SELECT COUNT(*) FROM students`

	sqlCountByYear = `
		SELECT EXTRACT(YEAR FROM date_of_birth)::int AS year, COUNT(*)
		FROM   students
		GROUP  BY year
		ORDER  BY year`
)

// Postgres is the PostgreSQL implementation of storage.StudentRepository.
type Postgres struct {
	pool         *pgxpool.Pool
	queryTimeout time.Duration
}

// New connects to cfg.DSN, verifies the connection, and creates the
// students table if it does not already exist.
func New(ctx context.Context, cfg config.Storage) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse dsn: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, sqlCreateTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: create table: %w", err)
	}

	return &Postgres{pool: pool, queryTimeout: cfg.QueryTimeout}, nil
}

// Pool returns the underlying connection pool.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes every pooled connection.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// FindByID returns the student with the given id, or nil if none exists.
func (p *Postgres) FindByID(ctx context.Context, id int) (*types.Student, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var s types.Student
	err := p.pool.QueryRow(ctx, sqlFindByID, id).Scan(&s.ID, &s.Name, &s.Email, &s.DateOfBirth)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("FindByID: scan: %w", err)
	}

	return &s, nil
}

// Save inserts (ID zero) or upserts by ID.
//
// An upsert and the sequence advance run in one transaction under an
// advisory lock, so two explicit-id saves cannot interleave and leave the
// sequence behind the larger id.
func (p *Postgres) Save(ctx context.Context, student types.Student) (types.Student, error) {
	if err := storage.CheckDateOfBirth(student.DateOfBirth); err != nil {
		return types.Student{}, fmt.Errorf("Save: %w", err)
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	y, m, d := student.DateOfBirth.Date()
	student.DateOfBirth = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	if student.ID == 0 {
		err := p.pool.QueryRow(ctx, sqlInsert, student.Name, student.Email, student.DateOfBirth).Scan(&student.ID)
		if err != nil {
			return types.Student{}, fmt.Errorf("Save: insert: %w", err)
		}
		return student, nil
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sqlLockSequence); err != nil {
			return fmt.Errorf("lock id sequence: %w", err)
		}
		if _, err := tx.Exec(ctx, sqlUpsert, student.ID, student.Name, student.Email, student.DateOfBirth); err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		if _, err := tx.Exec(ctx, sqlAdvanceSequence, int64(student.ID)); err != nil {
			return fmt.Errorf("advance id sequence: %w", err)
		}
		return nil
	})
	if err != nil {
		return types.Student{}, fmt.Errorf("Save: %w", err)
	}

	return student, nil
}

// Delete removes the row referenced by student.ID.
func (p *Postgres) Delete(ctx context.Context, student types.Student) (bool, error) {
	return p.DeleteByID(ctx, student.ID)
}

// DeleteByID removes a student and reports whether a row was removed.
func (p *Postgres) DeleteByID(ctx context.Context, id int) (bool, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	tag, err := p.pool.Exec(ctx, sqlDeleteByID, id)
	if err != nil {
		return false, fmt.Errorf("DeleteByID: exec: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// FindAll returns every student ordered by id.
func (p *Postgres) FindAll(ctx context.Context) ([]types.Student, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	rows, err := p.pool.Query(ctx, sqlFindAll)
	if err != nil {
		return nil, fmt.Errorf("FindAll: query: %w", err)
	}

	students, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.Student, error) {
		var s types.Student
		err := row.Scan(&s.ID, &s.Name, &s.Email, &s.DateOfBirth)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("FindAll: collect rows: %w", err)
	}

	// CollectRows returns nil when there are no rows.
	if students == nil {
		students = make([]types.Student, 0)
	}
	return students, nil
}

// Count returns the number of students.
func (p *Postgres) Count(ctx context.Context) (int64, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	var n int64
	if err := p.pool.QueryRow(ctx, sqlCount).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: scan: %w", err)
	}
	return n, nil
}

// FindNbrStudentByYear counts students per birth year inside PostgreSQL.
func (p *Postgres) FindNbrStudentByYear(ctx context.Context) ([]types.YearCount, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	rows, err := p.pool.Query(ctx, sqlCountByYear)
	if err != nil {
		return nil, fmt.Errorf("FindNbrStudentByYear: query: %w", err)
	}

	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (types.YearCount, error) {
		var yc types.YearCount
		err := row.Scan(&yc.Year, &yc.Count)
		return yc, err
	})
	if err != nil {
		return nil, fmt.Errorf("FindNbrStudentByYear: collect rows: %w", err)
	}

	if counts == nil {
		counts = make([]types.YearCount, 0)
	}
	return counts, nil
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.queryTimeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.queryTimeout)
}
