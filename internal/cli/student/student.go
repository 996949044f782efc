// Package student contains the command handlers for the Student resource.
//
// Each handler is built by a factory that receives its dependencies and
// returns a Command closing over them:
//
//	commands := map[string]student.Command{
//		"list": student.List(svc), // List(svc) runs once at startup
//	}
//
// The returned Command runs on every invocation.
package student

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/aanand-mishra/student-management/internal/service"
	"github.com/aanand-mishra/student-management/internal/types"
	"github.com/aanand-mishra/student-management/internal/utils/response"
)

// Command runs one student operation with its arguments and writes the
// JSON result to w.
type Command func(ctx context.Context, args []string, w io.Writer) error

// ErrUsage marks argument errors, as opposed to storage failures.
var ErrUsage = errors.New("usage")

// Save handles: save [--id N] --name S --email S --dob YYYY-MM-DD
//
// Without --id the student is inserted and receives a new id. With --id
// the record with that id is created or replaced. Prints the stored
// student.
func Save(svc service.StudentService) Command {
	return func(ctx context.Context, args []string, w io.Writer) error {
		fs := flag.NewFlagSet("save", flag.ContinueOnError)
		fs.SetOutput(io.Discard)

		id := fs.Int("id", 0, "student id; omit to insert")
		name := fs.String("name", "", "student name")
		email := fs.String("email", "", "student email")
		dob := fs.String("dob", "", "date of birth, YYYY-MM-DD")

		if err := fs.Parse(args); err != nil {
			return fmt.Errorf("%w: save: %v", ErrUsage, err)
		}

		var birth time.Time
		if *dob != "" {
			t, err := time.Parse(types.DateLayout, *dob)
			if err != nil {
				return fmt.Errorf("%w: save: --dob must be YYYY-MM-DD: %v", ErrUsage, err)
			}
			birth = t
		}

		slog.Info("saving a student", slog.Int("id", *id))

		saved, err := svc.Save(ctx, types.Student{
			ID:          *id,
			Name:        *name,
			Email:       *email,
			DateOfBirth: birth,
		})
		if err != nil {
			return err
		}

		slog.Info("student saved", slog.Int("id", saved.ID))
		return response.WriteJSON(w, saved)
	}
}

// Delete handles: delete ID
//
// Output: { "id": 7, "deleted": true }. deleted is false when no student
// had that id; that is not an error.
func Delete(svc service.StudentService) Command {
	return func(ctx context.Context, args []string, w io.Writer) error {
		id, err := parseID("delete", args)
		if err != nil {
			return err
		}

		slog.Info("deleting a student", slog.Int("id", id))

		removed, err := svc.Delete(ctx, id)
		if err != nil {
			return err
		}

		return response.WriteJSON(w, map[string]any{"id": id, "deleted": removed})
	}
}

// Get handles: get ID
func Get(svc service.StudentService) Command {
	return func(ctx context.Context, args []string, w io.Writer) error {
		id, err := parseID("get", args)
		if err != nil {
			return err
		}

		student, err := svc.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if student == nil {
			return fmt.Errorf("no student found with id: %d", id)
		}

		return response.WriteJSON(w, student)
	}
}

// List handles: list
//
// Prints [] (not null) when there are no students.
func List(svc service.StudentService) Command {
	return func(ctx context.Context, args []string, w io.Writer) error {
		if err := noArgs("list", args); err != nil {
			return err
		}

		students, err := svc.FindAll(ctx)
		if err != nil {
			return err
		}
		if students == nil {
			students = []types.Student{}
		}

		return response.WriteJSON(w, students)
	}
}

// Count handles: count
func Count(svc service.StudentService) Command {
	return func(ctx context.Context, args []string, w io.Writer) error {
		if err := noArgs("count", args); err != nil {
			return err
		}

		n, err := svc.CountStudents(ctx)
		if err != nil {
			return err
		}

		return response.WriteJSON(w, map[string]int64{"count": n})
	}
}

// ByYear handles: by-year
//
// Output: [ { "year": 2000, "count": 2 }, ... ]
func ByYear(svc service.StudentService) Command {
	return func(ctx context.Context, args []string, w io.Writer) error {
		if err := noArgs("by-year", args); err != nil {
			return err
		}

		counts, err := svc.FindNbrStudentByYear(ctx)
		if err != nil {
			return err
		}
		if counts == nil {
			counts = []types.YearCount{}
		}

		return response.WriteJSON(w, counts)
	}
}

func parseID(cmd string, args []string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: %s ID", ErrUsage, cmd)
	}

	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %s: invalid id %q: must be an integer", ErrUsage, cmd, args[0])
	}
	return id, nil
}

func noArgs(cmd string, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("%w: %s takes no arguments", ErrUsage, cmd)
	}
	return nil
}
