// main is the entry point of the students command.
//
// STARTUP SEQUENCE:
//  1. Load configuration from a YAML file
//  2. Initialise the logger
//  3. Open the configured storage backend
//  4. Build the service and the command table
//  5. Run the requested command, cancelled on Ctrl+C / SIGTERM
//
// RUNNING:
//
//	go run ./cmd/students --config=config/local.yaml list
//	go run ./cmd/students --config=config/local.yaml save --name Rakesh --email r@test.com --dob 2000-04-12
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/aanand-mishra/student-management/internal/cli/student"
	"github.com/aanand-mishra/student-management/internal/config"
	"github.com/aanand-mishra/student-management/internal/service"
	"github.com/aanand-mishra/student-management/internal/storage/open"
	"github.com/aanand-mishra/student-management/internal/utils/response"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration YAML file")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg := config.MustLoad(*configPath)

	// Logs go to stderr; stdout carries command output only.
	log := setupLogger(cfg.Env, os.Stderr)
	slog.SetDefault(log)

	if err := run(cfg, log, args, os.Stdout); err != nil {
		_ = response.WriteJSON(os.Stderr, response.GeneralError(err))
		if errors.Is(err, student.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// run opens the configured storage, dispatches args[0] to its command,
// and writes the command's output to stdout.
func run(cfg *config.Config, log *slog.Logger, args []string, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := open.Repository(ctx, cfg.Storage)
	if err != nil {
		log.Error("failed to initialise storage", slog.String("error", err.Error()))
		return err
	}
	defer repo.Close()

	log.Debug("storage initialised", slog.String("driver", cfg.Storage.Driver))

	svc := service.New(repo, log)

	// Command table: name → handler. Each factory runs once, here.
	commands := map[string]student.Command{
		"save":    student.Save(svc),
		"delete":  student.Delete(svc),
		"get":     student.Get(svc),
		"list":    student.List(svc),
		"count":   student.Count(svc),
		"by-year": student.ByYear(svc),
	}

	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q (want one of: %s)",
			student.ErrUsage, args[0], strings.Join(commandNames(commands), ", "))
	}

	if err := cmd(ctx, args[1:], stdout); err != nil {
		if !errors.Is(err, student.ErrUsage) {
			log.Error("command failed",
				slog.String("command", args[0]),
				slog.String("error", err.Error()))
		}
		return err
	}

	return nil
}

func commandNames(commands map[string]student.Command) []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: students [--config path] <command> [args]

commands:
  save [--id N] --name S --email S --dob YYYY-MM-DD
  delete ID
  get ID
  list
  count
  by-year

The config path may also be given with CONFIG_PATH.
`)
}

// setupLogger returns a *slog.Logger configured for the given environment.
//
// Development (dev): human-readable text output at DEBUG level.
// Production (prod): machine-readable JSON output at INFO level.
func setupLogger(env string, w io.Writer) *slog.Logger {
	switch env {
	case "prod":
		return slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	case "staging":
		return slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		return slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	}
}
