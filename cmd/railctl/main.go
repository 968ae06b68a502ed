// Command railctl wires together configuration, input parsing, logging,
// and the core Simulation, and sets the process exit code.
//
// Usage:
//
//	railctl -intersections intersections.txt -trains trains.txt [-log out.log] [-log-level info]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/railsim/railsim/internal/config"
	"github.com/railsim/railsim/internal/ingest"
	"github.com/railsim/railsim/internal/logging"
	"github.com/railsim/railsim/internal/railsim"
)

// Exit codes.
const (
	exitOK             = 0
	exitConfigError    = 1
	exitInputError     = 2
	exitSimulationFail = 3
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// Honor container CPU quotas the way a production service would,
	// before spawning any goroutines - the teacher's root go.mod lists
	// go.uber.org/automaxprocs as a dependency for exactly this reason.
	undo, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {}))
	defer undo()
	if err != nil {
		// non-fatal: falling back to the runtime default GOMAXPROCS is fine.
		_ = err
	}

	fs := flag.NewFlagSet("railctl", flag.ContinueOnError)
	intersectionsPath := fs.String("intersections", "", "path to the intersections input file")
	trainsPath := fs.String("trains", "", "path to the trains input file")
	logPath := fs.String("log", "", "path to append log output to (default: stdout)")
	logLevel := fs.String("log-level", "info", "log level: trace, debug, info, warn, error")
	detectorIntervalMS := fs.Int("detector-interval-ms", 2, "deadlock detector poll interval, in milliseconds")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railctl: %v\n", err)
		return exitConfigError
	}

	cfg := config.Config{
		IntersectionsPath: *intersectionsPath,
		TrainsPath:        *trainsPath,
		LogPath:           *logPath,
		DetectorInterval:  time.Duration(*detectorIntervalMS) * time.Millisecond,
	}
	cfg.SetLogLevel(level)

	cfg, err = config.FromEnv(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railctl: %v\n", err)
		return exitConfigError
	}
	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "railctl: %v\n", err)
		return exitConfigError
	}

	logWriter := os.Stdout
	if cfg.LogPath != "" {
		f, err := os.OpenFile(cfg.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "railctl: opening log file: %v\n", err)
			return exitConfigError
		}
		defer f.Close()
		sink := logging.New(f, cfg.LogLevel)
		return runSimulation(cfg, sink)
	}

	sink := logging.New(logWriter, cfg.LogLevel)
	return runSimulation(cfg, sink)
}

func runSimulation(cfg config.Config, sink *logging.Sink) int {
	interFile, err := os.Open(cfg.IntersectionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railctl: %v\n", err)
		return exitInputError
	}
	defer interFile.Close()

	trainsFile, err := os.Open(cfg.TrainsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railctl: %v\n", err)
		return exitInputError
	}
	defer trainsFile.Close()

	intersections, err := ingest.Intersections(interFile, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railctl: reading intersections: %v\n", err)
		return exitInputError
	}
	trains, err := ingest.Trains(trainsFile, sink)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railctl: reading trains: %v\n", err)
		return exitInputError
	}

	model, err := railsim.NewModel(intersections, trains)
	if err != nil {
		fmt.Fprintf(os.Stderr, "railctl: %v\n", err)
		return exitConfigError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim := railsim.NewSimulation(model)
	report, err := sim.Run(ctx, railsim.RunConfig{
		DetectorInterval: cfg.DetectorInterval,
		Traversal:        func(int, int) uint64 { return cfg.TraversalTicks },
		Sink:             sink,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "railctl: simulation failed: %v\n", err)
		return exitSimulationFail
	}

	fmt.Printf("railctl: completed: grants=%d waits=%d preemptions=%d completions=%d denied=%d\n",
		report.Stats.Grants, report.Stats.Waits, report.Stats.Preemptions, report.Stats.Completions, report.Stats.Denied)
	return exitOK
}
