// Command statefork runs the state store across a real process boundary.
//
// In the default (supervisor) mode it spawns itself with --worker, pushes
// its state into the child, snapshots it back over the stdio pipe, and
// restarts the child with the captured snapshot. In --worker mode it serves
// the sync protocol on stdin/stdout until the supervisor hangs up.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/statefork/statefork/host"
	"github.com/statefork/statefork/procsync"
	"github.com/statefork/statefork/state"
)

func main() {
	var (
		configFile = pflag.String("config", "", "Path to JSONC config file")
		persistDir = pflag.String("persist-dir", "", "Durable snapshot directory (overrides config)")
		workerMode = pflag.Bool("worker", false, "Serve the sync protocol on stdin/stdout")
		verbose    = pflag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	pflag.Parse()

	cfg := host.DefaultConfig()
	if *configFile != "" {
		loaded, err := host.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if *persistDir != "" {
		cfg.Persist.Path = *persistDir
	}

	level := logLevel(cfg.LogLevel)
	if *verbose {
		level = slog.LevelDebug
	}
	// Protocol frames own stdout in worker mode; all logging goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	h, err := host.New(&cfg, host.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create state host: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := h.Restore(ctx); err != nil {
		log.Fatalf("Failed to restore persisted state: %v", err)
	}

	if *workerMode {
		if err := runWorker(ctx, h); err != nil && ctx.Err() == nil {
			log.Fatalf("Worker failed: %v", err)
		}
		return
	}

	if err := runSupervisor(ctx, h, logger); err != nil {
		log.Fatalf("Supervisor failed: %v", err)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runWorker serves the sync protocol over stdio. On interrupt it hands its
// state over to the supervisor before exiting.
func runWorker(ctx context.Context, h *host.Host) error {
	ch := procsync.NewPipeChannel(os.Stdin, os.Stdout)
	defer ch.Close()

	worker := h.Worker(ch)

	err := worker.Run(ctx)
	if ctx.Err() != nil {
		// Graceful shutdown: unprompted handoff, not awaited by the peer.
		if hErr := worker.Handoff(context.Background()); hErr != nil {
			return hErr
		}
		return nil
	}
	return err
}

// runSupervisor demonstrates a full worker lifecycle: seed state, push it
// into a child, write through the child, snapshot it out, restart the
// child, and load the snapshot into the replacement.
func runSupervisor(ctx context.Context, h *host.Host, logger *slog.Logger) error {
	polls := h.Fork("polls", state.WithDefaultPersist(true))
	polls.Set("open", int64(3))
	polls.Fork("detail").Set("last_voter", "alice")

	child, ch, err := spawnWorker(ctx)
	if err != nil {
		return err
	}
	sup := h.Attach(ch)

	if err := sup.SendLoad(ctx, h.Table().Snapshot()); err != nil {
		return err
	}

	snap, err := sup.Save(ctx)
	if err != nil {
		return err
	}
	logger.Info("captured worker state", slog.Int("keys", len(snap)))

	if err := ch.Close(); err != nil {
		logger.Warn("channel close", slog.Any("error", err))
	}
	if err := child.Wait(); err != nil {
		logger.Warn("worker exit", slog.Any("error", err))
	}

	// Restart: a fresh worker receives the captured snapshot.
	child, ch, err = spawnWorker(ctx)
	if err != nil {
		return err
	}
	sup = h.Attach(ch)

	if err := sup.SendLoad(ctx, snap); err != nil {
		return err
	}
	reloaded, err := sup.Save(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot survived restart: %d keys\n", len(reloaded))
	for key, val := range reloaded {
		fmt.Printf("  %s = %v\n", key, val)
	}
	fmt.Printf("Forks: %v\n", h.Forks())

	ch.Close()
	child.Wait()

	return h.Shutdown(ctx)
}

// spawnWorker starts this binary in --worker mode and wires a pipe channel
// to its stdio.
func spawnWorker(ctx context.Context) (*exec.Cmd, *procsync.PipeChannel, error) {
	child := exec.CommandContext(ctx, os.Args[0], "--worker")
	child.Stderr = os.Stderr

	stdin, err := child.StdinPipe()
	if err != nil {
		return nil, nil, err
	}
	stdout, err := child.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}

	if err := child.Start(); err != nil {
		return nil, nil, err
	}

	return child, procsync.NewPipeChannel(stdout, stdin), nil
}
