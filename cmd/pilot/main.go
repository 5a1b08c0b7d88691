package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"signalpilot/internal/cli"
	"signalpilot/internal/config"
	"signalpilot/internal/svc"

	// Import for side-effects: loads .env for local runs
	_ "signalpilot/internal/bootstrap/dotenv"
)

const shutdownTimeout = 15 * time.Second

var (
	configFile = flag.String("f", "etc/pilot.yaml", "path to the main config file")
	once       = flag.Bool("once", false, "run a single cycle and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Println("[main] Starting signal pilot...")

	appCfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("[main] Failed to load config %s: %v", *configFile, err)
	}

	log.Printf("[main] Configuration loaded:")
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	sc := svc.NewServiceContext(*appCfg)
	schedCfg := sc.SchedulerConfig
	log.Printf("  - Cycle interval: %s", schedCfg.CycleInterval)
	log.Printf("  - Cooldown window: %s", schedCfg.CooldownWindow)
	log.Printf("  - Max dispatches per cycle: %d", schedCfg.MaxPerCycle)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		result, err := sc.Scheduler.RunCycle(ctx)
		if err != nil {
			log.Fatalf("[main] Cycle failed: %v", err)
		}
		log.Printf("[main] Cycle complete: %d eligible of %d, %d dispatched",
			result.Eligible, result.SnapshotSize, result.Dispatched())
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- sc.Scheduler.RunLoop(ctx)
	}()

	log.Println("[main] Pilot started. Press Ctrl+C to stop.")

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("[main] Scheduler loop terminated: %v", err)
		}
		log.Println("[main] Scheduler loop exited")
		return
	case <-ctx.Done():
		log.Println("[main] Shutdown signal received, draining...")
	}

	// Drain: the current cycle settles its in-flight dispatches but starts
	// no new ones.
	sc.Scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[main] Scheduler loop exited with error: %v", err)
		} else {
			log.Println("[main] Drained cleanly")
		}
	case <-shutdownCtx.Done():
		log.Println("[main] Shutdown timeout exceeded, forcing exit")
	}

	log.Println("[main] Signal pilot stopped")
}
