package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the rebuild every night at 03:00 Lima time
const DefaultSchedule = "0 3 * * *"

// Reconsolidator rebuilds stale folder consolidations
type Reconsolidator interface {
	ReconsolidateStale(ctx context.Context, caseID string, force bool) (int, error)
}

// StartScheduler registers the re-consolidation job and starts the cron runner.
// The caller stops the returned scheduler on shutdown.
func StartScheduler(schedule string, r Reconsolidator) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	loc, err := time.LoadLocation("America/Lima")
	if err != nil {
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	if _, err := c.AddFunc(schedule, func() {
		log.Println("[CRON] Ejecutando la reconsolidación de carpetas...")
		if _, err := RunReconsolidation(context.Background(), r); err != nil {
			log.Printf("[CRON] %v", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule reconsolidation %q: %w", schedule, err)
	}

	c.Start()
	log.Printf("[CRON] Planificador de tareas iniciado (%s)", schedule)
	return c, nil
}

// RunReconsolidation rebuilds every stale folder of every case
func RunReconsolidation(ctx context.Context, r Reconsolidator) (int, error) {
	start := time.Now()
	log.Println("[JOB] Starting folder reconsolidation")

	rebuilt, err := r.ReconsolidateStale(ctx, "", false)
	if err != nil {
		return rebuilt, fmt.Errorf("failed to reconsolidate folders: %w", err)
	}

	log.Printf("[JOB] Reconsolidated %d folders in %s", rebuilt, time.Since(start).Round(time.Millisecond))
	return rebuilt, nil
}
