package auditor

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
)

// TaskReconcile is the queue task name for a full aggregate sweep.
const TaskReconcile = "auditor:reconcile"

const auditQueue = "auditor"

// RunAsynq schedules and consumes the reconcile task through a Redis-backed
// asynq scheduler and worker. The task is enqueued uniquely per interval so
// overlapping service instances do not sweep concurrently. Blocks until ctx
// is canceled.
func RunAsynq(ctx context.Context, a *Auditor, redisAddr, redisPassword string, interval time.Duration) error {
	opt := asynq.RedisClientOpt{Addr: redisAddr, Password: redisPassword}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskReconcile, func(ctx context.Context, t *asynq.Task) error {
		corrected, err := a.ReconcileAll(ctx)
		if err != nil {
			return fmt.Errorf("reconcile sweep: %w", err)
		}
		if corrected > 0 {
			log.Printf("audit sweep corrected %d conversations", corrected)
		}
		return nil
	})

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues:      map[string]int{auditQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("asynq task failed type=%s: %v", task.Type(), err)
		}),
	})
	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := scheduler.Register(spec, asynq.NewTask(TaskReconcile, nil),
		asynq.Queue(auditQueue), asynq.Unique(interval)); err != nil {
		srv.Shutdown()
		return fmt.Errorf("register reconcile schedule: %w", err)
	}
	if err := scheduler.Start(); err != nil {
		srv.Shutdown()
		return fmt.Errorf("start asynq scheduler: %w", err)
	}

	log.Printf("auditor running via asynq interval=%s", interval)
	<-ctx.Done()
	scheduler.Shutdown()
	srv.Shutdown()
	return nil
}
