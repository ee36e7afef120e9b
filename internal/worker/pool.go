package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/acme/catalog-console/internal/jobs"
)

// spawnWorkerPool starts the configured number of processing goroutines
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the processing loop of one pool goroutine: take a job, run
// it under the job timeout, then settle the delivery
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg, ok := <-w.jobsChan:
			if !ok {
				return
			}

			w.logger.Info("Worker received job",
				slog.String("worker_name", workerName),
				slog.String("job_id", msg.JobID),
				slog.String("kind", msg.Kind),
			)

			w.processJob(ctx, msg)
		}
	}
}

// processJob runs one job and acks or nacks its delivery. The runner settles
// job outcomes in the progress store itself; an error from Run means the job
// was never claimed, so the message is safe to requeue for another attempt.
func (w *Worker) processJob(ctx context.Context, msg *jobs.Message) {
	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	err := w.runner.Run(jobCtx, msg)

	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
			slog.String("job_id", msg.JobID),
		)
		return
	}

	if err != nil {
		w.logger.Error("Job processing failed",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		if nackErr := channel.Nack(msg.DeliveryTag, false, true); nackErr != nil {
			w.logger.Error("Failed to NACK message",
				slog.String("job_id", msg.JobID),
				slog.String("error", nackErr.Error()),
			)
		}
		return
	}

	if ackErr := channel.Ack(msg.DeliveryTag, false); ackErr != nil {
		w.logger.Error("Failed to ACK message",
			slog.String("job_id", msg.JobID),
			slog.String("error", ackErr.Error()),
		)
	}
}
