package worker

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/acme/catalog-console/internal/catalog"
	"github.com/acme/catalog-console/internal/config"
	"github.com/acme/catalog-console/internal/events"
	"github.com/acme/catalog-console/internal/jobs"
	"github.com/acme/catalog-console/internal/progress"
)

// CatalogStore is the product persistence the runner needs
type CatalogStore interface {
	UpsertBatch(ctx context.Context, rows []catalog.ImportRow) (int, error)
	CountProducts(ctx context.Context) (int64, error)
	DeleteBatch(ctx context.Context, limit int) (int64, error)
}

// RunnerConfig holds runner dependencies and policy
type RunnerConfig struct {
	Logger         *slog.Logger
	Progress       progress.Store
	Catalog        CatalogStore
	Publisher      events.Publisher
	RowErrorPolicy string
	BatchSize      int
}

// Runner executes one job at a time: it owns the job's progress record from
// the processing transition through to a terminal state
type Runner struct {
	logger    *slog.Logger
	progress  progress.Store
	catalog   CatalogStore
	publisher events.Publisher
	rowPolicy string
	batchSize int
}

// NewRunner creates a job runner
func NewRunner(cfg *RunnerConfig) *Runner {
	rowPolicy := cfg.RowErrorPolicy
	if rowPolicy == "" {
		rowPolicy = config.RowErrorContinue
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Runner{
		logger:    cfg.Logger,
		progress:  cfg.Progress,
		catalog:   cfg.Catalog,
		publisher: cfg.Publisher,
		rowPolicy: rowPolicy,
		batchSize: batchSize,
	}
}

const (
	terminalWriteAttempts = 3
	terminalWriteDelay    = 100 * time.Millisecond
)

// Run processes one queued job message. A nil return means the message is
// settled and should be acked. An error is returned only while the record is
// still queued, where a redelivery can retry cleanly. Once the job leaves
// queued a redelivered message is skipped, so from that point the runner
// always settles the record in place instead of asking for a requeue.
func (r *Runner) Run(ctx context.Context, msg *jobs.Message) error {
	rec, err := r.progress.Get(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			r.logger.Warn("Job message without progress record, skipping",
				slog.String("job_id", msg.JobID),
			)
			return nil
		}
		return fmt.Errorf("failed to load job progress: %w", err)
	}

	// A redelivered message for a job that already left queued is a
	// duplicate; the first delivery owns the record.
	if rec.Status != progress.StatusQueued {
		r.logger.Warn("Job already picked up, skipping redelivery",
			slog.String("job_id", msg.JobID),
			slog.String("status", rec.Status),
		)
		return nil
	}

	if err := r.progress.Update(ctx, msg.JobID, progress.Patch{
		Status: progress.String(progress.StatusProcessing),
	}); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	switch msg.Kind {
	case jobs.KindImport:
		r.runImport(ctx, msg.JobID, msg.FilePath)
	case jobs.KindBulkDelete:
		r.runBulkDelete(ctx, msg.JobID)
	default:
		r.fail(ctx, msg.JobID, fmt.Sprintf("unknown job kind %q", msg.Kind))
	}
	return nil
}

// settle writes a terminal status, retrying so a transient store error cannot
// strand the job in processing. ErrInvalidTransition means the record already
// settled, which a late failure racing the happy path may legitimately hit.
func (r *Runner) settle(ctx context.Context, jobID string, patch progress.Patch) {
	var err error
	for attempt := 1; attempt <= terminalWriteAttempts; attempt++ {
		err = r.progress.Update(ctx, jobID, patch)
		if err == nil || errors.Is(err, progress.ErrInvalidTransition) {
			return
		}
		if attempt < terminalWriteAttempts {
			time.Sleep(terminalWriteDelay << uint(attempt-1))
		}
	}
	r.logger.Error("Failed to record terminal job status",
		slog.String("job_id", jobID),
		slog.Any("error", err),
	)
}

// bump merges a counter update. Counter writes are best-effort; a missed one
// only leaves pollers a batch behind until the next write lands.
func (r *Runner) bump(ctx context.Context, jobID string, patch progress.Patch) {
	if err := r.progress.Update(ctx, jobID, patch); err != nil {
		r.logger.Warn("Failed to update job progress",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
	}
}

// fail moves the job to failed with a reason
func (r *Runner) fail(ctx context.Context, jobID, reason string) {
	r.logger.Error("Job failed",
		slog.String("job_id", jobID),
		slog.String("reason", reason),
	)

	r.settle(ctx, jobID, progress.Patch{
		Status: progress.String(progress.StatusFailed),
		Reason: progress.String(reason),
	})
}

// finish moves the job to complete, or empty when nothing was processed
func (r *Runner) finish(ctx context.Context, jobID string, processed int64) {
	status := progress.StatusComplete
	if processed == 0 {
		status = progress.StatusEmpty
	}

	r.settle(ctx, jobID, progress.Patch{
		Status:    progress.String(status),
		Processed: progress.Int64(processed),
	})

	r.logger.Info("Job finished",
		slog.String("job_id", jobID),
		slog.String("status", status),
		slog.Int64("processed", processed),
	)
}

// runImport streams a spooled CSV upload into the product table. The file is
// read twice: once to count data rows for the progress total, then again to
// upsert valid rows in batches. The spool file is removed when done.
func (r *Runner) runImport(ctx context.Context, jobID, filePath string) {
	defer os.Remove(filePath)

	total, err := countDataRows(filePath)
	if err != nil {
		r.fail(ctx, jobID, err.Error())
		return
	}

	r.bump(ctx, jobID, progress.Patch{
		Total: progress.Int64(total),
	})

	f, err := os.Open(filePath)
	if err != nil {
		r.fail(ctx, jobID, fmt.Sprintf("failed to open upload: %v", err))
		return
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		// No header, no rows.
		r.finish(ctx, jobID, 0)
		r.publishImportCompleted(jobID, 0)
		return
	}
	if err != nil {
		r.fail(ctx, jobID, fmt.Sprintf("failed to read upload: %v", err))
		return
	}

	cols, err := mapHeader(header)
	if err != nil {
		r.fail(ctx, jobID, err.Error())
		return
	}

	var (
		batch    []catalog.ImportRow
		imported int64
		rowNum   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := r.catalog.UpsertBatch(ctx, batch)
		if err != nil {
			return err
		}
		batch = batch[:0]
		imported += int64(n)
		r.bump(ctx, jobID, progress.Patch{
			Processed: progress.Int64(imported),
		})
		return nil
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		if err != nil {
			if r.rowPolicy == config.RowErrorAbort {
				r.fail(ctx, jobID, fmt.Sprintf("row %d: %v", rowNum, err))
				return
			}
			continue
		}

		row, err := cols.parseRow(record)
		if err != nil {
			if r.rowPolicy == config.RowErrorAbort {
				r.fail(ctx, jobID, fmt.Sprintf("row %d: %v", rowNum, err))
				return
			}
			r.logger.Debug("Skipping invalid row",
				slog.String("job_id", jobID),
				slog.Int64("row", rowNum),
				slog.String("error", err.Error()),
			)
			continue
		}

		batch = append(batch, row)
		if len(batch) >= r.batchSize {
			if err := flush(); err != nil {
				r.fail(ctx, jobID, fmt.Sprintf("failed to write batch: %v", err))
				return
			}
		}
	}

	if err := flush(); err != nil {
		r.fail(ctx, jobID, fmt.Sprintf("failed to write batch: %v", err))
		return
	}

	r.finish(ctx, jobID, imported)
	r.publishImportCompleted(jobID, imported)
}

// publishImportCompleted announces a finished import to webhook subscribers
func (r *Runner) publishImportCompleted(jobID string, imported int64) {
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(events.Event{
		Type: events.ImportCompleted,
		Payload: map[string]any{
			"upload_id": jobID,
			"imported":  imported,
		},
	})
}

// runBulkDelete removes every product in batches, updating the counter after
// each batch so pollers see it move
func (r *Runner) runBulkDelete(ctx context.Context, jobID string) {
	total, err := r.catalog.CountProducts(ctx)
	if err != nil {
		r.fail(ctx, jobID, fmt.Sprintf("failed to count products: %v", err))
		return
	}

	if total == 0 {
		r.finish(ctx, jobID, 0)
		return
	}

	r.bump(ctx, jobID, progress.Patch{
		Total: progress.Int64(total),
	})

	var deleted int64
	for {
		n, err := r.catalog.DeleteBatch(ctx, r.batchSize)
		if err != nil {
			r.fail(ctx, jobID, fmt.Sprintf("failed to delete batch: %v", err))
			return
		}
		if n == 0 {
			break
		}
		deleted += n
		r.bump(ctx, jobID, progress.Patch{
			Processed: progress.Int64(deleted),
		})
	}

	r.finish(ctx, jobID, deleted)
}
