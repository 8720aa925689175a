package cron

import (
	"context"
	"fmt"

	"github.com/roomhive/allotment-backend/pkg/logger"
)

const syncRetryBatch = 100

type syncProcessor interface {
	ProcessDue(ctx context.Context, limit int) (int, error)
}

// SyncRetryJobParams configure the sync retry drain.
type SyncRetryJobParams struct {
	Logger    *logger.Logger
	Processor syncProcessor
	Batch     int
}

// NewSyncRetryJob builds the job that drains due channel-manager pushes.
func NewSyncRetryJob(params SyncRetryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("sync processor required")
	}
	batch := params.Batch
	if batch <= 0 {
		batch = syncRetryBatch
	}
	return &syncRetryJob{
		logg:      params.Logger,
		processor: params.Processor,
		batch:     batch,
	}, nil
}

type syncRetryJob struct {
	logg      *logger.Logger
	processor syncProcessor
	batch     int
}

func (j *syncRetryJob) Name() string { return "sync-retry" }

func (j *syncRetryJob) Run(ctx context.Context) error {
	processed, err := j.processor.ProcessDue(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("process due sync attempts: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{"processed": processed})
	j.logg.Info(logCtx, "sync retry drain complete")
	return nil
}
