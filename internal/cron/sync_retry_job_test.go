package cron

import (
	"context"
	"errors"
	"testing"
)

type fakeSyncProcessor struct {
	limit     int
	processed int
	err       error
}

func (f *fakeSyncProcessor) ProcessDue(_ context.Context, limit int) (int, error) {
	f.limit = limit
	return f.processed, f.err
}

func TestSyncRetryJobDrainsBatch(t *testing.T) {
	processor := &fakeSyncProcessor{processed: 3}
	job, err := NewSyncRetryJob(SyncRetryJobParams{Logger: testLogger(), Processor: processor})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if processor.limit != syncRetryBatch {
		t.Fatalf("expected default batch %d, got %d", syncRetryBatch, processor.limit)
	}
}

func TestSyncRetryJobPropagatesErrors(t *testing.T) {
	processor := &fakeSyncProcessor{err: errors.New("db down")}
	job, err := NewSyncRetryJob(SyncRetryJobParams{Logger: testLogger(), Processor: processor, Batch: 5})
	if err != nil {
		t.Fatalf("construct job: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if processor.limit != 5 {
		t.Fatalf("expected batch override 5, got %d", processor.limit)
	}
}
