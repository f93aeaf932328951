package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/finstream/bankfeed/internal/jobs"
	"github.com/finstream/bankfeed/internal/pipeline"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ImportStatementJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", jobID, want)
	return nil
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, 1, store)
	defer queue.Close()

	handler := func(ctx context.Context, job *jobs.ImportStatementJob) (*pipeline.Stats, error) {
		return &pipeline.Stats{Total: 3, Imported: 3}, nil
	}
	if err := queue.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.ImportStatementJob{FileName: "statement.csv", Data: []byte("x")}
	if err := queue.PublishImportStatement(context.Background(), job); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if job.JobID == "" {
		t.Fatal("publish did not assign a job ID")
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.Stats == nil || done.Stats.Imported != 3 {
		t.Errorf("completed job stats = %+v, want 3 imported", done.Stats)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("timestamps not recorded")
	}
}

func TestQueue_FailedJobRecordsError(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, 1, store)
	defer queue.Close()

	handler := func(ctx context.Context, job *jobs.ImportStatementJob) (*pipeline.Stats, error) {
		return nil, errors.New("unsupported statement format")
	}
	if err := queue.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.ImportStatementJob{FileName: "notes.docx"}
	if err := queue.PublishImportStatement(context.Background(), job); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.Error != "unsupported statement format" {
		t.Errorf("error = %q", failed.Error)
	}
}

func TestQueue_WorkerDoesNotMutatePublishedJob(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, 1, store)
	defer queue.Close()

	handler := func(ctx context.Context, job *jobs.ImportStatementJob) (*pipeline.Stats, error) {
		return &pipeline.Stats{Total: 1, Imported: 1}, nil
	}
	if err := queue.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	job := &jobs.ImportStatementJob{FileName: "statement.csv"}
	if err := queue.PublishImportStatement(context.Background(), job); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)

	// The caller's value stays as published; progress is observable only
	// through the job store.
	if job.Status != jobs.JobStatusPending {
		t.Errorf("published job status = %s, want pending", job.Status)
	}
	if job.StartedAt != nil || job.CompletedAt != nil || job.Stats != nil {
		t.Error("worker wrote into the published job value")
	}
}

func TestQueue_PublishAfterCloseFails(t *testing.T) {
	queue := NewQueue(1, 1, NewStore())
	if err := queue.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := queue.PublishImportStatement(context.Background(), &jobs.ImportStatementJob{}); err == nil {
		t.Fatal("publish on a closed queue did not fail")
	}
}

func TestStore_ListJobsFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Now()
	seed := []*jobs.ImportStatementJob{
		{JobID: "j1", AccountID: "a1", Status: jobs.JobStatusCompleted, CreatedAt: base.Add(-2 * time.Minute)},
		{JobID: "j2", AccountID: "a1", Status: jobs.JobStatusFailed, CreatedAt: base.Add(-time.Minute)},
		{JobID: "j3", AccountID: "a2", Status: jobs.JobStatusCompleted, CreatedAt: base},
	}
	for _, job := range seed {
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}
	}

	byAccount, err := store.ListJobs(ctx, jobs.JobFilter{AccountID: "a1"})
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(byAccount) != 2 {
		t.Fatalf("account filter returned %d jobs, want 2", len(byAccount))
	}
	if byAccount[0].JobID != "j2" {
		t.Errorf("jobs not newest-first: got %s", byAccount[0].JobID)
	}

	byStatus, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted, Limit: 1})
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].JobID != "j3" {
		t.Errorf("status filter with limit = %+v", byStatus)
	}
}
