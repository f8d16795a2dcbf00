package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bennyz/qarax/internal/model"
)

func newPendingJob(t *testing.T, repo *Repository) (JobRepository, *model.Job) {
	t.Helper()
	jobs := NewJobRepository(repo)
	job := &model.Job{JobType: model.JobTypeHostDeploy}
	require.NoError(t, jobs.Create(context.Background(), job))
	require.Equal(t, model.JobStatusPending, job.Status)
	return jobs, job
}

func TestJobRepository_Lifecycle(t *testing.T) {
	repo := newTestRepository(t)
	jobs, job := newPendingJob(t, repo)
	ctx := context.Background()

	require.NoError(t, jobs.MarkRunning(ctx, job.Id))
	require.ErrorIs(t, jobs.MarkRunning(ctx, job.Id), ErrStaleTransition)

	require.NoError(t, jobs.UpdateProgress(ctx, job.Id, 40))
	// lower than stored: dropped
	require.NoError(t, jobs.UpdateProgress(ctx, job.Id, 10))
	// out of range: clamped
	require.NoError(t, jobs.UpdateProgress(ctx, job.Id, 150))

	got, err := jobs.GetByID(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, 100, got.Progress)

	require.NoError(t, jobs.MarkCompleted(ctx, job.Id, model.JSONMap{"host_id": "h-1"}))
	got, err = jobs.GetByID(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, model.JobStatusCompleted, got.Status)
	require.Equal(t, 100, got.Progress)
	require.NotNil(t, got.CompletedAt)
	hostID, ok := got.Result.StringValue("host_id")
	require.True(t, ok)
	require.Equal(t, "h-1", hostID)
}

func TestJobRepository_ProgressMidpoint(t *testing.T) {
	repo := newTestRepository(t)
	jobs, job := newPendingJob(t, repo)
	ctx := context.Background()

	require.NoError(t, jobs.MarkRunning(ctx, job.Id))
	require.NoError(t, jobs.UpdateProgress(ctx, job.Id, 55))

	got, err := jobs.GetByID(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, 55, got.Progress)
}

func TestJobRepository_FailedIsTerminal(t *testing.T) {
	repo := newTestRepository(t)
	jobs, job := newPendingJob(t, repo)
	ctx := context.Background()

	require.NoError(t, jobs.MarkFailed(ctx, job.Id, "ssh: connection refused"))

	require.ErrorIs(t, jobs.MarkCompleted(ctx, job.Id, nil), ErrStaleTransition)
	require.ErrorIs(t, jobs.MarkRunning(ctx, job.Id), ErrStaleTransition)

	got, err := jobs.GetByID(ctx, job.Id)
	require.NoError(t, err)
	require.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.Error)
	require.Equal(t, "ssh: connection refused", *got.Error)
}
