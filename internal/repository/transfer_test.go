package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bennyz/qarax/internal/model"
)

func newPendingTransfer(t *testing.T, repo *Repository) (TransferRepository, *model.Transfer) {
	t.Helper()
	transfers := NewTransferRepository(repo)
	transfer := &model.Transfer{
		Name:          "vmlinux",
		TransferType:  model.TransferTypeLocalCopy,
		Source:        "/srv/images/vmlinux",
		StoragePoolID: "pool-1",
		ObjectType:    model.StorageObjectTypeKernel,
	}
	require.NoError(t, transfers.Create(context.Background(), transfer))
	require.Equal(t, model.TransferStatusPending, transfer.Status)
	return transfers, transfer
}

func TestTransferRepository_Lifecycle(t *testing.T) {
	repo := newTestRepository(t)
	transfers, transfer := newPendingTransfer(t, repo)
	ctx := context.Background()

	total := int64(4096)
	require.NoError(t, transfers.MarkRunning(ctx, transfer.Id, &total))

	got, err := transfers.GetByID(ctx, transfer.Id)
	require.NoError(t, err)
	require.Equal(t, model.TransferStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)
	require.NotNil(t, got.TotalBytes)
	require.Equal(t, total, *got.TotalBytes)

	// a second start must not win
	require.ErrorIs(t, transfers.MarkRunning(ctx, transfer.Id, &total), ErrStaleTransition)

	require.NoError(t, transfers.UpdateProgress(ctx, transfer.Id, 1024))
	require.NoError(t, transfers.UpdateProgress(ctx, transfer.Id, 2048))
	// regressions are dropped silently
	require.NoError(t, transfers.UpdateProgress(ctx, transfer.Id, 512))

	got, err = transfers.GetByID(ctx, transfer.Id)
	require.NoError(t, err)
	require.Equal(t, int64(2048), got.TransferredBytes)

	require.NoError(t, transfers.MarkCompleted(ctx, transfer.Id, "object-1", total))
	got, err = transfers.GetByID(ctx, transfer.Id)
	require.NoError(t, err)
	require.Equal(t, model.TransferStatusCompleted, got.Status)
	require.NotNil(t, got.StorageObjectID)
	require.Equal(t, "object-1", *got.StorageObjectID)
	require.Equal(t, total, got.TransferredBytes)
	require.NotNil(t, got.CompletedAt)
}

func TestTransferRepository_TerminalIsImmutable(t *testing.T) {
	repo := newTestRepository(t)
	transfers, transfer := newPendingTransfer(t, repo)
	ctx := context.Background()

	require.NoError(t, transfers.MarkRunning(ctx, transfer.Id, nil))
	require.NoError(t, transfers.MarkCompleted(ctx, transfer.Id, "object-1", 100))

	require.ErrorIs(t, transfers.MarkFailed(ctx, transfer.Id, "late failure"), ErrStaleTransition)
	require.ErrorIs(t, transfers.MarkCompleted(ctx, transfer.Id, "object-2", 200), ErrStaleTransition)
	require.ErrorIs(t, transfers.MarkRunning(ctx, transfer.Id, nil), ErrStaleTransition)

	got, err := transfers.GetByID(ctx, transfer.Id)
	require.NoError(t, err)
	require.Equal(t, model.TransferStatusCompleted, got.Status)
	require.Equal(t, "object-1", *got.StorageObjectID)
}

func TestTransferRepository_MarkFailedFromPending(t *testing.T) {
	repo := newTestRepository(t)
	transfers, transfer := newPendingTransfer(t, repo)
	ctx := context.Background()

	require.NoError(t, transfers.MarkFailed(ctx, transfer.Id, "no such file"))

	got, err := transfers.GetByID(ctx, transfer.Id)
	require.NoError(t, err)
	require.Equal(t, model.TransferStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	require.Equal(t, "no such file", *got.ErrorMessage)
}

func TestTransferRepository_CompletedRequiresRunning(t *testing.T) {
	repo := newTestRepository(t)
	transfers, transfer := newPendingTransfer(t, repo)

	err := transfers.MarkCompleted(context.Background(), transfer.Id, "object-1", 10)
	require.ErrorIs(t, err, ErrStaleTransition)
}

func TestTransferRepository_CountActiveByPool(t *testing.T) {
	repo := newTestRepository(t)
	transfers := NewTransferRepository(repo)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, transfers.Create(ctx, &model.Transfer{
			Name: "t", TransferType: model.TransferTypeLocalCopy,
			Source: "/src", StoragePoolID: "pool-1", ObjectType: model.StorageObjectTypeDisk,
		}))
	}
	done := &model.Transfer{
		Name: "t", TransferType: model.TransferTypeLocalCopy,
		Source: "/src", StoragePoolID: "pool-1", ObjectType: model.StorageObjectTypeDisk,
	}
	require.NoError(t, transfers.Create(ctx, done))
	require.NoError(t, transfers.MarkFailed(ctx, done.Id, "x"))

	count, err := transfers.CountActiveByPool(ctx, "pool-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	count, err = transfers.CountActiveByPool(ctx, "other-pool")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestTransferRepository_ListRunningBefore(t *testing.T) {
	repo := newTestRepository(t)
	transfers, stale := newPendingTransfer(t, repo)
	ctx := context.Background()

	require.NoError(t, transfers.MarkRunning(ctx, stale.Id, nil))

	cutoff := time.Now().Add(time.Minute)
	stuck, err := transfers.ListRunningBefore(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	require.Equal(t, stale.Id, stuck[0].Id)

	none, err := transfers.ListRunningBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Empty(t, none)
}
