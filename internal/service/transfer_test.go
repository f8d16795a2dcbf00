package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/model"
)

func (e *testEnv) createLocalPool(t *testing.T, path string) *model.StoragePool {
	t.Helper()
	pool := &model.StoragePool{
		Name:     "pool-" + filepath.Base(path),
		PoolType: model.StoragePoolTypeLocal,
		Config:   model.JSONMap{"path": path},
	}
	require.NoError(t, e.poolRepo.Create(context.Background(), pool))
	return pool
}

func (e *testEnv) waitForTransfer(t *testing.T, poolID, id string, status model.TransferStatus) *model.Transfer {
	t.Helper()
	var got *model.Transfer
	require.Eventually(t, func() bool {
		transfer, err := e.transfers.Get(context.Background(), poolID, id)
		if err != nil {
			return false
		}
		got = transfer
		return transfer.Status == status
	}, 5*time.Second, 10*time.Millisecond)
	return got
}

func TestInferTransferType(t *testing.T) {
	tests := []struct {
		source  string
		want    model.TransferType
		wantErr bool
	}{
		{source: "https://example.com/vmlinux", want: model.TransferTypeDownload},
		{source: "http://mirror.local/initrd.img", want: model.TransferTypeDownload},
		{source: "/srv/images/vmlinux", want: model.TransferTypeLocalCopy},
		{source: "images/vmlinux", wantErr: true},
		{source: "ftp://example.com/vmlinux", wantErr: true},
	}
	for _, tt := range tests {
		got, err := inferTransferType(tt.source)
		if tt.wantErr {
			require.Error(t, err, tt.source)
			continue
		}
		require.NoError(t, err, tt.source)
		require.Equal(t, tt.want, got, tt.source)
	}
}

func TestTransferService_SubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.transfers.Submit(ctx, "no-such-pool", &v1.NewTransfer{
		Name: "k", Source: "/srv/vmlinux", ObjectType: "kernel",
	})
	require.ErrorIs(t, err, v1.ErrStoragePoolNotFound)

	pool := env.createLocalPool(t, t.TempDir())

	_, err = env.transfers.Submit(ctx, pool.Id, &v1.NewTransfer{
		Name: "k", Source: "/srv/vmlinux", ObjectType: "floppy",
	})
	require.Error(t, err)

	_, err = env.transfers.Submit(ctx, pool.Id, &v1.NewTransfer{
		Name: "k", Source: "relative/path", ObjectType: "kernel",
	})
	require.Error(t, err)

	// pool without a configured path cannot accept transfers
	pathless := &model.StoragePool{Name: "pathless", PoolType: model.StoragePoolTypeLocal}
	require.NoError(t, env.poolRepo.Create(ctx, pathless))
	_, err = env.transfers.Submit(ctx, pathless.Id, &v1.NewTransfer{
		Name: "k", Source: "/srv/vmlinux", ObjectType: "kernel",
	})
	require.Error(t, err)
}

func TestTransferService_LocalCopyCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	srcDir, destDir := t.TempDir(), t.TempDir()
	content := []byte("fake kernel image payload")
	srcPath := filepath.Join(srcDir, "vmlinux")
	require.NoError(t, os.WriteFile(srcPath, content, 0o644))

	pool := env.createLocalPool(t, destDir)

	transfer, err := env.transfers.Submit(ctx, pool.Id, &v1.NewTransfer{
		Name: "vmlinux", Source: srcPath, ObjectType: "kernel",
	})
	require.NoError(t, err)
	require.Equal(t, model.TransferTypeLocalCopy, transfer.TransferType)

	done := env.waitForTransfer(t, pool.Id, transfer.Id, model.TransferStatusCompleted)
	require.Equal(t, int64(len(content)), done.TransferredBytes)
	require.NotNil(t, done.StorageObjectID)

	object, err := env.objectRepo.GetByID(ctx, *done.StorageObjectID)
	require.NoError(t, err)
	require.NotNil(t, object)
	require.Equal(t, model.StorageObjectTypeKernel, object.ObjectType)
	require.Equal(t, int64(len(content)), object.SizeBytes)

	path, ok := object.Path()
	require.True(t, ok)
	require.Equal(t, filepath.Join(destDir, "vmlinux"), path)

	copied, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, copied)

	// no staging leftovers
	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestTransferService_DownloadCompletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	content := []byte("served initrd bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(content)
	}))
	defer srv.Close()

	destDir := t.TempDir()
	pool := env.createLocalPool(t, destDir)

	transfer, err := env.transfers.Submit(ctx, pool.Id, &v1.NewTransfer{
		Name: "initrd.img", Source: srv.URL + "/initrd.img", ObjectType: "initrd",
	})
	require.NoError(t, err)
	require.Equal(t, model.TransferTypeDownload, transfer.TransferType)

	done := env.waitForTransfer(t, pool.Id, transfer.Id, model.TransferStatusCompleted)
	require.Equal(t, int64(len(content)), done.TransferredBytes)

	copied, err := os.ReadFile(filepath.Join(destDir, "initrd.img"))
	require.NoError(t, err)
	require.Equal(t, content, copied)
}

func TestTransferService_MissingSourceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pool := env.createLocalPool(t, t.TempDir())

	transfer, err := env.transfers.Submit(ctx, pool.Id, &v1.NewTransfer{
		Name: "vmlinux", Source: "/does/not/exist", ObjectType: "kernel",
	})
	require.NoError(t, err)

	failed := env.waitForTransfer(t, pool.Id, transfer.Id, model.TransferStatusFailed)
	require.NotNil(t, failed.ErrorMessage)
	require.Nil(t, failed.StorageObjectID)
}

func TestTransferService_GetScopedToPool(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pool := env.createLocalPool(t, t.TempDir())

	transfer := &model.Transfer{
		Name: "t", TransferType: model.TransferTypeLocalCopy,
		Source: "/src", StoragePoolID: pool.Id, ObjectType: model.StorageObjectTypeDisk,
	}
	require.NoError(t, env.transferRepo.Create(ctx, transfer))

	_, err := env.transfers.Get(ctx, "other-pool", transfer.Id)
	require.ErrorIs(t, err, v1.ErrTransferNotFound)

	got, err := env.transfers.Get(ctx, pool.Id, transfer.Id)
	require.NoError(t, err)
	require.Equal(t, transfer.Id, got.Id)
}

func TestTransferService_FailStale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pool := env.createLocalPool(t, t.TempDir())

	transfer := &model.Transfer{
		Name: "stuck", TransferType: model.TransferTypeLocalCopy,
		Source: "/src", StoragePoolID: pool.Id, ObjectType: model.StorageObjectTypeDisk,
	}
	require.NoError(t, env.transferRepo.Create(ctx, transfer))
	require.NoError(t, env.transferRepo.MarkRunning(ctx, transfer.Id, nil))

	// age the transfer past the horizon
	staleStart := time.Now().Add(-2 * time.Hour)
	require.NoError(t, env.repo.DB(ctx).Model(&model.Transfer{}).
		Where("id = ?", transfer.Id).Update("started_at", staleStart).Error)

	env.transfers.FailStale(ctx, time.Hour)

	got, err := env.transfers.Get(ctx, pool.Id, transfer.Id)
	require.NoError(t, err)
	require.Equal(t, model.TransferStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	require.Contains(t, *got.ErrorMessage, fmt.Sprint(time.Hour))
}
