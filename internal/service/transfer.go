package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/model"
	"github.com/bennyz/qarax/internal/repository"
	"github.com/bennyz/qarax/pkg/worker"
)

const transferChunkSize = 1 << 20 // 1 MiB

type TransferService interface {
	Submit(ctx context.Context, poolID string, req *v1.NewTransfer) (*model.Transfer, error)
	Get(ctx context.Context, poolID, id string) (*model.Transfer, error)
	ListByPool(ctx context.Context, poolID string) ([]*model.Transfer, error)
	FailStale(ctx context.Context, horizon time.Duration)
}

type transferService struct {
	*Service
	transferRepo repository.TransferRepository
	poolRepo     repository.StoragePoolRepository
	objectRepo   repository.StorageObjectRepository
	pool         *worker.Pool
	httpClient   *http.Client
}

func NewTransferService(
	service *Service,
	transferRepo repository.TransferRepository,
	poolRepo repository.StoragePoolRepository,
	objectRepo repository.StorageObjectRepository,
	pool *worker.Pool,
) TransferService {
	return &transferService{
		Service:      service,
		transferRepo: transferRepo,
		poolRepo:     poolRepo,
		objectRepo:   objectRepo,
		pool:         pool,
		httpClient:   &http.Client{},
	}
}

// Submit validates the request, records the transfer as pending and queues
// its execution. The response reflects the pending record; callers poll.
func (s *transferService) Submit(ctx context.Context, poolID string, req *v1.NewTransfer) (*model.Transfer, error) {
	pool, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, v1.ErrStoragePoolNotFound
	}
	if !model.ValidStorageObjectType(req.ObjectType) {
		return nil, v1.Unprocessablef("invalid object type: %s", req.ObjectType)
	}
	poolPath, ok := pool.Path()
	if !ok {
		return nil, v1.Unprocessablef("storage pool %s has no path in its config", poolID)
	}

	transferType, err := inferTransferType(req.Source)
	if err != nil {
		return nil, err
	}

	transfer := &model.Transfer{
		Name:          req.Name,
		TransferType:  transferType,
		Source:        req.Source,
		StoragePoolID: poolID,
		ObjectType:    model.StorageObjectType(req.ObjectType),
		Status:        model.TransferStatusPending,
	}
	if err := s.transferRepo.Create(ctx, transfer); err != nil {
		return nil, err
	}

	transferID := transfer.Id
	if err := s.pool.SubmitDetached(func(ctx context.Context) {
		s.execute(ctx, transferID, poolPath)
	}); err != nil {
		if markErr := s.transferRepo.MarkFailed(ctx, transferID, fmt.Sprintf("scheduling transfer: %v", err)); markErr != nil {
			s.logger.Error("marking transfer failed", zap.Error(markErr))
		}
	}
	return s.transferRepo.GetByID(ctx, transferID)
}

// inferTransferType derives the transfer type from the source shape:
// http(s) URLs download, absolute paths copy locally.
func inferTransferType(source string) (model.TransferType, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		if _, err := url.ParseRequestURI(source); err != nil {
			return "", v1.Unprocessablef("malformed download URL: %s", source)
		}
		return model.TransferTypeDownload, nil
	}
	if filepath.IsAbs(source) {
		return model.TransferTypeLocalCopy, nil
	}
	return "", v1.Unprocessablef("source must be an absolute path or an http(s) URL: %s", source)
}

func (s *transferService) Get(ctx context.Context, poolID, id string) (*model.Transfer, error) {
	transfer, err := s.transferRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if transfer == nil || transfer.StoragePoolID != poolID {
		return nil, v1.ErrTransferNotFound
	}
	return transfer, nil
}

func (s *transferService) ListByPool(ctx context.Context, poolID string) ([]*model.Transfer, error) {
	pool, err := s.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, v1.ErrStoragePoolNotFound
	}
	return s.transferRepo.ListByPool(ctx, poolID)
}

// execute streams the source into the pool. Progress is persisted per
// chunk; only the terminal commit (object creation + completed) runs in a
// transaction, so a long copy never holds a database lock.
func (s *transferService) execute(ctx context.Context, transferID, poolPath string) {
	logger := s.logger.With(zap.String("transfer_id", transferID))

	transfer, err := s.transferRepo.GetByID(ctx, transferID)
	if err != nil || transfer == nil {
		logger.Error("loading transfer for execution", zap.Error(err))
		return
	}

	src, totalBytes, err := s.openSource(ctx, transfer)
	if err != nil {
		logger.Error("opening transfer source", zap.Error(err))
		s.fail(ctx, transferID, err.Error())
		return
	}
	defer src.Close()

	if err := s.transferRepo.MarkRunning(ctx, transferID, totalBytes); err != nil {
		logger.Warn("transfer no longer pending, skipping", zap.Error(err))
		return
	}

	destPath := filepath.Join(poolPath, transfer.Name)
	// Distinct staging path per execution keeps concurrent transfers into
	// the same pool from clobbering each other mid-copy.
	suffix, err := s.sid.GenString()
	if err != nil {
		s.fail(ctx, transferID, fmt.Sprintf("allocating staging name: %v", err))
		return
	}
	stagingPath := fmt.Sprintf("%s.%s.part", destPath, suffix)

	written, err := s.copyToStaging(ctx, src, stagingPath, transferID)
	if err != nil {
		if removeErr := os.Remove(stagingPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("removing staging file", zap.Error(removeErr))
		}
		s.fail(ctx, transferID, err.Error())
		return
	}

	if err := os.Rename(stagingPath, destPath); err != nil {
		if removeErr := os.Remove(stagingPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("removing staging file", zap.Error(removeErr))
		}
		s.fail(ctx, transferID, fmt.Sprintf("finalizing artifact: %v", err))
		return
	}

	// Object creation and transfer completion commit together: a transfer
	// is never completed without its object, and vice versa.
	err = s.tm.Transaction(ctx, func(ctx context.Context) error {
		object := &model.StorageObject{
			Name:          transfer.Name,
			StoragePoolID: transfer.StoragePoolID,
			ObjectType:    transfer.ObjectType,
			SizeBytes:     written,
			Config:        model.JSONMap{"path": destPath},
		}
		if err := s.objectRepo.Create(ctx, object); err != nil {
			return err
		}
		return s.transferRepo.MarkCompleted(ctx, transferID, object.Id, written)
	})
	if err != nil {
		logger.Error("committing transfer completion", zap.Error(err))
		if removeErr := os.Remove(destPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("removing artifact after failed commit", zap.Error(removeErr))
		}
		s.fail(ctx, transferID, fmt.Sprintf("committing completion: %v", err))
		return
	}
	logger.Info("transfer completed", zap.Int64("bytes", written))
}

func (s *transferService) openSource(ctx context.Context, transfer *model.Transfer) (io.ReadCloser, *int64, error) {
	switch transfer.TransferType {
	case model.TransferTypeLocalCopy:
		f, err := os.Open(transfer.Source)
		if err != nil {
			return nil, nil, fmt.Errorf("opening source file: %w", err)
		}
		var total *int64
		if info, err := f.Stat(); err == nil {
			size := info.Size()
			total = &size
		}
		return f, total, nil
	case model.TransferTypeDownload:
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, transfer.Source, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("building download request: %w", err)
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, nil, fmt.Errorf("downloading source: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, nil, fmt.Errorf("downloading source: unexpected status %d", resp.StatusCode)
		}
		var total *int64
		if resp.ContentLength > 0 {
			size := resp.ContentLength
			total = &size
		}
		return resp.Body, total, nil
	default:
		return nil, nil, fmt.Errorf("unknown transfer type: %s", transfer.TransferType)
	}
}

func (s *transferService) copyToStaging(ctx context.Context, src io.Reader, stagingPath, transferID string) (int64, error) {
	dst, err := os.OpenFile(stagingPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("creating staging file: %w", err)
	}
	defer dst.Close()

	var written int64
	buf := make([]byte, transferChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("transfer interrupted: %w", err)
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, fmt.Errorf("writing artifact: %w", writeErr)
			}
			written += int64(n)
			if err := s.transferRepo.UpdateProgress(ctx, transferID, written); err != nil {
				s.logger.Warn("updating transfer progress", zap.Error(err))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return written, fmt.Errorf("reading source: %w", readErr)
		}
	}
	if err := dst.Sync(); err != nil {
		return written, fmt.Errorf("flushing artifact: %w", err)
	}
	return written, nil
}

func (s *transferService) fail(ctx context.Context, transferID, reason string) {
	if err := s.transferRepo.MarkFailed(ctx, transferID, reason); err != nil {
		s.logger.Error("marking transfer failed",
			zap.String("transfer_id", transferID), zap.Error(err))
	}
}

// FailStale marks running transfers older than the horizon as failed. A
// worker that dies mid-copy otherwise leaves its transfer running forever.
func (s *transferService) FailStale(ctx context.Context, horizon time.Duration) {
	cutoff := time.Now().Add(-horizon)
	stale, err := s.transferRepo.ListRunningBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("listing stale transfers", zap.Error(err))
		return
	}
	for _, t := range stale {
		s.logger.Warn("failing stale transfer",
			zap.String("transfer_id", t.Id),
			zap.Timep("started_at", t.StartedAt))
		s.fail(ctx, t.Id, fmt.Sprintf("transfer did not finish within %s", horizon))
	}
}
