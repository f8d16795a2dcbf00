package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/service"
)

type StoragePoolHandler struct {
	*Handler
	poolService     service.StoragePoolService
	transferService service.TransferService
}

func NewStoragePoolHandler(
	handler *Handler,
	poolService service.StoragePoolService,
	transferService service.TransferService,
) *StoragePoolHandler {
	return &StoragePoolHandler{
		Handler:         handler,
		poolService:     poolService,
		transferService: transferService,
	}
}

// Create godoc
// @Summary Create a storage pool
// @Tags storage-pools
// @Accept json
// @Produce json
// @Param request body v1.NewStoragePool true "params"
// @Success 201 {string} string "pool id"
// @Router /storage-pools [post]
func (h *StoragePoolHandler) Create(ctx *gin.Context) {
	req := new(v1.NewStoragePool)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusUnprocessableEntity, v1.Unprocessablef("invalid pool body: %v", err))
		return
	}
	id, err := h.poolService.Create(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).Error("poolService.Create error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusCreated, id)
}

// List godoc
// @Summary List storage pools
// @Tags storage-pools
// @Produce json
// @Success 200 {array} model.StoragePool
// @Router /storage-pools [get]
func (h *StoragePoolHandler) List(ctx *gin.Context) {
	pools, err := h.poolService.List(ctx)
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, pools)
}

// Get godoc
// @Summary Get a storage pool
// @Tags storage-pools
// @Produce json
// @Param id path string true "pool id"
// @Success 200 {object} model.StoragePool
// @Router /storage-pools/{id} [get]
func (h *StoragePoolHandler) Get(ctx *gin.Context) {
	pool, err := h.poolService.Get(ctx, ctx.Param("pool_id"))
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, pool)
}

// Delete godoc
// @Summary Delete a storage pool
// @Description Refused while the pool owns objects or has transfers in flight
// @Tags storage-pools
// @Param id path string true "pool id"
// @Success 204
// @Router /storage-pools/{id} [delete]
func (h *StoragePoolHandler) Delete(ctx *gin.Context) {
	if err := h.poolService.Delete(ctx, ctx.Param("pool_id")); err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SubmitTransfer godoc
// @Summary Submit a transfer into a pool
// @Description Accepted immediately; execution is asynchronous, poll the transfer for progress
// @Tags transfers
// @Accept json
// @Produce json
// @Param pool_id path string true "pool id"
// @Param request body v1.NewTransfer true "params"
// @Success 202 {object} model.Transfer
// @Router /storage-pools/{pool_id}/transfers [post]
func (h *StoragePoolHandler) SubmitTransfer(ctx *gin.Context) {
	req := new(v1.NewTransfer)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusUnprocessableEntity, v1.Unprocessablef("invalid transfer body: %v", err))
		return
	}
	transfer, err := h.transferService.Submit(ctx, ctx.Param("pool_id"), req)
	if err != nil {
		h.logger.WithContext(ctx).Error("transferService.Submit error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusAccepted, transfer)
}

// ListTransfers godoc
// @Summary List a pool's transfers
// @Tags transfers
// @Produce json
// @Param pool_id path string true "pool id"
// @Success 200 {array} model.Transfer
// @Router /storage-pools/{pool_id}/transfers [get]
func (h *StoragePoolHandler) ListTransfers(ctx *gin.Context) {
	transfers, err := h.transferService.ListByPool(ctx, ctx.Param("pool_id"))
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, transfers)
}

// GetTransfer godoc
// @Summary Get a transfer
// @Tags transfers
// @Produce json
// @Param pool_id path string true "pool id"
// @Param id path string true "transfer id"
// @Success 200 {object} model.Transfer
// @Router /storage-pools/{pool_id}/transfers/{id} [get]
func (h *StoragePoolHandler) GetTransfer(ctx *gin.Context) {
	transfer, err := h.transferService.Get(ctx, ctx.Param("pool_id"), ctx.Param("id"))
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, transfer)
}
