package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/service"
)

type StorageObjectHandler struct {
	*Handler
	objectService service.StorageObjectService
}

func NewStorageObjectHandler(handler *Handler, objectService service.StorageObjectService) *StorageObjectHandler {
	return &StorageObjectHandler{
		Handler:       handler,
		objectService: objectService,
	}
}

// Create godoc
// @Summary Register an existing artifact as a storage object
// @Tags storage-objects
// @Accept json
// @Produce json
// @Param request body v1.NewStorageObject true "params"
// @Success 201 {string} string "object id"
// @Router /storage-objects [post]
func (h *StorageObjectHandler) Create(ctx *gin.Context) {
	req := new(v1.NewStorageObject)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusUnprocessableEntity, v1.Unprocessablef("invalid object body: %v", err))
		return
	}
	id, err := h.objectService.Create(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).Error("objectService.Create error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusCreated, id)
}

// List godoc
// @Summary List storage objects
// @Tags storage-objects
// @Produce json
// @Success 200 {array} model.StorageObject
// @Router /storage-objects [get]
func (h *StorageObjectHandler) List(ctx *gin.Context) {
	objects, err := h.objectService.List(ctx)
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, objects)
}

// Get godoc
// @Summary Get a storage object
// @Tags storage-objects
// @Produce json
// @Param id path string true "object id"
// @Success 200 {object} model.StorageObject
// @Router /storage-objects/{id} [get]
func (h *StorageObjectHandler) Get(ctx *gin.Context) {
	object, err := h.objectService.Get(ctx, ctx.Param("id"))
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, object)
}

// Delete godoc
// @Summary Delete a storage object
// @Tags storage-objects
// @Param id path string true "object id"
// @Success 204
// @Router /storage-objects/{id} [delete]
func (h *StorageObjectHandler) Delete(ctx *gin.Context) {
	if err := h.objectService.Delete(ctx, ctx.Param("id")); err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
