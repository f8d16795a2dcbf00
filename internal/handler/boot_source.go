package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/service"
)

type BootSourceHandler struct {
	*Handler
	bootSourceService service.BootSourceService
}

func NewBootSourceHandler(handler *Handler, bootSourceService service.BootSourceService) *BootSourceHandler {
	return &BootSourceHandler{
		Handler:           handler,
		bootSourceService: bootSourceService,
	}
}

// Create godoc
// @Summary Create a boot source
// @Description Bundles kernel/initrd storage objects with kernel parameters
// @Tags boot-sources
// @Accept json
// @Produce json
// @Param request body v1.NewBootSource true "params"
// @Success 201 {string} string "boot source id"
// @Router /boot-sources [post]
func (h *BootSourceHandler) Create(ctx *gin.Context) {
	req := new(v1.NewBootSource)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusUnprocessableEntity, v1.Unprocessablef("invalid boot source body: %v", err))
		return
	}
	id, err := h.bootSourceService.Create(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).Error("bootSourceService.Create error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusCreated, id)
}

// List godoc
// @Summary List boot sources
// @Tags boot-sources
// @Produce json
// @Success 200 {array} model.BootSource
// @Router /boot-sources [get]
func (h *BootSourceHandler) List(ctx *gin.Context) {
	bootSources, err := h.bootSourceService.List(ctx)
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, bootSources)
}

// Get godoc
// @Summary Get a boot source
// @Tags boot-sources
// @Produce json
// @Param id path string true "boot source id"
// @Success 200 {object} model.BootSource
// @Router /boot-sources/{id} [get]
func (h *BootSourceHandler) Get(ctx *gin.Context) {
	bootSource, err := h.bootSourceService.Get(ctx, ctx.Param("id"))
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, bootSource)
}

// Delete godoc
// @Summary Delete a boot source
// @Tags boot-sources
// @Param id path string true "boot source id"
// @Success 204
// @Router /boot-sources/{id} [delete]
func (h *BootSourceHandler) Delete(ctx *gin.Context) {
	if err := h.bootSourceService.Delete(ctx, ctx.Param("id")); err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
