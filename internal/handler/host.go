package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/service"
)

type HostHandler struct {
	*Handler
	hostService service.HostService
}

func NewHostHandler(handler *Handler, hostService service.HostService) *HostHandler {
	return &HostHandler{
		Handler:     handler,
		hostService: hostService,
	}
}

// Register godoc
// @Summary Register a compute host
// @Description Registering the same (address, port) twice returns the existing host id
// @Tags hosts
// @Accept json
// @Produce json
// @Param request body v1.NewHost true "params"
// @Success 201 {string} string "host id"
// @Router /hosts [post]
func (h *HostHandler) Register(ctx *gin.Context) {
	req := new(v1.NewHost)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusUnprocessableEntity, v1.Unprocessablef("invalid host body: %v", err))
		return
	}

	id, err := h.hostService.Register(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).Error("hostService.Register error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusCreated, id)
}

// List godoc
// @Summary List hosts
// @Tags hosts
// @Produce json
// @Success 200 {array} model.Host
// @Router /hosts [get]
func (h *HostHandler) List(ctx *gin.Context) {
	hosts, err := h.hostService.List(ctx)
	if err != nil {
		h.logger.WithContext(ctx).Error("hostService.List error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, hosts)
}

// Get godoc
// @Summary Get a host
// @Tags hosts
// @Produce json
// @Param id path string true "host id"
// @Success 200 {object} model.Host
// @Router /hosts/{id} [get]
func (h *HostHandler) Get(ctx *gin.Context) {
	host, err := h.hostService.Get(ctx, ctx.Param("id"))
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, host)
}

// Update godoc
// @Summary Patch a host's status
// @Tags hosts
// @Accept json
// @Param id path string true "host id"
// @Param request body v1.UpdateHostRequest true "params"
// @Success 204
// @Router /hosts/{id} [patch]
func (h *HostHandler) Update(ctx *gin.Context) {
	req := new(v1.UpdateHostRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusUnprocessableEntity, v1.Unprocessablef("invalid host patch: %v", err))
		return
	}
	if err := h.hostService.SetStatus(ctx, ctx.Param("id"), req.Status); err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Deploy godoc
// @Summary Deploy the node-agent image onto a host
// @Description Runs asynchronously; returns the id of the tracking job
// @Tags hosts
// @Accept json
// @Produce json
// @Param id path string true "host id"
// @Param request body v1.DeployHostRequest true "params"
// @Success 202 {string} string "job id"
// @Router /hosts/{id}/deploy [post]
func (h *HostHandler) Deploy(ctx *gin.Context) {
	req := new(v1.DeployHostRequest)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusUnprocessableEntity, v1.Unprocessablef("invalid deploy body: %v", err))
		return
	}
	jobID, err := h.hostService.Deploy(ctx, ctx.Param("id"), req)
	if err != nil {
		h.logger.WithContext(ctx).Error("hostService.Deploy error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusAccepted, jobID)
}

// Init godoc
// @Summary Initialize a host
// @Description Contacts the host agent, records its versions and marks the host up
// @Tags hosts
// @Produce json
// @Param id path string true "host id"
// @Success 200 {object} model.Host
// @Router /hosts/{id}/init [post]
func (h *HostHandler) Init(ctx *gin.Context) {
	host, err := h.hostService.Init(ctx, ctx.Param("id"))
	if err != nil {
		h.logger.WithContext(ctx).Error("hostService.Init error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, host)
}

// Delete godoc
// @Summary Delete a host
// @Tags hosts
// @Param id path string true "host id"
// @Success 204
// @Router /hosts/{id} [delete]
func (h *HostHandler) Delete(ctx *gin.Context) {
	if err := h.hostService.Delete(ctx, ctx.Param("id")); err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}
