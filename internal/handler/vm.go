package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/service"
)

type VmHandler struct {
	*Handler
	vmService service.VmService
}

func NewVmHandler(handler *Handler, vmService service.VmService) *VmHandler {
	return &VmHandler{
		Handler:   handler,
		vmService: vmService,
	}
}

// Create godoc
// @Summary Create a VM
// @Description Allocates the VM in created status and assigns a host; the agent is only contacted on start
// @Tags vms
// @Accept json
// @Produce json
// @Param request body v1.NewVm true "params"
// @Success 201 {object} v1.CreateVmResponse
// @Router /vms [post]
func (h *VmHandler) Create(ctx *gin.Context) {
	req := new(v1.NewVm)
	if err := ctx.ShouldBindJSON(req); err != nil {
		v1.HandleError(ctx, http.StatusUnprocessableEntity, v1.Unprocessablef("invalid vm body: %v", err))
		return
	}
	resp, err := h.vmService.Create(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).Error("vmService.Create error", zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary List VMs
// @Tags vms
// @Produce json
// @Success 200 {array} model.Vm
// @Router /vms [get]
func (h *VmHandler) List(ctx *gin.Context) {
	vms, err := h.vmService.List(ctx)
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, vms)
}

// Get godoc
// @Summary Get a VM
// @Tags vms
// @Produce json
// @Param id path string true "vm id"
// @Success 200 {object} model.Vm
// @Router /vms/{id} [get]
func (h *VmHandler) Get(ctx *gin.Context) {
	vm, err := h.vmService.Get(ctx, ctx.Param("id"))
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, vm)
}

// Start godoc
// @Summary Start a VM
// @Tags vms
// @Param id path string true "vm id"
// @Success 204
// @Router /vms/{id}/start [post]
func (h *VmHandler) Start(ctx *gin.Context) {
	h.lifecycle(ctx, "start", h.vmService.Start)
}

// Pause godoc
// @Summary Pause a running VM
// @Tags vms
// @Param id path string true "vm id"
// @Success 204
// @Router /vms/{id}/pause [post]
func (h *VmHandler) Pause(ctx *gin.Context) {
	h.lifecycle(ctx, "pause", h.vmService.Pause)
}

// Resume godoc
// @Summary Resume a paused VM
// @Tags vms
// @Param id path string true "vm id"
// @Success 204
// @Router /vms/{id}/resume [post]
func (h *VmHandler) Resume(ctx *gin.Context) {
	h.lifecycle(ctx, "resume", h.vmService.Resume)
}

// Stop godoc
// @Summary Stop a VM
// @Tags vms
// @Param id path string true "vm id"
// @Success 204
// @Router /vms/{id}/stop [post]
func (h *VmHandler) Stop(ctx *gin.Context) {
	h.lifecycle(ctx, "stop", h.vmService.Stop)
}

func (h *VmHandler) lifecycle(ctx *gin.Context, action string, fn func(ctx context.Context, id string) error) {
	id := ctx.Param("id")
	if err := fn(ctx, id); err != nil {
		h.logger.WithContext(ctx).Error("vm lifecycle action failed",
			zap.String("action", action), zap.String("vm_id", id), zap.Error(err))
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Delete godoc
// @Summary Delete a VM
// @Description Rejected while the VM is running or paused; stop it first
// @Tags vms
// @Param id path string true "vm id"
// @Success 204
// @Router /vms/{id} [delete]
func (h *VmHandler) Delete(ctx *gin.Context) {
	if err := h.vmService.Delete(ctx, ctx.Param("id")); err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// Metrics godoc
// @Summary Get agent-reported VM metrics
// @Tags vms
// @Produce json
// @Param id path string true "vm id"
// @Success 200 {object} map[string]interface{}
// @Router /vms/{id}/metrics [get]
func (h *VmHandler) Metrics(ctx *gin.Context) {
	metrics, err := h.vmService.Metrics(ctx, ctx.Param("id"))
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, metrics)
}

// ConsoleLog godoc
// @Summary Get the tail of a VM's serial console log
// @Tags vms
// @Produce plain
// @Param id path string true "vm id"
// @Success 200 {string} string
// @Router /vms/{id}/console-log [get]
func (h *VmHandler) ConsoleLog(ctx *gin.Context) {
	logTail, err := h.vmService.ConsoleLog(ctx, ctx.Param("id"))
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.String(http.StatusOK, logTail)
}

// ConsoleWS godoc
// @Summary Interactive VM console over websocket
// @Description Proxies the websocket to the host agent's console stream
// @Tags vms
// @Param id path string true "vm id"
// @Router /vms/{id}/console/ws [get]
func (h *VmHandler) ConsoleWS(ctx *gin.Context) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	clientConn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		return
	}
	defer clientConn.Close()

	agentConn, err := h.vmService.DialConsole(ctx, ctx.Param("id"))
	if err != nil {
		_ = clientConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "console unavailable"))
		return
	}
	defer agentConn.Close()

	errCh := make(chan error, 2)
	proxy := func(src, dst *websocket.Conn) {
		for {
			mt, msg, err := src.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			if err := dst.WriteMessage(mt, msg); err != nil {
				errCh <- err
				return
			}
		}
	}

	go proxy(clientConn, agentConn)
	go proxy(agentConn, clientConn)

	<-errCh
}
