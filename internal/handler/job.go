package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/bennyz/qarax/api/v1"
	"github.com/bennyz/qarax/internal/service"
)

type JobHandler struct {
	*Handler
	jobService service.JobService
}

func NewJobHandler(handler *Handler, jobService service.JobService) *JobHandler {
	return &JobHandler{
		Handler:    handler,
		jobService: jobService,
	}
}

// Get godoc
// @Summary Get a job
// @Tags jobs
// @Produce json
// @Param id path string true "job id"
// @Success 200 {object} model.Job
// @Router /jobs/{id} [get]
func (h *JobHandler) Get(ctx *gin.Context) {
	job, err := h.jobService.Get(ctx, ctx.Param("id"))
	if err != nil {
		v1.HandleError(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, job)
}
