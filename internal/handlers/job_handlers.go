package handlers

import (
	"net/http"

	"binledger/internal/common"
	"binledger/internal/jobs/background"

	"github.com/labstack/echo/v4"
)

// JobRunner is the part of the scheduler the HTTP layer drives
type JobRunner interface {
	RunNow(name string) (bool, error)
	GetJobStatus() []background.JobStatus
}

type JobHandlers struct {
	runner JobRunner
}

func NewJobHandlers(runner JobRunner) *JobHandlers {
	return &JobHandlers{runner: runner}
}

func (h *JobHandlers) Register(g *echo.Group) {
	g.GET("/jobs", h.ListJobs)
	g.POST("/jobs/:name/run", h.RunJob)
}

// ListJobs godoc
// @Summary      Background job status
// @Tags         jobs
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /jobs [get]
func (h *JobHandlers) ListJobs(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"jobs": h.runner.GetJobStatus(),
	})
}

// RunJob godoc
// @Summary      Trigger a background job now
// @Tags         jobs
// @Produce      json
// @Param        name  path  string  true  "integrity-sweep or ledger-archive"
// @Success      202  {object}  map[string]string
// @Failure      404  {object}  common.ErrorResponse
// @Router       /jobs/{name}/run [post]
func (h *JobHandlers) RunJob(c echo.Context) error {
	name := c.Param("name")

	found, err := h.runner.RunNow(name)
	if err != nil {
		return common.SendServerError(c, "Failed to trigger job")
	}
	if !found {
		return common.SendNotFoundError(c, "job "+name)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "Job triggered",
		"job":     name,
	})
}
