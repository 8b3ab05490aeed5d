package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/warptune/pkg/cuda"
)

type Server struct {
	store *ReportStore
	clock func() time.Time
}

func NewServer(store *ReportStore) *Server {
	if store == nil {
		store = NewReportStore()
	}
	return &Server{
		store: store,
		clock: time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	// Build reports
	e.POST("/v1/reports", s.handleCreateReport)
	e.GET("/v1/reports/:id", s.handleGetReport)
	e.DELETE("/v1/reports/:id", s.handleDeleteReport)
	e.GET("/v1/reports/:id/kernels/:kernel/occupancy", s.handleKernelOccupancy)

	// Tuning
	e.POST("/v1/tune", s.handleTune)
	e.GET("/v1/capabilities", s.handleCapabilities)
}

func (s *Server) handleCreateReport(c *echo.Context) error {
	req, err := decodeJSON[ReportRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if strings.TrimSpace(req.Log) == "" {
		return writeBadRequest(c, "log must not be empty")
	}
	return c.JSON(http.StatusOK, s.store.Create(req.Log, req.Label, s.clock()))
}

func (s *Server) handleGetReport(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "report not found")
	}
	return c.JSON(http.StatusOK, rec.Report)
}

func (s *Server) handleDeleteReport(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "report not found")
	}
	return c.JSON(http.StatusOK, DeleteReportResponse{
		ID:      id,
		Object:  "build_report",
		Deleted: true,
	})
}

func (s *Server) handleKernelOccupancy(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "report not found")
	}
	cc, err := cuda.ParseComputeCapability(c.QueryParam("cc"))
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "cc", "")
	}
	smemConfig, err := queryInt(c, "smem_config")
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "smem_config", "")
	}

	kernel := c.Param("kernel")
	tuner, err := newTuner(kernel, rec.Log, cc, smemConfig)
	if err != nil {
		return writeTunerError(c, err)
	}

	resp := OccupancyResponse{
		Kernel:     kernel,
		Capability: cc.String(),
		Rows:       OccupancyRows(tuner),
	}
	if ranking := tuner.Ranking(); len(ranking) > 0 {
		resp.Best = &OccupancyBest{
			ThreadsPerBlock: ranking[0].ThreadsPerBlock,
			Occupancy:       ranking[0].Occupancy,
		}
	}
	return c.JSON(http.StatusOK, resp)
}
