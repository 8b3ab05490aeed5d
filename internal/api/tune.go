package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/warptune/pkg/autotune"
	"github.com/samcharles93/warptune/pkg/cuda"
)

func (s *Server) handleTune(c *echo.Context) error {
	req, err := decodeJSON[TuneRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if strings.TrimSpace(req.Log) == "" {
		return writeBadRequest(c, "log must not be empty")
	}
	if req.Kernel == "" {
		return writeBadRequest(c, "kernel must not be empty")
	}
	cc, err := cuda.ParseComputeCapability(req.CC)
	if err != nil {
		return writeError(c, http.StatusBadRequest, "invalid_request_error", err.Error(), "cc", "")
	}
	if (req.MinTPB == nil) != (req.MaxTPB == nil) {
		return writeBadRequest(c, "min_tpb and max_tpb must be set together")
	}

	tuner, err := newTuner(req.Kernel, req.Log, cc, req.SharedMemConfig)
	if err != nil {
		return writeTunerError(c, err)
	}

	var tpb int
	var ok bool
	switch {
	case len(req.Candidates) > 0:
		tpb, ok = tuner.Prefer(req.Candidates...)
	case req.MinTPB != nil:
		tpb, ok = tuner.BestWithin(*req.MinTPB, *req.MaxTPB)
	default:
		tpb, ok = tuner.Best()
	}

	resp := TuneResponse{
		Kernel:     req.Kernel,
		Capability: cc.String(),
	}
	if ok {
		occ, _ := tuner.Closest(tpb)
		resp.ThreadsPerBlock = tpb
		resp.Occupancy = occ
		resp.Feasible = true
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCapabilities(c *echo.Context) error {
	ccs := cuda.Capabilities()
	data := make([]CapabilityLimits, 0, len(ccs))
	for _, cc := range ccs {
		limits, err := cuda.Lookup(cc)
		if err != nil {
			continue
		}
		data = append(data, CapabilityLimits{
			Capability:           cc.String(),
			ThreadsPerWarp:       limits.ThreadsPerWarp,
			WarpsPerSM:           limits.WarpsPerSM,
			ThreadsPerSM:         limits.ThreadsPerSM,
			BlocksPerSM:          limits.BlocksPerSM,
			TotalRegisters:       limits.TotalRegisters,
			RegAllocUnit:         limits.RegAllocUnit,
			RegAllocGranularity:  limits.RegAllocGranularity.String(),
			MaxRegsPerThread:     limits.MaxRegsPerThread,
			SharedMemPerSM:       limits.SharedMemPerSM,
			SharedMemAllocUnit:   limits.SharedMemAllocUnit,
			WarpAllocGranularity: limits.WarpAllocGranularity,
			MaxBlockSize:         limits.MaxBlockSize,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"object": "list",
		"data":   data,
	})
}

func newTuner(kernel, buildLog string, cc cuda.ComputeCapability, smemConfig int) (*autotune.Tuner, error) {
	return autotune.New(autotune.Config{
		Kernel:          kernel,
		BuildLog:        buildLog,
		Capability:      cc,
		SharedMemConfig: smemConfig,
	})
}

func writeTunerError(c *echo.Context, err error) error {
	switch {
	case errors.Is(err, autotune.ErrKernelNotFound):
		return writeNotFound(c, err.Error())
	case errors.Is(err, cuda.ErrUnsupportedCapability):
		return writeBadRequest(c, err.Error())
	default:
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
}

// OccupancyRows flattens a tuner's table into rows sorted by block size.
func OccupancyRows(t *autotune.Tuner) []OccupancyRow {
	table := t.Table()
	rows := make([]OccupancyRow, 0, len(table))
	for tpb, occ := range table {
		rows = append(rows, OccupancyRow{
			ThreadsPerBlock: tpb,
			Occupancy:       occ.Fraction,
			LimitedBy:       occ.LimitedBy.String(),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ThreadsPerBlock < rows[j].ThreadsPerBlock })
	return rows
}
