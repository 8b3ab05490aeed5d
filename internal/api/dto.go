package api

type ReportRequest struct {
	Log   string `json:"log"`
	Label string `json:"label,omitempty"`
}

type ReportResponse struct {
	ID        string        `json:"id"`
	Object    string        `json:"object"`
	CreatedAt int64         `json:"created_at"`
	Label     string        `json:"label,omitempty"`
	Kernels   []KernelUsage `json:"kernels"`
}

type KernelUsage struct {
	Name       string `json:"name"`
	Registers  int    `json:"registers"`
	SharedMem  int    `json:"shared_mem"`
	StackFrame int    `json:"stack_frame"`
	LocalMem   int    `json:"local_mem"`
}

type DeleteReportResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type OccupancyRow struct {
	ThreadsPerBlock int     `json:"tpb"`
	Occupancy       float64 `json:"occupancy"`
	LimitedBy       string  `json:"limited_by"`
}

type OccupancyBest struct {
	ThreadsPerBlock int     `json:"tpb"`
	Occupancy       float64 `json:"occupancy"`
}

type OccupancyResponse struct {
	Kernel     string         `json:"kernel"`
	Capability string         `json:"capability"`
	Rows       []OccupancyRow `json:"rows"`
	Best       *OccupancyBest `json:"best,omitempty"`
}

type TuneRequest struct {
	Log             string `json:"log"`
	Kernel          string `json:"kernel"`
	CC              string `json:"cc"`
	SharedMemConfig int    `json:"smem_config,omitempty"`
	MinTPB          *int   `json:"min_tpb,omitempty"`
	MaxTPB          *int   `json:"max_tpb,omitempty"`
	Candidates      []int  `json:"candidates,omitempty"`
}

type TuneResponse struct {
	Kernel          string  `json:"kernel"`
	Capability      string  `json:"cc"`
	ThreadsPerBlock int     `json:"threads_per_block"`
	Occupancy       float64 `json:"occupancy"`
	Feasible        bool    `json:"feasible"`
}

type CapabilityLimits struct {
	Capability           string `json:"capability"`
	ThreadsPerWarp       int    `json:"threads_per_warp"`
	WarpsPerSM           int    `json:"warps_per_sm"`
	ThreadsPerSM         int    `json:"threads_per_sm"`
	BlocksPerSM          int    `json:"blocks_per_sm"`
	TotalRegisters       int    `json:"total_registers"`
	RegAllocUnit         int    `json:"reg_alloc_unit"`
	RegAllocGranularity  string `json:"reg_alloc_granularity"`
	MaxRegsPerThread     int    `json:"max_regs_per_thread"`
	SharedMemPerSM       int    `json:"shared_mem_per_sm"`
	SharedMemAllocUnit   int    `json:"shared_mem_alloc_unit"`
	WarpAllocGranularity int    `json:"warp_alloc_granularity"`
	MaxBlockSize         int    `json:"max_block_size"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
