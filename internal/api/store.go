package api

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/warptune/pkg/cuda"
	"github.com/samcharles93/warptune/pkg/ptxas"
)

type reportRecord struct {
	Report ReportResponse
	Log    string
}

type ReportStore struct {
	mu      sync.Mutex
	reports map[string]*reportRecord
}

func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]*reportRecord),
	}
}

func (s *ReportStore) Create(log, label string, now time.Time) ReportResponse {
	resp := ReportResponse{
		ID:        newReportID(),
		Object:    "build_report",
		CreatedAt: now.Unix(),
		Label:     label,
		Kernels:   kernelUsageList(ptxas.Parse(log)),
	}

	s.mu.Lock()
	s.reports[resp.ID] = &reportRecord{
		Report: resp,
		Log:    log,
	}
	s.mu.Unlock()

	return resp
}

func (s *ReportStore) Get(id string) (*reportRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.reports[id]
	return rec, ok
}

func (s *ReportStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return false
	}
	delete(s.reports, id)
	return true
}

func newReportID() string {
	return "rpt_" + uuid.NewString()
}

func kernelUsageList(kernels map[string]cuda.ResourceUsage) []KernelUsage {
	out := make([]KernelUsage, 0, len(kernels))
	for name, usage := range kernels {
		out = append(out, KernelUsage{
			Name:       name,
			Registers:  usage.Registers,
			SharedMem:  usage.SharedMem,
			StackFrame: usage.StackFrame,
			LocalMem:   usage.LocalMem,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
