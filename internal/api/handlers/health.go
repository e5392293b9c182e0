package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/bastiondns/bastiondns/internal/api/models"
)

// Health godoc
// @Summary Health check
// @Description Returns server health status; checks the zone catalog when one is configured
// @Tags system
// @Produce json
// @Success 200 {object} models.StatusResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	if h.deps.Catalog != nil {
		if err := h.deps.Catalog.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Error: "zone catalog unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
}

// Stats godoc
// @Summary Server statistics
// @Description Returns runtime statistics including memory, CPU, goroutines, and DNS metrics
// @Tags system
// @Produce json
// @Success 200 {object} models.ServerStatsResponse
// @Security ApiKeyAuth
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.startTime)

	resp := models.ServerStatsResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		GoRoutines:    runtime.NumGoroutine(),
		MemoryAllocMB: float64(m.Alloc) / 1024 / 1024,
		CPU:           hostCPU(),
		Memory:        hostMemory(),
	}

	if h.deps.Stats != nil {
		s := h.deps.Stats()
		resp.DNSStats = models.DNSStatsResponse{
			QueriesTotal:     s.QueriesTotal,
			QueriesUDP:       s.QueriesUDP,
			QueriesTCP:       s.QueriesTCP,
			ResponsesNX:      s.ResponsesNX,
			ResponsesRefused: s.ResponsesRefused,
			ResponsesErr:     s.ResponsesErr,
			AvgLatencyMs:     s.AvgLatencyMs,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// hostCPU samples host CPU usage. Errors leave percentages at zero;
// a stats endpoint has no business failing over them.
func hostCPU() models.CPUStats {
	stats := models.CPUStats{NumCPU: runtime.NumCPU()}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		stats.UsedPercent = percents[0]
		stats.IdlePercent = 100 - percents[0]
	}
	return stats
}

// hostMemory samples host memory usage.
func hostMemory() models.MemoryStats {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return models.MemoryStats{}
	}
	const mb = 1024 * 1024
	return models.MemoryStats{
		TotalMB:     float64(vm.Total) / mb,
		FreeMB:      float64(vm.Available) / mb,
		UsedMB:      float64(vm.Used) / mb,
		UsedPercent: vm.UsedPercent,
	}
}
