package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/sentinel-overrides/internal/database"
	"github.com/aristath/sentinel-overrides/internal/queue"
	"github.com/aristath/sentinel-overrides/internal/reliability"
	"github.com/aristath/sentinel-overrides/internal/utils"
)

// SystemStatusResponse is returned by GET /api/system/status
type SystemStatusResponse struct {
	Status         string          `json:"status"`
	StartedAt      time.Time       `json:"started_at"`
	UptimeSeconds  int64           `json:"uptime_seconds"`
	StoreBackend   string          `json:"store_backend"`
	QueueDepth     int             `json:"queue_depth"`
	CPUPercent     float64         `json:"cpu_percent"`
	MemoryPercent  float64         `json:"memory_percent"`
	Database       *database.Stats `json:"database,omitempty"`
	BackupsEnabled bool            `json:"backups_enabled"`
}

// QueueResponse is returned by GET /api/system/queue
type QueueResponse struct {
	Depth      int      `json:"depth"`
	HandlerIDs []string `json:"handler_ids"`
}

// SystemHandlers serves monitoring and operations endpoints
type SystemHandlers struct {
	log          zerolog.Logger
	startupTime  time.Time
	storeBackend string
	db           *database.DB
	queue        *queue.Queue
	backup       *reliability.BackupService

	cpuPercent    func(interval time.Duration, percpu bool) ([]float64, error)
	virtualMemory func() (*mem.VirtualMemoryStat, error)
}

// NewSystemHandlers creates a new system handlers instance. db and backup may be nil.
func NewSystemHandlers(
	log zerolog.Logger,
	storeBackend string,
	db *database.DB,
	q *queue.Queue,
	backup *reliability.BackupService,
) *SystemHandlers {
	return &SystemHandlers{
		log:           log.With().Str("component", "system_handlers").Logger(),
		startupTime:   time.Now(),
		storeBackend:  storeBackend,
		db:            db,
		queue:         q,
		backup:        backup,
		cpuPercent:    cpu.Percent,
		virtualMemory: mem.VirtualMemory,
	}
}

// HandleSystemStatus returns process, queue and store status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:         "ok",
		StartedAt:      h.startupTime,
		UptimeSeconds:  int64(time.Since(h.startupTime).Seconds()),
		StoreBackend:   h.storeBackend,
		QueueDepth:     h.queue.Size(),
		CPUPercent:     cpuPercent,
		MemoryPercent:  memPercent,
		BackupsEnabled: h.backup != nil,
	}

	if h.db != nil {
		stats, err := h.db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get database stats")
			response.Status = "degraded"
		} else {
			response.Database = stats
		}
	}

	utils.WriteData(w, http.StatusOK, response, h.log)
}

// HandleQueue returns the processing queue in order
func (h *SystemHandlers) HandleQueue(w http.ResponseWriter, r *http.Request) {
	ids := h.queue.Snapshot()
	utils.WriteData(w, http.StatusOK, QueueResponse{Depth: len(ids), HandlerIDs: ids}, h.log)
}

// HandleTriggerBackup creates and uploads a backup immediately
// POST /api/system/backup
func (h *SystemHandlers) HandleTriggerBackup(w http.ResponseWriter, r *http.Request) {
	if h.backup == nil {
		utils.WriteJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"error": utils.ErrorBody{Message: "backups are not configured", Code: "BACKUP_DISABLED"},
		}, h.log)
		return
	}

	key, err := h.backup.CreateAndUploadBackup(r.Context())
	if err != nil {
		utils.WriteError(w, err, h.log)
		return
	}

	utils.WriteData(w, http.StatusOK, map[string]string{"key": key}, h.log)
}

// getSystemStats returns CPU and RAM usage percentages.
// CPU is sampled over 100ms to keep the call short.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := h.cpuPercent(100*time.Millisecond, false)
	if err != nil || len(cpuPercent) == 0 {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := h.virtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return cpuPercent[0], 0
	}

	return cpuPercent[0], memStat.UsedPercent
}
