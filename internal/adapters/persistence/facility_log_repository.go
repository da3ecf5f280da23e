package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/andrescamacho/facsim-go/internal/application/common"
	"github.com/andrescamacho/facsim-go/internal/domain/shared"
)

// FacilityLogEntry represents a persisted log line
type FacilityLogEntry struct {
	ID        int
	RunID     string
	Timestamp time.Time
	Level     string
	Message   string
	Metadata  map[string]interface{}
}

// GormFacilityLogRepository persists facility log lines per run
type GormFacilityLogRepository struct {
	db    *gorm.DB
	clock shared.Clock

	// identical lines (message and metadata) within dedupWindow are dropped
	dedupCache   map[string]time.Time
	dedupMu      sync.Mutex
	dedupWindow  time.Duration
	dedupMaxSize int
}

// NewGormFacilityLogRepository creates a new facility log repository
// If clock is nil, uses RealClock
func NewGormFacilityLogRepository(db *gorm.DB, clock shared.Clock) *GormFacilityLogRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormFacilityLogRepository{
		db:           db,
		clock:        clock,
		dedupCache:   make(map[string]time.Time),
		dedupWindow:  60 * time.Second,
		dedupMaxSize: 10000,
	}
}

// Log writes a log entry with time-windowed deduplication
func (r *GormFacilityLogRepository) Log(ctx context.Context, runID, level, message string, metadata map[string]interface{}) error {
	now := r.clock.Now()

	var metadataJSON string
	if len(metadata) > 0 {
		if raw, err := json.Marshal(metadata); err == nil {
			metadataJSON = string(raw)
		}
	}
	cacheKey := runID + "|" + level + "|" + message + "|" + metadataJSON

	r.dedupMu.Lock()
	if lastLogged, exists := r.dedupCache[cacheKey]; exists && now.Sub(lastLogged) < r.dedupWindow {
		r.dedupMu.Unlock()
		return nil
	}
	if len(r.dedupCache) >= r.dedupMaxSize {
		r.cleanupDedupCache(now)
	}
	r.dedupCache[cacheKey] = now
	r.dedupMu.Unlock()

	entry := &FacilityLogModel{
		RunID:     runID,
		Timestamp: now,
		Level:     level,
		Message:   message,
		Metadata:  metadataJSON,
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

// Must be called while holding dedupMu
func (r *GormFacilityLogRepository) cleanupDedupCache(now time.Time) {
	cutoff := now.Add(-r.dedupWindow)
	for key, timestamp := range r.dedupCache {
		if timestamp.Before(cutoff) {
			delete(r.dedupCache, key)
		}
	}
}

// GetLogs retrieves the logs of a run in write order with optional level filter.
// A limit of 0 returns every entry and ignores offset.
func (r *GormFacilityLogRepository) GetLogs(ctx context.Context, runID string, limit, offset int, level *string) ([]FacilityLogEntry, error) {
	var models []FacilityLogModel

	query := r.db.WithContext(ctx).Where("run_id = ?", runID)
	if level != nil {
		query = query.Where("level = ?", *level)
	}
	query = query.Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]FacilityLogEntry, len(models))
	for i, model := range models {
		var metadata map[string]interface{}
		if model.Metadata != "" {
			if err := json.Unmarshal([]byte(model.Metadata), &metadata); err != nil {
				metadata = nil
			}
		}
		entries[i] = FacilityLogEntry{
			ID:        model.ID,
			RunID:     model.RunID,
			Timestamp: model.Timestamp,
			Level:     model.Level,
			Message:   model.Message,
			Metadata:  metadata,
		}
	}
	return entries, nil
}

// ForRun returns a FacilityLogger writing into this repository under runID.
// Write failures are dropped; logging never fails a run.
func (r *GormFacilityLogRepository) ForRun(runID string) common.FacilityLogger {
	return &runLogger{repo: r, runID: runID}
}

type runLogger struct {
	repo  *GormFacilityLogRepository
	runID string
}

func (l *runLogger) Log(level, message string, metadata map[string]interface{}) {
	_ = l.repo.Log(context.Background(), l.runID, level, message, metadata)
}
