package directory

import (
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/signalbox/internal/models"
	"gorm.io/gorm"
)

// StaleRunTimeout is how long a run may stay "running" before another
// process may take over.
const StaleRunTimeout = 15 * time.Minute

// abandonedMessage is recorded on runs expired by StartRun.
const abandonedMessage = "abandoned: no result before timeout"

// ErrSyncInProgress is returned by StartRun while another sync holds the lock.
var ErrSyncInProgress = errors.New("directory: sync already in progress")

// StartRun records the beginning of a sync. The running row doubles as a
// lock shared by every process using the database: runs older than
// StaleRunTimeout are marked failed first, then a remaining running row
// makes StartRun fail with ErrSyncInProgress.
func (s *Store) StartRun(trigger string, now time.Time) (*models.SyncRun, error) {
	var run *models.SyncRun

	err := s.db.Transaction(func(tx *gorm.DB) error {
		cutoff := now.Add(-StaleRunTimeout)

		if err := tx.Model(&models.SyncRun{}).
			Where("status = ? AND started_at < ?", RunRunning, cutoff).
			Updates(map[string]interface{}{
				"status":        RunFailed,
				"error_message": abandonedMessage,
				"completed_at":  now,
			}).Error; err != nil {
			return fmt.Errorf("expire stale runs: %w", err)
		}

		var existing models.SyncRun
		result := tx.Where("status = ?", RunRunning).First(&existing)
		if result.Error == nil {
			return fmt.Errorf("%w (run %d, %s, started %s)", ErrSyncInProgress,
				existing.ID, existing.Trigger, existing.StartedAt.Format(time.RFC3339))
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check running syncs: %w", result.Error)
		}

		run = &models.SyncRun{Trigger: trigger, Status: RunRunning, StartedAt: now}
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrSyncInProgress) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("directory: start sync run: %w", err)
	}
	return run, nil
}
