package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/persistence"
)

const waitsCollection = "waits"

// SaveWaitState inserts or replaces a wait state record.
func (fp *Persistence) SaveWaitState(ctx context.Context, wait *models.WaitState) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.writeRecord(waitsCollection, wait.ID, wait)
}

// PendingWait returns the un-resumed wait for the (execution, node) pair.
func (fp *Persistence) PendingWait(ctx context.Context, executionID, nodeID string) (*models.WaitState, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	waits, err := fp.loadWaits(func(w *models.WaitState) bool {
		return !w.Resumed && w.ExecutionID == executionID && w.NodeID == nodeID
	})
	if err != nil {
		return nil, err
	}

	if len(waits) == 0 {
		return nil, persistence.ErrWaitStateNotFound
	}

	return waits[0], nil
}

// PendingWaitsByExecution returns every un-resumed wait for the execution.
func (fp *Persistence) PendingWaitsByExecution(ctx context.Context, executionID string) ([]*models.WaitState, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	return fp.loadWaits(func(w *models.WaitState) bool {
		return !w.Resumed && w.ExecutionID == executionID
	})
}

// DueWaitStates returns un-resumed timed waits whose resume time has passed.
func (fp *Persistence) DueWaitStates(ctx context.Context, now time.Time, limit int) ([]*models.WaitState, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	waits, err := fp.loadWaits(func(w *models.WaitState) bool {
		return !w.Resumed && w.Kind.Timed() &&
			w.ResumeAt != nil && !w.ResumeAt.After(now)
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(waits, func(i, j int) bool {
		return waits[i].ResumeAt.Before(*waits[j].ResumeAt)
	})

	if limit > 0 && len(waits) > limit {
		waits = waits[:limit]
	}

	return waits, nil
}

// PendingWaitsForEvent returns un-resumed event waits the event could satisfy.
func (fp *Persistence) PendingWaitsForEvent(ctx context.Context, event *models.Event) ([]*models.WaitState, error) {
	fp.mu.RLock()
	defer fp.mu.RUnlock()

	return fp.loadWaits(func(w *models.WaitState) bool {
		if w.Resumed || w.Kind.Timed() {
			return false
		}

		if event.TenantID != "" && w.TenantID != "" && w.TenantID != event.TenantID {
			return false
		}

		return w.Matches(event)
	})
}

// MarkWaitResumed conditionally flips the resumed flag; false when already
// resumed.
func (fp *Persistence) MarkWaitResumed(ctx context.Context, id string) (bool, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	var wait models.WaitState

	err := fp.readRecord(waitsCollection, id, &wait)
	if err != nil {
		if os.IsNotExist(err) {
			return false, persistence.ErrWaitStateNotFound
		}

		return false, err
	}

	if wait.Resumed {
		return false, nil
	}

	wait.Resumed = true

	if err := fp.writeRecord(waitsCollection, id, &wait); err != nil {
		return false, err
	}

	return true, nil
}

// loadWaits reads every wait state passing the filter. Caller holds the lock.
func (fp *Persistence) loadWaits(keep func(*models.WaitState) bool) ([]*models.WaitState, error) {
	ids, err := fp.listIDs(waitsCollection)
	if err != nil {
		return nil, err
	}

	waits := make([]*models.WaitState, 0, len(ids))

	for _, id := range ids {
		var wait models.WaitState

		if err := fp.readRecord(waitsCollection, id, &wait); err != nil {
			return nil, fmt.Errorf("failed to load wait state %s: %w", id, err)
		}

		if keep(&wait) {
			waits = append(waits, &wait)
		}
	}

	return waits, nil
}
