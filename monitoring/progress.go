package monitoring

import (
	"sync"
	"time"
)

// A ProgressBar tracks how far a phase has gone, in milliseconds.
type ProgressBar struct {
	sync.Mutex
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartTime time.Time `json:"start_time"`
	Total     uint64    `json:"total"`
	Finished  uint64    `json:"finished"`
}

func (b *ProgressBar) updateElapsed() {
	b.Lock()
	defer b.Unlock()

	if b.StartTime.IsZero() {
		return
	}

	elapsed := uint64(time.Since(b.StartTime).Milliseconds())
	if elapsed > b.Total {
		elapsed = b.Total
	}

	b.Finished = elapsed
}
