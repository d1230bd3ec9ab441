package fetch

import (
	"fmt"

	"github.com/repofetch/repofetch/internal/core"
	"github.com/repofetch/repofetch/internal/domain/model"
)

// progressTracker emits a job log line each time completion crosses the next
// 10% step, so long fetches stay observable without flooding the log.
type progressTracker struct {
	total    int
	done     int
	lastStep int
	log      core.JobLogger
}

func newProgressTracker(total int, log core.JobLogger) *progressTracker {
	return &progressTracker{total: total, log: log}
}

// Advance records n more completed repositories.
func (p *progressTracker) Advance(n int) {
	if p.total <= 0 {
		return
	}
	p.done += n
	if p.done > p.total {
		p.done = p.total
	}
	step := p.done * 100 / p.total / 10 * 10
	if step > p.lastStep {
		p.lastStep = step
		p.log(model.LogInfo, fmt.Sprintf("progress: %d%% (%d/%d repositories)", step, p.done, p.total))
	}
}
