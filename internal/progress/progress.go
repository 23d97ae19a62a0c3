// Package progress reports how far a long-running loop has come.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultInterval is the minimum time between two printed progress lines.
const DefaultInterval = 700 * time.Millisecond

// Reporter receives progress updates. Implementations must be safe for
// concurrent use.
type Reporter interface {
	Start(total int)
	Advance(n int)
	Finish()
}

// Nop discards every update.
type Nop struct{}

func (Nop) Start(int)   {}
func (Nop) Advance(int) {}
func (Nop) Finish()     {}

// Writer prints throttled progress lines such as
//
//	progress: 42.0% (420/1000 words)
type Writer struct {
	mu        sync.Mutex
	out       io.Writer
	unit      string
	interval  time.Duration
	now       func() time.Time
	total     int
	done      int
	lastPrint time.Time
}

// NewWriter returns a Reporter printing to out. unit names the counted items.
func NewWriter(out io.Writer, unit string, interval time.Duration) *Writer {
	return &Writer{
		out:      out,
		unit:     unit,
		interval: interval,
		now:      time.Now,
	}
}

func (w *Writer) Start(total int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.total = total
	w.done = 0
	w.lastPrint = w.now()
}

func (w *Writer) Advance(n int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.done += n
	if now := w.now(); now.Sub(w.lastPrint) >= w.interval {
		w.print()
		w.lastPrint = now
	}
}

// Finish prints the final line unconditionally.
func (w *Writer) Finish() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.print()
}

func (w *Writer) print() {
	if w.total > 0 {
		pct := float64(w.done) * 100 / float64(w.total)
		fmt.Fprintf(w.out, "progress: %.1f%% (%d/%d %s)\n", pct, w.done, w.total, w.unit)
		return
	}
	fmt.Fprintf(w.out, "progress: %d %s\n", w.done, w.unit)
}
