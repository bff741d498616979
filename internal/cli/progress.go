package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ImportProgress draws a progress bar for a batch import. Update matches the
// ingest pipeline's progress callback.
type ImportProgress struct {
	bar  *progressbar.ProgressBar
	w    io.Writer
	last int
	mu   sync.Mutex
}

// NewImportProgress creates a bar for total rows writing to w.
func NewImportProgress(w io.Writer, total int, description string) *ImportProgress {
	p := &ImportProgress{w: w}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return p
}

// Update moves the bar to done rows. Calls that do not advance are ignored.
func (p *ImportProgress) Update(done, _ int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if done <= p.last {
		return
	}
	if err := p.bar.Set(done); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
	p.last = done
}

// Done returns the number of rows reported so far.
func (p *ImportProgress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Finish completes the bar, even when the import stopped early.
func (p *ImportProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}
