package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"airgapintel/pkg/models"
)

// Progress draws a single updating status line while feeds download. In
// verbose mode it prints one line per feed instead.
type Progress struct {
	mu        sync.Mutex
	out       io.Writer
	verbose   bool
	total     int
	done      int
	failed    int
	bytes     int64
	current   string
	startTime time.Time
}

// NewProgress creates a progress display writing to out
func NewProgress(out io.Writer, verbose bool) *Progress {
	return &Progress{out: out, verbose: verbose}
}

// Start resets the display for a run of total tasks
func (p *Progress) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.done = 0
	p.failed = 0
	p.bytes = 0
	p.current = ""
	p.startTime = time.Now()

	fmt.Fprintf(p.out, "%s %d feeds queued\n", Magenta("→"), total)
}

// Record updates the display with one finished task
func (p *Progress) Record(o models.TaskOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.current = o.Task.DisplayName
	if o.Success {
		p.bytes += int64(o.Size)
	} else {
		p.failed++
	}

	if p.verbose {
		p.printLine(o)
		return
	}
	p.printProgress()
}

// Finish ends the status line
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.verbose && p.total > 0 {
		fmt.Fprintln(p.out)
	}
}

func (p *Progress) printLine(o models.TaskOutcome) {
	if o.Success {
		fmt.Fprintf(p.out, "%s [%s] %s • %s\n", Green("✓"), o.Task.Category, o.Task.DisplayName, FormatBytes(int64(o.Size)))
		return
	}
	fmt.Fprintf(p.out, "%s [%s] %s • %v\n", Red("✗"), o.Task.Category, o.Task.DisplayName, o.Error)
}

// printProgress prints the minimal progress line
func (p *Progress) printProgress() {
	const barWidth = 20
	filled := barWidth
	if p.total > 0 && p.done < p.total {
		filled = p.done * barWidth / p.total
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("[%s] %d/%d • %s • %s",
		bar,
		p.done,
		p.total,
		FormatBytes(p.bytes),
		FormatDuration(time.Since(p.startTime)),
	)
	if p.failed > 0 {
		line += fmt.Sprintf(" • %s", Red(fmt.Sprintf("%d failed", p.failed)))
	}
	if p.current != "" {
		line += fmt.Sprintf(" • %s", Dim(truncate(p.current, 40)))
	}

	// Clear line and print
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
