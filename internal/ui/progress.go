package ui

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"qrshare/internal/progress"
	"qrshare/pkg/utils"

	"github.com/schollz/progressbar/v3"
)

// EstimatingLabel stands in for the time remaining until throughput is known.
const EstimatingLabel = "estimating…"

// Summary is what ShowSummary prints after a transfer.
type Summary struct {
	Title    string
	Filename string
	Bytes    int64
	Chunks   int64
	Elapsed  time.Duration
	Path     string
}

// ProgressUI handles progress display for file transfers
type ProgressUI struct {
	bar       *progressbar.ProgressBar
	out       io.Writer
	operation string // "Sending" or "Receiving"
}

// NewProgressUI creates a progress UI writing to out.
func NewProgressUI(operation string, out io.Writer) *ProgressUI {
	return &ProgressUI{operation: operation, out: out}
}

// startProgress initializes the progress bar for a file transfer
func (p *ProgressUI) startProgress(totalBytes int64) {
	p.bar = progressbar.NewOptions64(totalBytes,
		progressbar.OptionSetDescription(p.operation),
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(50),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetPredictTime(false),
	)
}

// UpdateProgress moves the bar and shows percent and time remaining.
func (p *ProgressUI) UpdateProgress(snap progress.Snapshot) {
	if p.bar == nil {
		p.startProgress(snap.TotalBytes)
	}

	_ = p.bar.Set64(snap.ReceivedBytes)
	p.bar.Describe(fmt.Sprintf("%s (%s%%, %s remaining)",
		p.operation, strconv.FormatFloat(snap.Percent, 'f', -1, 64), RemainingLabel(snap)))
}

// CompleteProgress marks the progress as complete
func (p *ProgressUI) CompleteProgress() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(p.out)
	p.bar = nil
}

// RemainingLabel renders the time remaining of a snapshot for display.
func RemainingLabel(snap progress.Snapshot) string {
	if !snap.RemainingKnown {
		return EstimatingLabel
	}
	return utils.FormatDuration(snap.Remaining)
}
