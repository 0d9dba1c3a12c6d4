package reporter

import (
	"context"

	"qrshare/internal/transfer"
	"qrshare/internal/ui"

	"github.com/sirupsen/logrus"
)

// ProgressReporter forwards engine statuses to a view.
type ProgressReporter struct {
	view ui.StatusView
}

// NewProgressReporter creates a reporter that renders to view.
func NewProgressReporter(view ui.StatusView) *ProgressReporter {
	return &ProgressReporter{view: view}
}

// StartUpdatingProgress consumes updates until the feed closes or ctx ends
// and returns the last status seen. Statuses carrying a progress snapshot
// move the bar; the rest are shown as messages, skipping repeats.
func (pr *ProgressReporter) StartUpdatingProgress(ctx context.Context, updates <-chan transfer.Status) transfer.Status {
	var last transfer.Status
	var lastMessage string

	for {
		select {
		case <-ctx.Done():
			logrus.WithField("function", "StartUpdatingProgress").Debug("Progress reporting stopped")
			pr.view.CompleteProgress()
			return last
		case st, ok := <-updates:
			if !ok {
				pr.view.CompleteProgress()
				return last
			}
			last = st

			if st.Progress != nil {
				pr.view.UpdateProgress(*st.Progress)
			}

			if st.Terminal {
				pr.view.CompleteProgress()
			}

			if st.Progress == nil || st.Terminal {
				if st.Message != lastMessage {
					pr.view.ShowMessage(st.Message)
					lastMessage = st.Message
				}
			}
		}
	}
}
