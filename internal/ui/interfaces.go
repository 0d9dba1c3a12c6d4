package ui

import (
	"context"

	"qrshare/internal/progress"
)

// StatusView renders engine statuses.
type StatusView interface {
	// ShowMessage displays a message to the user
	ShowMessage(message string)

	// UpdateProgress redraws the progress bar from a snapshot
	UpdateProgress(snap progress.Snapshot)

	// CompleteProgress finishes the progress bar, if one was drawn
	CompleteProgress()
}

// InteractiveUI defines the interface for user interactions
type InteractiveUI interface {
	StatusView

	// ShowPairing displays the pairing URL, its QR code and the session ID
	ShowPairing(pairingURL string) error

	// InputPairingURL prompts the user for the URL shown by the sender
	InputPairingURL(ctx context.Context) (string, error)

	// ShowSummary prints totals once a transfer has finished
	ShowSummary(summary Summary)
}
