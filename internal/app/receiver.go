package app

import (
	"context"
	"fmt"
	"time"

	"qrshare/internal/config"
	"qrshare/internal/processor"
	"qrshare/internal/reporter"
	"qrshare/internal/session"
	"qrshare/internal/transfer"
	"qrshare/internal/ui"
	"qrshare/pkg/utils"

	"github.com/sirupsen/logrus"
)

// ReceiverOptions configures the receiver application behavior
type ReceiverOptions struct {
	// PairingURL is the URL shown by the sender. The user is prompted when
	// it is empty.
	PairingURL string
	DestPath   string // Required: destination directory for the received file
}

// ReceiverApp implements receiver application logic
type ReceiverApp struct {
	config    *config.Config
	connector Connector
	ui        ui.InteractiveUI
}

// NewReceiverApp creates a new receiver application
func NewReceiverApp(cfg *config.Config, connector Connector, ui ui.InteractiveUI) *ReceiverApp {
	return &ReceiverApp{
		config:    cfg,
		connector: connector,
		ui:        ui,
	}
}

// Run joins the session, receives the file and saves it under DestPath.
func (r *ReceiverApp) Run(ctx context.Context, opts *ReceiverOptions) error {
	if opts.DestPath == "" {
		return fmt.Errorf("destination path is required")
	}
	if _, err := utils.ResolveDestinationPath(opts.DestPath); err != nil {
		return err
	}

	pairingURL := opts.PairingURL
	if pairingURL == "" {
		var err error
		pairingURL, err = r.ui.InputPairingURL(ctx)
		if err != nil {
			return fmt.Errorf("failed to get pairing URL from user: %w", err)
		}
	}

	joinURL := session.ReceiverURL(pairingURL)
	desc, err := session.Parse(joinURL)
	if err != nil {
		return err
	}
	if desc.Role != session.RoleReceiver {
		return fmt.Errorf("%w: expected a sender pairing URL", session.ErrInvalidPairingURL)
	}

	logger := logrus.WithFields(logrus.Fields{
		"function":   "ReceiverApp.Run",
		"session_id": desc.ID,
	})
	r.ui.ShowMessage(fmt.Sprintf("Joining session %s", session.DisplayID(joinURL)))

	conn, err := r.connector.Connect(ctx, desc, joinURL)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	receiver := transfer.NewReceiver(desc, conn.Channel, transfer.ReceiverOptions{
		Announce:    conn.Announce,
		IdleTimeout: r.config.Transfer.IdleTimeout,
	})

	reportDone := make(chan transfer.Status, 1)
	go func() {
		reportDone <- reporter.NewProgressReporter(r.ui).StartUpdatingProgress(ctx, receiver.Updates())
	}()

	start := time.Now()
	runErr := receiver.Run(ctx)
	elapsed := time.Since(start)
	<-reportDone

	if runErr != nil {
		return runErr
	}

	// Hang up so the sender can finish.
	_ = conn.Channel.Close()

	artifact, ok := receiver.Artifact()
	if !ok {
		return transfer.ErrIncomplete
	}

	path, err := processor.SaveArtifact(opts.DestPath, artifact)
	if err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	logger.WithField("path", path).Info("File transfer completed successfully")

	r.ui.ShowSummary(ui.Summary{
		Title:    "File received",
		Filename: artifact.Metadata.Filename,
		Bytes:    int64(len(artifact.Data)),
		Chunks:   artifact.Metadata.TotalChunks,
		Elapsed:  elapsed,
		Path:     path,
	})
	return nil
}
