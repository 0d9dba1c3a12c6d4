package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qrshare/internal/config"
	"qrshare/internal/processor"
	"qrshare/internal/reporter"
	"qrshare/internal/session"
	"qrshare/internal/transfer"
	"qrshare/internal/ui"

	"github.com/sirupsen/logrus"
)

// DefaultLinger is how long the sender waits for the receiver to hang up
// after the last chunk before closing the channel itself.
const DefaultLinger = 30 * time.Second

// SenderOptions configures the sender application behavior
type SenderOptions struct {
	FilePath string // Required: path to file to send
	// Linger overrides DefaultLinger when positive.
	Linger time.Duration
}

// SenderApp implements sender application logic
type SenderApp struct {
	config    *config.Config
	connector Connector
	ui        ui.InteractiveUI
}

// NewSenderApp creates a new sender application
func NewSenderApp(cfg *config.Config, connector Connector, ui ui.InteractiveUI) *SenderApp {
	return &SenderApp{
		config:    cfg,
		connector: connector,
		ui:        ui,
	}
}

// Run shows the pairing URL, waits for the receiver and streams the file.
func (s *SenderApp) Run(ctx context.Context, opts *SenderOptions) error {
	if opts.FilePath == "" {
		return fmt.Errorf("file path is required")
	}

	source, err := processor.OpenFile(opts.FilePath)
	if err != nil {
		return err
	}
	defer source.Close()

	desc := session.New()
	logger := logrus.WithFields(logrus.Fields{
		"function":   "SenderApp.Run",
		"session_id": desc.ID,
	})

	pairingURL := s.connector.PairingURL(desc)
	if err := s.ui.ShowPairing(pairingURL); err != nil {
		return err
	}
	s.ui.ShowMessage(fmt.Sprintf("Preparing to send file: %s", opts.FilePath))

	conn, err := s.connector.Connect(ctx, desc, pairingURL)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	sender := transfer.NewSender(desc, conn.Channel, transfer.SenderOptions{
		MaxChunkSize: s.config.Transfer.MaxChunkSize,
		IdleTimeout:  s.config.Transfer.IdleTimeout,
	})

	reportDone := make(chan transfer.Status, 1)
	go func() {
		reportDone <- reporter.NewProgressReporter(s.ui).StartUpdatingProgress(ctx, sender.Updates())
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- sender.Run(ctx) }()

	select {
	case <-sender.PeerReady():
	case err := <-runErr:
		<-reportDone
		return err
	}

	start := time.Now()
	if err := sender.Send(ctx, source); err != nil {
		<-reportDone
		return err
	}
	elapsed := time.Since(start)
	logger.Info("All chunks handed to the channel")

	linger := opts.Linger
	if linger <= 0 {
		linger = DefaultLinger
	}

	select {
	case err = <-runErr:
	case <-time.After(linger):
		logger.Info("Receiver did not hang up, closing")
		_ = conn.Channel.Close()
		err = <-runErr
	}
	<-reportDone

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := sender.Stats()
	s.ui.ShowSummary(ui.Summary{
		Title:    "File sent",
		Filename: source.Name(),
		Bytes:    stats.BytesSent,
		Chunks:   stats.ChunksSent,
		Elapsed:  elapsed,
	})
	return nil
}
