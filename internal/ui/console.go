package ui

import (
	"context"
	"fmt"
	"io"
	"os"

	"qrshare/internal/session"
	"qrshare/pkg/utils"

	"github.com/skip2/go-qrcode"
)

// ConsoleUI implements console-based interactive UI with progress tracking
type ConsoleUI struct {
	*ProgressUI
	in  io.Reader
	out io.Writer
}

// NewConsoleUI creates a console UI on stdin/stdout with the bar on stderr.
func NewConsoleUI(operation string) *ConsoleUI {
	return NewConsoleUIWith(operation, os.Stdin, os.Stdout, os.Stderr)
}

// NewConsoleUIWith creates a console UI on the given streams.
func NewConsoleUIWith(operation string, in io.Reader, out, barOut io.Writer) *ConsoleUI {
	return &ConsoleUI{
		ProgressUI: NewProgressUI(operation, barOut),
		in:         in,
		out:        out,
	}
}

// ShowMessage displays a message to the user
func (c *ConsoleUI) ShowMessage(message string) {
	fmt.Fprintln(c.out, message)
}

// ShowPairing prints the pairing URL as a terminal QR code followed by the
// URL itself and the session ID.
func (c *ConsoleUI) ShowPairing(pairingURL string) error {
	qr, err := qrcode.New(pairingURL, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("failed to encode QR code: %w", err)
	}

	fmt.Fprintln(c.out, qr.ToSmallString(false))
	fmt.Fprintf(c.out, "Pairing URL: %s\n", pairingURL)
	fmt.Fprintf(c.out, "Session ID: %s\n", session.DisplayID(pairingURL))
	return nil
}

// InputPairingURL prompts until the user enters a parseable pairing URL.
func (c *ConsoleUI) InputPairingURL(ctx context.Context) (string, error) {
	return utils.AskFor(ctx, c.in, c.out, "Enter pairing URL from sender: ", func(s string) error {
		_, err := session.Parse(s)
		return err
	})
}

// ShowSummary displays a summary of the completed transfer
func (c *ConsoleUI) ShowSummary(s Summary) {
	fmt.Fprintf(c.out, "\n=============================================\n")
	fmt.Fprintf(c.out, "%s\n", s.Title)
	fmt.Fprintf(c.out, "+ File: %s\n", s.Filename)
	fmt.Fprintf(c.out, "+ Total bytes: %s\n", utils.FormatFileSize(s.Bytes))
	if s.Chunks > 0 {
		fmt.Fprintf(c.out, "+ Chunks: %d\n", s.Chunks)
	}
	fmt.Fprintf(c.out, "+ Transfer time: %s\n", utils.FormatDuration(s.Elapsed))
	if s.Path != "" {
		fmt.Fprintf(c.out, "+ Saved to: %s\n", s.Path)
	}
	fmt.Fprintf(c.out, "=============================================\n")
}
