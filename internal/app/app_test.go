package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"qrshare/internal/config"
	"qrshare/internal/progress"
	"qrshare/internal/session"
	"qrshare/internal/transfer"
	"qrshare/internal/transport"
	"qrshare/internal/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeConnector hands the two ends of one in-memory pipe to the two roles.
type pipeConnector struct {
	senderEnd, receiverEnd *transport.PipeChannel
}

func newPipeConnector() *pipeConnector {
	a, b := transport.NewPipe(0)
	return &pipeConnector{senderEnd: a, receiverEnd: b}
}

func (p *pipeConnector) PairingURL(desc session.Descriptor) string {
	return desc.URL("ws://relay.test")
}

func (p *pipeConnector) Connect(_ context.Context, desc session.Descriptor, _ string) (*Connection, error) {
	if desc.Role == session.RoleSender {
		return &Connection{Channel: p.senderEnd}, nil
	}
	return &Connection{Channel: p.receiverEnd, Announce: true}, nil
}

// fakeUI passes the pairing URL from the sender's screen to the receiver's
// prompt and records everything else.
type fakeUI struct {
	pairing chan string

	mu        sync.Mutex
	messages  []string
	summaries []ui.Summary
}

func newFakeUI(pairing chan string) *fakeUI {
	return &fakeUI{pairing: pairing}
}

func (f *fakeUI) ShowMessage(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

func (f *fakeUI) UpdateProgress(progress.Snapshot) {}
func (f *fakeUI) CompleteProgress()                {}

func (f *fakeUI) ShowPairing(pairingURL string) error {
	f.pairing <- pairingURL
	return nil
}

func (f *fakeUI) InputPairingURL(ctx context.Context) (string, error) {
	select {
	case url := <-f.pairing:
		return url, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (f *fakeUI) ShowSummary(s ui.Summary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries = append(f.summaries, s)
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Transfer.MaxChunkSize = 1000
	cfg.Transfer.IdleTimeout = 5 * time.Second
	return cfg
}

func TestSendAndReceive(t *testing.T) {
	srcDir, dstDir := t.TempDir(), t.TempDir()
	data := make([]byte, 4500)
	for i := range data {
		data[i] = byte(i * 7)
	}
	srcPath := filepath.Join(srcDir, "payload.bin")
	require.NoError(t, os.WriteFile(srcPath, data, 0644))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := testConfig()
	connector := newPipeConnector()
	pairing := make(chan string, 1)
	senderUI, receiverUI := newFakeUI(pairing), newFakeUI(pairing)

	senderErr := make(chan error, 1)
	go func() {
		senderErr <- NewSenderApp(cfg, connector, senderUI).Run(ctx, &SenderOptions{FilePath: srcPath})
	}()

	err := NewReceiverApp(cfg, connector, receiverUI).Run(ctx, &ReceiverOptions{DestPath: dstDir})
	require.NoError(t, err)
	require.NoError(t, <-senderErr)

	got, err := os.ReadFile(filepath.Join(dstDir, "payload.bin"))
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.Len(t, receiverUI.summaries, 1)
	assert.Equal(t, int64(5), receiverUI.summaries[0].Chunks)
	assert.Equal(t, filepath.Join(dstDir, "payload.bin"), receiverUI.summaries[0].Path)
	assert.Contains(t, receiverUI.messages, "File ready to download.")

	require.Len(t, senderUI.summaries, 1)
	assert.Equal(t, int64(4500), senderUI.summaries[0].Bytes)
	assert.Equal(t, int64(5), senderUI.summaries[0].Chunks)
}

func TestReceiverRejectsBadInput(t *testing.T) {
	cfg := testConfig()
	r := NewReceiverApp(cfg, newPipeConnector(), newFakeUI(make(chan string)))

	err := r.Run(context.Background(), &ReceiverOptions{})
	assert.ErrorContains(t, err, "destination path is required")

	err = r.Run(context.Background(), &ReceiverOptions{PairingURL: "ws://relay/?role=sender", DestPath: t.TempDir()})
	assert.ErrorIs(t, err, session.ErrInvalidPairingURL)

	err = r.Run(context.Background(), &ReceiverOptions{PairingURL: "ws://relay/?id=abc&role=spectator", DestPath: t.TempDir()})
	assert.ErrorIs(t, err, session.ErrInvalidPairingURL)

	err = r.Run(context.Background(), &ReceiverOptions{PairingURL: "ws://relay/?id=abc&role=sender", DestPath: filepath.Join(t.TempDir(), "a", "b")})
	assert.ErrorContains(t, err, "parent directory does not exist")
}

func TestReceiverSenderLeavesEarly(t *testing.T) {
	connector := newPipeConnector()
	require.NoError(t, connector.senderEnd.Close())

	r := NewReceiverApp(testConfig(), connector, newFakeUI(make(chan string)))
	err := r.Run(context.Background(), &ReceiverOptions{
		PairingURL: "ws://relay.test/?id=abc&role=sender",
		DestPath:   t.TempDir(),
	})
	assert.ErrorIs(t, err, transfer.ErrClosedBeforeMetadata)
}

func TestSenderRejectsMissingFile(t *testing.T) {
	s := NewSenderApp(testConfig(), newPipeConnector(), newFakeUI(make(chan string, 1)))

	err := s.Run(context.Background(), &SenderOptions{})
	assert.ErrorContains(t, err, "file path is required")

	err = s.Run(context.Background(), &SenderOptions{FilePath: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestNewConnectorRejectsUnknownKind(t *testing.T) {
	cfg := testConfig()
	cfg.Transport.Kind = "carrier-pigeon"

	_, err := NewConnector(context.Background(), cfg)
	assert.ErrorIs(t, err, config.ErrInvalidTransportKind)

	cfg.Transport.Kind = config.TransportWebSocket
	c, err := NewConnector(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/?id=abc&role=sender",
		c.PairingURL(session.Descriptor{ID: "abc", Role: session.RoleSender}))
}
