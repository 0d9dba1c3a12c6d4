package app

import (
	"context"
	"fmt"

	"qrshare/internal/config"
	"qrshare/internal/session"
	"qrshare/internal/signalling"
	"qrshare/internal/transport"

	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"
)

// NewConnector builds the connector selected by cfg.Transport.Kind.
func NewConnector(ctx context.Context, cfg *config.Config) (Connector, error) {
	switch cfg.Transport.Kind {
	case config.TransportWebSocket:
		return &WebSocketConnector{
			relayURL:       cfg.Transport.RelayURL,
			maxMessageSize: cfg.Transport.MaxMessageSize,
		}, nil
	case config.TransportWebRTC:
		signalingService, err := signalling.NewDefaultSignalingService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &WebRTCConnector{
			pairingBase: cfg.Transport.PairingBase,
			peerService: transport.NewPeerService(cfg.WebRTC.ICEURLs),
			signaling:   signalingService,
			flow: transport.FlowControl{
				BufferedAmountLowThreshold: cfg.WebRTC.BufferedAmountLowThreshold,
				MaxBufferedAmount:          cfg.WebRTC.MaxBufferedAmount,
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidTransportKind, cfg.Transport.Kind)
	}
}

// WebSocketConnector dials a relay that pairs the two roles of a session.
type WebSocketConnector struct {
	relayURL       string
	maxMessageSize int
}

// PairingURL puts the session on the relay URL, so the receiver can dial
// its variant of the scanned URL directly.
func (w *WebSocketConnector) PairingURL(desc session.Descriptor) string {
	return desc.URL(w.relayURL)
}

// Connect dials joinURL. The relay announces the receiver to the sender.
func (w *WebSocketConnector) Connect(ctx context.Context, desc session.Descriptor, joinURL string) (*Connection, error) {
	channel, err := transport.DialWebSocket(ctx, joinURL, w.maxMessageSize)
	if err != nil {
		return nil, err
	}
	return &Connection{Channel: channel}, nil
}

// WebRTCConnector opens a data channel negotiated through the signalling store.
type WebRTCConnector struct {
	pairingBase string
	peerService *transport.PeerService
	signaling   *signalling.SignalingService
	flow        transport.FlowControl
}

// PairingURL puts the session on the configured pairing base.
func (w *WebRTCConnector) PairingURL(desc session.Descriptor) string {
	return desc.URL(w.pairingBase)
}

// Connect runs the offer/answer exchange for desc. The sender blocks until
// the receiver has answered; the receiver announces itself once the data
// channel opens.
func (w *WebRTCConnector) Connect(ctx context.Context, desc session.Descriptor, joinURL string) (*Connection, error) {
	channel := transport.NewWebRTCChannel(w.flow)
	conn := &Connection{Channel: channel, Announce: desc.Role == session.RoleReceiver}

	peerConn, err := w.peerService.CreatePeerConnection(string(desc.Role), channel.Fail)
	if err != nil {
		return nil, err
	}
	conn.onClose(peerConn.Close)

	if desc.Role == session.RoleSender {
		conn.onClose(func() error {
			return w.signaling.ClearSession(context.Background(), desc.ID)
		})
		err = w.connectSender(ctx, channel, peerConn, desc)
	} else {
		err = w.connectReceiver(ctx, channel, peerConn, desc)
	}
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function":   "WebRTCConnector.Connect",
		"session_id": desc.ID,
		"role":       desc.Role,
	}).Info("Signalling complete")
	return conn, nil
}

func (w *WebRTCConnector) connectSender(ctx context.Context, channel *transport.WebRTCChannel, peerConn *webrtc.PeerConnection, desc session.Descriptor) error {
	// The data channel must exist before the offer so it is negotiated.
	if err := channel.CreateDataChannel(peerConn); err != nil {
		return err
	}
	if err := w.signaling.StartSenderSignallingProcess(ctx, peerConn, desc.ID); err != nil {
		return fmt.Errorf("failed during signalling process: %w", err)
	}
	return nil
}

func (w *WebRTCConnector) connectReceiver(ctx context.Context, channel *transport.WebRTCChannel, peerConn *webrtc.PeerConnection, desc session.Descriptor) error {
	channel.AcceptDataChannel(peerConn)
	if err := w.signaling.StartReceiverSignallingProcess(ctx, peerConn, desc.ID); err != nil {
		return fmt.Errorf("failed during signalling process: %w", err)
	}
	return nil
}
