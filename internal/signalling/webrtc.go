package signalling

import (
	"context"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// WebRTCHandler implements SDPHandler with pion.
type WebRTCHandler struct{}

// CreateOffer creates and sets an SDP offer for the peer connection
func (h *WebRTCHandler) CreateOffer(peerConn *webrtc.PeerConnection) (*webrtc.SessionDescription, error) {
	offer, err := peerConn.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	if err := peerConn.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}

	return &offer, nil
}

// CreateAnswer creates and sets an SDP answer for the peer connection
func (h *WebRTCHandler) CreateAnswer(peerConn *webrtc.PeerConnection) (*webrtc.SessionDescription, error) {
	answer, err := peerConn.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create answer: %w", err)
	}

	if err := peerConn.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("failed to set local description: %w", err)
	}

	return &answer, nil
}

// SetRemoteDescription applies the peer's offer or answer.
func (h *WebRTCHandler) SetRemoteDescription(peerConn *webrtc.PeerConnection, sd webrtc.SessionDescription) error {
	if err := peerConn.SetRemoteDescription(sd); err != nil {
		return fmt.Errorf("failed to set remote description: %w", err)
	}
	return nil
}

// WaitForICEGathering waits for ICE gathering to complete and returns the
// local description with every candidate included.
func (h *WebRTCHandler) WaitForICEGathering(ctx context.Context, peerConn *webrtc.PeerConnection) (*webrtc.SessionDescription, error) {
	select {
	case <-webrtc.GatheringCompletePromise(peerConn):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	local := peerConn.LocalDescription()
	if local == nil {
		return nil, fmt.Errorf("local description is nil after ICE gathering")
	}
	return local, nil
}
