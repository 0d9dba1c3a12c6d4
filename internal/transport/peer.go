package transport

import (
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"
)

// ConnectionFailureError reports a peer connection that reached a terminal state.
type ConnectionFailureError struct {
	State webrtc.PeerConnectionState
	Role  string
}

func (e *ConnectionFailureError) Error() string {
	return fmt.Sprintf("peer connection %s for %s", e.State.String(), e.Role)
}

// PeerService creates peer connections for the WebRTC transport.
type PeerService struct {
	iceURLs []string
}

// NewPeerService creates a peer service using the given STUN/TURN URLs.
func NewPeerService(iceURLs []string) *PeerService {
	return &PeerService{iceURLs: iceURLs}
}

// CreatePeerConnection creates a peer connection. onFailure is invoked at
// most once, when the connection fails or closes.
func (p *PeerService) CreatePeerConnection(role string, onFailure func(error)) (*webrtc.PeerConnection, error) {
	webrtcConfig := webrtc.Configuration{}
	if len(p.iceURLs) > 0 {
		webrtcConfig.ICEServers = []webrtc.ICEServer{{URLs: p.iceURLs}}
	}

	pc, err := webrtc.NewPeerConnection(webrtcConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	var once sync.Once
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logrus.WithFields(logrus.Fields{
			"function": "OnConnectionStateChange",
			"role":     role,
			"state":    state.String(),
		}).Info("Peer connection state changed")

		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed:
			if onFailure == nil {
				return
			}
			once.Do(func() {
				onFailure(&ConnectionFailureError{State: state, Role: role})
			})
		}
	})

	return pc, nil
}
