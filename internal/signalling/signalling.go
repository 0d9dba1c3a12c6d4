package signalling

import (
	"context"
	"fmt"

	"qrshare/internal/config"

	"github.com/pion/webrtc/v4"
	"github.com/sirupsen/logrus"
)

// SignalingServer defines the interface for signaling storage operations
type SignalingServer interface {
	CreateSession(ctx context.Context, sessionID, offer string) error
	GetOffer(ctx context.Context, sessionID string) (offer string, err error)
	UpdateAnswer(ctx context.Context, sessionID, answer string) error
	WaitForAnswer(ctx context.Context, sessionID string) (answer string, err error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// SDPHandler defines the interface for WebRTC SDP operations
type SDPHandler interface {
	CreateOffer(peerConn *webrtc.PeerConnection) (*webrtc.SessionDescription, error)
	CreateAnswer(peerConn *webrtc.PeerConnection) (*webrtc.SessionDescription, error)
	SetRemoteDescription(peerConn *webrtc.PeerConnection, sd webrtc.SessionDescription) error
	WaitForICEGathering(ctx context.Context, peerConn *webrtc.PeerConnection) (*webrtc.SessionDescription, error)
}

// SignalingService exchanges an offer and answer for one session ID.
type SignalingService struct {
	server SignalingServer
	sdp    SDPHandler
}

func NewSignalingService(server SignalingServer, sdp SDPHandler) *SignalingService {
	return &SignalingService{
		server: server,
		sdp:    sdp,
	}
}

// NewDefaultSignalingService uses Firebase and pion.
func NewDefaultSignalingService(ctx context.Context, cfg *config.Config) (*SignalingService, error) {
	server, err := NewFirebaseClient(ctx, &cfg.Firebase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase client: %w", err)
	}

	return NewSignalingService(server, &WebRTCHandler{}), nil
}

// StartSenderSignallingProcess publishes the offer under sessionID and applies
// the receiver's answer once it appears.
func (s *SignalingService) StartSenderSignallingProcess(ctx context.Context, peerConn *webrtc.PeerConnection, sessionID string) error {
	if _, err := s.sdp.CreateOffer(peerConn); err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}

	finalOffer, err := s.sdp.WaitForICEGathering(ctx, peerConn)
	if err != nil {
		return fmt.Errorf("failed to wait for ICE gathering: %w", err)
	}

	encodedOffer, err := encodeSDP(*finalOffer)
	if err != nil {
		return fmt.Errorf("failed to encode offer SDP: %w", err)
	}

	if err := s.server.CreateSession(ctx, sessionID, encodedOffer); err != nil {
		return fmt.Errorf("failed to create session with offer: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "StartSenderSignallingProcess",
		"session_id": sessionID,
	}).Info("Waiting for receiver to answer")

	answer, err := s.server.WaitForAnswer(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to wait for answer: %w", err)
	}

	answerSD, err := decodeSDP(answer, webrtc.SDPTypeAnswer)
	if err != nil {
		return fmt.Errorf("failed to decode answer SDP: %w", err)
	}

	return s.sdp.SetRemoteDescription(peerConn, answerSD)
}

// StartReceiverSignallingProcess answers the offer stored under sessionID.
func (s *SignalingService) StartReceiverSignallingProcess(ctx context.Context, peerConn *webrtc.PeerConnection, sessionID string) error {
	encodedOffer, err := s.server.GetOffer(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get offer from session: %w", err)
	}

	offerSD, err := decodeSDP(encodedOffer, webrtc.SDPTypeOffer)
	if err != nil {
		return fmt.Errorf("failed to decode offer SDP: %w", err)
	}

	if err := s.sdp.SetRemoteDescription(peerConn, offerSD); err != nil {
		return err
	}

	if _, err := s.sdp.CreateAnswer(peerConn); err != nil {
		return fmt.Errorf("failed to create answer: %w", err)
	}

	finalAnswer, err := s.sdp.WaitForICEGathering(ctx, peerConn)
	if err != nil {
		return fmt.Errorf("failed to wait for ICE gathering: %w", err)
	}

	encodedAnswer, err := encodeSDP(*finalAnswer)
	if err != nil {
		return fmt.Errorf("failed to encode answer SDP: %w", err)
	}

	if err := s.server.UpdateAnswer(ctx, sessionID, encodedAnswer); err != nil {
		return fmt.Errorf("failed to upload answer: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "StartReceiverSignallingProcess",
		"session_id": sessionID,
	}).Info("Answer published")
	return nil
}

// ClearSession deletes a session by its ID
func (s *SignalingService) ClearSession(ctx context.Context, sessionID string) error {
	return s.server.DeleteSession(ctx, sessionID)
}
