package signalling

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// ErrInvalidSDP is returned when a stored offer or answer cannot be used.
var ErrInvalidSDP = errors.New("invalid session description")

// encodeSDP packs a session description into the base64 JSON form stored
// in the session record.
func encodeSDP(sd webrtc.SessionDescription) (string, error) {
	if sd.SDP == "" {
		return "", fmt.Errorf("%w: empty %s", ErrInvalidSDP, sd.Type)
	}

	data, err := json.Marshal(sd)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", sd.Type, err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// decodeSDP unpacks a stored session description and checks it is of the
// expected type.
func decodeSDP(encoded string, want webrtc.SDPType) (webrtc.SessionDescription, error) {
	var sd webrtc.SessionDescription
	if encoded == "" {
		return sd, fmt.Errorf("%w: no %s stored", ErrInvalidSDP, want)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return sd, fmt.Errorf("%w: %s is not base64: %v", ErrInvalidSDP, want, err)
	}
	if err := json.Unmarshal(data, &sd); err != nil {
		return sd, fmt.Errorf("%w: %s is not JSON (%d bytes): %v", ErrInvalidSDP, want, len(data), err)
	}

	if sd.Type != want {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: got %s, want %s", ErrInvalidSDP, sd.Type, want)
	}
	if sd.SDP == "" {
		return webrtc.SessionDescription{}, fmt.Errorf("%w: empty %s", ErrInvalidSDP, want)
	}
	return sd, nil
}
