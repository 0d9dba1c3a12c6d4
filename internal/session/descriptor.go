// Package session models the identity of one transfer attempt and the
// pairing URL that carries it from the sender to the receiver.
package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidPairingURL is returned when a pairing URL lacks an id or role.
var ErrInvalidPairingURL = errors.New("invalid pairing URL")

// Role tags which side of a session a peer plays.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleSender || r == RoleReceiver
}

const (
	idParam   = "id="
	roleParam = "&role="
)

// Descriptor identifies one transfer attempt and a peer's side of it.
// Values are immutable; derive new ones instead of mutating.
type Descriptor struct {
	ID   string
	Role Role
}

// New creates a fresh sender descriptor with a random token.
func New() Descriptor {
	return Descriptor{
		ID:   uuid.NewString(),
		Role: RoleSender,
	}
}

// ForReceiver returns the receiver's descriptor for the same session.
func (d Descriptor) ForReceiver() Descriptor {
	return Descriptor{ID: d.ID, Role: RoleReceiver}
}

// Query returns the "id=<ID>&role=<role>" query component.
func (d Descriptor) Query() string {
	return idParam + url.QueryEscape(d.ID) + roleParam + string(d.Role)
}

// URL joins the descriptor onto base, e.g. "ws://host:8080" becomes
// "ws://host:8080/?id=<ID>&role=sender".
func (d Descriptor) URL(base string) string {
	return strings.TrimSuffix(base, "/") + "/?" + d.Query()
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s (%s)", d.ID, d.Role)
}

// ReceiverURL turns a captured sender pairing URL into the receiver's join URL.
func ReceiverURL(pairingURL string) string {
	return strings.Replace(pairingURL, "role="+string(RoleSender), "role="+string(RoleReceiver), 1)
}

// DisplayID extracts the session token shown to the user: the text between
// "id=" and "&role=". It returns the empty string if either marker is missing.
func DisplayID(pairingURL string) string {
	start := strings.Index(pairingURL, idParam)
	end := strings.LastIndex(pairingURL, roleParam)
	if start < 0 || end < 0 || end < start+len(idParam) {
		return ""
	}
	return pairingURL[start+len(idParam) : end]
}

// Parse reads a descriptor back out of a pairing or join URL.
func Parse(rawURL string) (Descriptor, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %v", ErrInvalidPairingURL, err)
	}

	q := u.Query()
	d := Descriptor{
		ID:   q.Get("id"),
		Role: Role(q.Get("role")),
	}
	if d.ID == "" {
		return Descriptor{}, fmt.Errorf("%w: missing id", ErrInvalidPairingURL)
	}
	if !d.Role.Valid() {
		return Descriptor{}, fmt.Errorf("%w: unknown role %q", ErrInvalidPairingURL, d.Role)
	}
	return d, nil
}

// Base returns the pairing URL with its query and trailing slash removed,
// i.e. the endpoint both peers dial.
func Base(rawURL string) string {
	if i := strings.Index(rawURL, "?"); i >= 0 {
		rawURL = rawURL[:i]
	}
	return strings.TrimSuffix(rawURL, "/")
}
