// Package identity supplies the pairing values a session is constructed
// with: the device-stable user id, the room pin and the display name.
package identity

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultDisplayName is used when pairing without a chosen name.
const DefaultDisplayName = "newUser"

// ErrInvalidPin rejects pins that are not exactly four digits.
var ErrInvalidPin = errors.New("identity: pin code must be four digits")

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// Identity binds one user to one room for the lifetime of a session. All
// fields are immutable once paired.
type Identity struct {
	PinCode     string
	UserID      string
	DisplayName string
}

// Pair validates the pin and produces the identity the session will carry on
// every outbound event. The session never re-validates these values.
func Pair(pinCode, displayName, userID string) (Identity, error) {
	if !pinPattern.MatchString(pinCode) {
		return Identity{}, ErrInvalidPin
	}
	if userID == "" {
		return Identity{}, errors.New("identity: user id is required")
	}
	if displayName == "" {
		displayName = DefaultDisplayName
	}
	return Identity{PinCode: pinCode, UserID: userID, DisplayName: displayName}, nil
}

// DeviceID returns the stable user id stored at path, generating and
// persisting a new one on first use. The id survives process restarts so the
// same device keeps its identity across sessions.
func DeviceID(path string) (string, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
		// Empty file: fall through and regenerate.
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("read device id: %w", err)
	}

	id := uuid.NewString()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("store device id: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("store device id: %w", err)
	}
	return id, nil
}
