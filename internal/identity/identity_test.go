package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPair(t *testing.T) {
	tests := []struct {
		name        string
		pin         string
		displayName string
		userID      string
		wantErr     bool
		wantName    string
	}{
		{name: "valid", pin: "4821", displayName: "Alice", userID: "u1", wantName: "Alice"},
		{name: "empty display name defaults", pin: "4821", displayName: "", userID: "u1", wantName: DefaultDisplayName},
		{name: "pin too short", pin: "482", displayName: "Alice", userID: "u1", wantErr: true},
		{name: "pin too long", pin: "48215", displayName: "Alice", userID: "u1", wantErr: true},
		{name: "pin not digits", pin: "48a1", displayName: "Alice", userID: "u1", wantErr: true},
		{name: "missing user id", pin: "4821", displayName: "Alice", userID: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Pair(tt.pin, tt.displayName, tt.userID)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.pin, id.PinCode)
			assert.Equal(t, tt.userID, id.UserID)
			assert.Equal(t, tt.wantName, id.DisplayName)
		})
	}
}

func TestDeviceID_PersistsAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wemeet", "device_id")

	first, err := DeviceID(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := DeviceID(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "device id must be stable across sessions")
}

func TestDeviceID_RegeneratesWhenFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device_id")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	id, err := DeviceID(path)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}
