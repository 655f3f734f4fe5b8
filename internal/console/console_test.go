package console

import (
	"bytes"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCueAddress(t *testing.T) {
	addr, err := CueAddress(1, "12.5")
	require.NoError(t, err)
	assert.Equal(t, "/eos/cue/1/12.5/fire", addr)

	addr, err = CueAddress(2, " 007 ")
	require.NoError(t, err)
	assert.Equal(t, "/eos/cue/2/7/fire", addr)

	for _, bad := range []string{"", "A", "0", "-3"} {
		_, err := CueAddress(1, bad)
		assert.ErrorIs(t, err, ErrInvalidCue, bad)
	}
}

func TestOSCConsole_FireCue(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	console := NewOSCConsole("127.0.0.1", port, 3, nil)
	require.NoError(t, console.FireCue(context.Background(), "42"))

	buf := make([]byte, 512)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf[:n], []byte("/eos/cue/3/42/fire")))

	assert.ErrorIs(t, console.FireCue(context.Background(), "intermission"), ErrInvalidCue)
}
