package plclink

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionWatchdogTracksEventsAndStats(t *testing.T) {
	w := NewConnectionWatchdog(4)
	if err := w.Initialize(nil); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	discErr := errors.New("network down")
	if err := w.OnDisconnected(nil, discErr); err != nil {
		t.Fatalf("OnDisconnected: %v", err)
	}

	evt1 := <-w.Events()
	if evt1.Type != ConnectionEventDisconnected {
		t.Fatalf("expected disconnected event, got %v", evt1.Type)
	}
	if evt1.Err == nil || evt1.Err.Error() != discErr.Error() {
		t.Fatalf("expected error %v, got %v", discErr, evt1.Err)
	}

	time.Sleep(10 * time.Millisecond)

	if err := w.OnConnected(nil); err != nil {
		t.Fatalf("OnConnected: %v", err)
	}

	evt2 := <-w.Events()
	if evt2.Type != ConnectionEventConnected {
		t.Fatalf("expected connected event, got %v", evt2.Type)
	}
	if evt2.Downtime <= 0 {
		t.Fatalf("expected downtime >0, got %v", evt2.Downtime)
	}

	stats := w.Stats()
	if !stats.Connected {
		t.Fatalf("expected connected")
	}
	if stats.Connects != 1 || stats.PeerCloses != 1 {
		t.Fatalf("expected 1 connect and 1 peer close, got %d/%d", stats.Connects, stats.PeerCloses)
	}
	if stats.LastDisconnectErr == nil || stats.LastDisconnectErr.Error() != discErr.Error() {
		t.Fatalf("expected last error %v, got %v", discErr, stats.LastDisconnectErr)
	}
	if stats.TotalDowntime <= 0 {
		t.Fatalf("expected total downtime >0, got %v", stats.TotalDowntime)
	}
	if stats.CurrentDowntime != 0 {
		t.Fatalf("expected zero current downtime after reconnect, got %v", stats.CurrentDowntime)
	}
}

func TestConnectionWatchdogFollowsClient(t *testing.T) {
	tr := &scriptedTransport{readErr: io.EOF}
	c, err := NewClientWithTransport(ProtocolMC3E, tr, 50*time.Millisecond)
	require.NoError(t, err)

	w := NewConnectionWatchdog(0)
	require.NoError(t, c.Use(w))

	require.NoError(t, c.Connect(context.Background()))
	evt := <-w.Events()
	assert.Equal(t, ConnectionEventConnected, evt.Type)
	assert.Equal(t, ProtocolMC3E, evt.Protocol)

	// Peer hangs up mid-read.
	_, err = c.Read(context.Background(), "D0", Word, 1)
	assert.Equal(t, KindCommunication, KindOf(err))
	assert.False(t, c.IsConnected())

	evt = <-w.Events()
	assert.Equal(t, ConnectionEventDisconnected, evt.Type)
	assert.Error(t, evt.Err)

	stats := w.Stats()
	assert.False(t, stats.Connected)
	assert.Equal(t, 1, stats.PeerCloses)

	// A requested disconnect on an already released transport emits nothing.
	require.NoError(t, c.Disconnect())
	select {
	case evt := <-w.Events():
		t.Fatalf("unexpected event %+v", evt)
	default:
	}
}
