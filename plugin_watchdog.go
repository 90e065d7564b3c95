package plclink

import (
	"sync"
	"time"
)

// ConnectionEventType describes the type of connection event.
type ConnectionEventType string

const (
	ConnectionEventConnected    ConnectionEventType = "connected"
	ConnectionEventDisconnected ConnectionEventType = "disconnected"
)

// ConnectionEvent is emitted whenever the client connects or disconnects.
type ConnectionEvent struct {
	Time      time.Time
	Type      ConnectionEventType
	Protocol  Protocol
	Endpoint  string
	Err       error         // Set when the peer closed the connection
	Downtime  time.Duration // Time spent disconnected (on connect)
	Connected bool          // Current connection state after the event
}

// ConnectionStats contains snapshot metrics about connection health.
type ConnectionStats struct {
	Connected         bool
	Connects          int
	PeerCloses        int // disconnects not requested through Disconnect
	LastConnected     time.Time
	LastDisconnected  time.Time
	CurrentDowntime   time.Duration
	TotalDowntime     time.Duration
	LastDisconnectErr error
}

// ConnectionWatchdog is a plugin that tracks connection uptime/downtime and emits events.
// Hooks are non-blocking; events are dropped if the channel buffer is full.
//
// Example:
//
//	wd := plclink.NewConnectionWatchdog(0)
//	client.Use(wd)
//	go func() {
//		for evt := range wd.Events() {
//			if evt.Err != nil {
//				// peer hung up: reconnect
//			}
//		}
//	}()
type ConnectionWatchdog struct {
	events chan ConnectionEvent

	mu sync.RWMutex

	// guarded by mu
	connected        bool
	connects         int
	peerCloses       int
	lastConnected    time.Time
	lastDisconnected time.Time
	downtimeStart    time.Time
	totalDowntime    time.Duration
	lastErr          error
}

// NewConnectionWatchdog creates a new watchdog plugin.
// eventBuffer controls the channel buffer size for Events(); use 0 for the default of 16.
func NewConnectionWatchdog(eventBuffer int) *ConnectionWatchdog {
	if eventBuffer <= 0 {
		eventBuffer = 16
	}
	return &ConnectionWatchdog{
		events: make(chan ConnectionEvent, eventBuffer),
	}
}

// Name implements Plugin.
func (w *ConnectionWatchdog) Name() string { return "connection_watchdog" }

// Initialize implements Plugin. A client that is not yet connected starts the downtime clock.
func (w *ConnectionWatchdog) Initialize(c *Client) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if c != nil && c.IsConnected() {
		w.connected = true
		w.lastConnected = time.Now()
		return nil
	}
	w.downtimeStart = time.Now()
	return nil
}

// OnConnected implements ConnectionPlugin.
func (w *ConnectionWatchdog) OnConnected(c *Client) error {
	now := time.Now()
	var downtime time.Duration

	w.mu.Lock()
	if !w.downtimeStart.IsZero() {
		downtime = now.Sub(w.downtimeStart)
		w.totalDowntime += downtime
		w.downtimeStart = time.Time{}
	}
	w.connected = true
	w.connects++
	w.lastConnected = now
	w.mu.Unlock()

	evt := ConnectionEvent{
		Time:      now,
		Type:      ConnectionEventConnected,
		Downtime:  downtime,
		Connected: true,
	}
	describe(&evt, c)
	w.emit(evt)
	return nil
}

// OnDisconnected implements ConnectionPlugin.
func (w *ConnectionWatchdog) OnDisconnected(c *Client, err error) error {
	now := time.Now()

	w.mu.Lock()
	w.connected = false
	w.lastDisconnected = now
	w.downtimeStart = now
	if err != nil {
		w.peerCloses++
		w.lastErr = err
	}
	w.mu.Unlock()

	evt := ConnectionEvent{
		Time:      now,
		Type:      ConnectionEventDisconnected,
		Err:       err,
		Connected: false,
	}
	describe(&evt, c)
	w.emit(evt)
	return nil
}

func describe(evt *ConnectionEvent, c *Client) {
	if c == nil {
		return
	}
	evt.Protocol = c.Protocol()
	evt.Endpoint = c.Endpoint().String()
}

// Events returns a read-only channel of connection events.
func (w *ConnectionWatchdog) Events() <-chan ConnectionEvent {
	return w.events
}

// Stats returns a snapshot of connection health metrics.
func (w *ConnectionWatchdog) Stats() ConnectionStats {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stats := ConnectionStats{
		Connected:         w.connected,
		Connects:          w.connects,
		PeerCloses:        w.peerCloses,
		LastConnected:     w.lastConnected,
		LastDisconnected:  w.lastDisconnected,
		TotalDowntime:     w.totalDowntime,
		LastDisconnectErr: w.lastErr,
	}
	if !w.connected && !w.downtimeStart.IsZero() {
		stats.CurrentDowntime = time.Since(w.downtimeStart)
	}
	return stats
}

func (w *ConnectionWatchdog) emit(evt ConnectionEvent) {
	select {
	case w.events <- evt:
	default:
		// Drop if buffer is full to avoid blocking hooks.
	}
}

// Ensure ConnectionWatchdog satisfies the interfaces.
var _ ConnectionPlugin = (*ConnectionWatchdog)(nil)
var _ Plugin = (*ConnectionWatchdog)(nil)
