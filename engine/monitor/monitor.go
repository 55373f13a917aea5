// Package monitor exposes bake progress over a websocket endpoint so external
// tooling can watch long bakes converge without attaching a debugger.
package monitor

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Snapshot is one JSON frame of bake progress sent to every connected client.
type Snapshot struct {
	Type          string  `json:"type"`
	State         string  `json:"state"`
	NumCube       int     `json:"numCube"`
	NumGrid       int     `json:"numGrid"`
	NumRenderCube int     `json:"numRenderCube"`
	NumRenderGrid int     `json:"numRenderGrid"`
	UpdatedBounce int     `json:"updatedBounce"`
	WorldReady    bool    `json:"worldReady"`
	BakesPerSec   float64 `json:"bakesPerSec"`
	Time          float64 `json:"time"`
}

// monitorImpl is the implementation of the Monitor interface.
type monitorImpl struct {
	addr     string
	interval time.Duration

	upgrader websocket.Upgrader

	// Each connection carries its own write mutex so broadcasts and the
	// initial send never interleave frames on the same socket.
	clients      map[*websocket.Conn]*sync.Mutex
	clientsMutex sync.RWMutex

	snapMu sync.Mutex
	latest Snapshot

	server    *http.Server
	boundAddr string
	done      chan struct{}
	stopOnce  sync.Once // Ensures done is only closed once
}

// Monitor broadcasts bake-progress snapshots to websocket clients. The
// render loop publishes snapshots; the monitor fans the latest one out on its
// own cadence, so a slow client never stalls a frame.
type Monitor interface {
	// Start begins serving the websocket endpoint and the broadcast loop.
	//
	// Returns:
	//   - error: an error if the listener could not be started
	Start() error

	// Addr returns the address the monitor is actually listening on, which
	// differs from the configured address when port 0 was requested.
	// Empty until Start succeeds.
	//
	// Returns:
	//   - string: the bound host:port
	Addr() string

	// Stop closes the endpoint and disconnects all clients.
	// Safe to call multiple times; subsequent calls are no-ops.
	Stop()

	// Publish records the latest bake snapshot for broadcasting. Safe to
	// call from the render loop every frame.
	//
	// Parameters:
	//   - snap: the snapshot to publish
	Publish(snap Snapshot)
}

var _ Monitor = &monitorImpl{}

// NewMonitor creates a bake monitor with the specified options.
// Defaults: listen on :9190, broadcast at 10 Hz.
//
// Parameters:
//   - options: functional options to configure the monitor
//
// Returns:
//   - Monitor: the configured monitor (not yet started)
func NewMonitor(options ...MonitorBuilderOption) Monitor {
	m := &monitorImpl{
		addr:     ":9190",
		interval: 100 * time.Millisecond,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local tooling endpoint, any origin
			},
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
		done:    make(chan struct{}),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *monitorImpl) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", m.handleWebSocket)

	m.server = &http.Server{Addr: m.addr, Handler: mux}

	ln, err := newListener(m.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.addr, err)
	}
	m.boundAddr = ln.Addr().String()

	go func() {
		if serveErr := m.server.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Printf("[BakeMonitor] server error: %v", serveErr)
		}
	}()
	go m.broadcastLoop()

	log.Printf("[BakeMonitor] listening on %s", m.boundAddr)
	return nil
}

func (m *monitorImpl) Addr() string {
	return m.boundAddr
}

func (m *monitorImpl) Stop() {
	m.stopOnce.Do(func() {
		close(m.done)
		if m.server != nil {
			m.server.Close()
		}

		m.clientsMutex.Lock()
		for conn := range m.clients {
			conn.Close()
			delete(m.clients, conn)
		}
		m.clientsMutex.Unlock()
	})
}

func (m *monitorImpl) Publish(snap Snapshot) {
	snap.Type = "bakeProgress"
	snap.Time = float64(time.Now().UnixMilli()) / 1000.0

	m.snapMu.Lock()
	m.latest = snap
	m.snapMu.Unlock()
}

func (m *monitorImpl) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[BakeMonitor] websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	connMutex := &sync.Mutex{}
	m.clientsMutex.Lock()
	m.clients[conn] = connMutex
	m.clientsMutex.Unlock()
	defer func() {
		m.clientsMutex.Lock()
		delete(m.clients, conn)
		m.clientsMutex.Unlock()
	}()

	// Send the current state immediately so a new client doesn't wait a tick.
	m.snapMu.Lock()
	snap := m.latest
	m.snapMu.Unlock()
	connMutex.Lock()
	conn.WriteJSON(snap)
	connMutex.Unlock()

	// Drain incoming messages until the client hangs up; the monitor is
	// broadcast-only.
	for {
		if _, _, readErr := conn.ReadMessage(); readErr != nil {
			return
		}
	}
}

func (m *monitorImpl) broadcastLoop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.broadcast()
		}
	}
}

func (m *monitorImpl) broadcast() {
	m.snapMu.Lock()
	snap := m.latest
	m.snapMu.Unlock()

	m.clientsMutex.RLock()
	var stale []*websocket.Conn
	for conn, mutex := range m.clients {
		mutex.Lock()
		err := conn.WriteJSON(snap)
		mutex.Unlock()
		if err != nil {
			stale = append(stale, conn)
		}
	}
	m.clientsMutex.RUnlock()

	if len(stale) > 0 {
		m.clientsMutex.Lock()
		for _, conn := range stale {
			conn.Close()
			delete(m.clients, conn)
		}
		m.clientsMutex.Unlock()
	}
}
