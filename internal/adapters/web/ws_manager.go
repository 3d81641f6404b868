package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fleetwatch/fleetwatch/internal/core/domain"
	"github.com/fleetwatch/fleetwatch/internal/core/ports"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards connect from other origins; the API carries no browser
	// credentials so cross-origin upgrades are fine.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSMessage is the envelope for every websocket push.
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WSManager pushes cluster snapshots and outlier alerts to connected
// dashboard clients.
type WSManager struct {
	coordinator ports.Coordinator
	logger      *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	// snapshotInterval controls the periodic cluster broadcast.
	snapshotInterval time.Duration
}

var _ ports.OutlierNotifier = (*WSManager)(nil)

// NewWSManager creates a manager that snapshots the cluster every
// interval. Pass 0 for the default of 5 seconds.
func NewWSManager(coordinator ports.Coordinator, interval time.Duration, logger *slog.Logger) *WSManager {
	if logger == nil {
		logger = slog.Default()
	}
	if interval == 0 {
		interval = 5 * time.Second
	}
	return &WSManager{
		coordinator:      coordinator,
		logger:           logger,
		clients:          make(map[*websocket.Conn]bool),
		snapshotInterval: interval,
	}
}

// Start runs the periodic snapshot broadcaster until ctx is cancelled.
func (m *WSManager) Start(ctx context.Context) {
	go m.processAndBroadcast(ctx)
}

// HandleWebSocket upgrades the connection and tracks the client.
func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	m.mu.Lock()
	m.clients[conn] = true
	m.mu.Unlock()
	m.logger.Debug("websocket connected", "remote", conn.RemoteAddr().String())

	// Clients never send anything useful; the read loop only detects the
	// close frame.
	go func() {
		defer conn.Close()
		defer func() {
			m.mu.Lock()
			delete(m.clients, conn)
			m.mu.Unlock()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (m *WSManager) processAndBroadcast(ctx context.Context) {
	ticker := time.NewTicker(m.snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.broadcastSnapshot()
		}
	}
}

func (m *WSManager) broadcastSnapshot() {
	snapshot, err := m.coordinator.ClusterStats()
	if err != nil {
		m.logger.Warn("cluster snapshot failed", "error", err)
		return
	}
	m.broadcastMessage(WSMessage{Type: "cluster.snapshot", Payload: snapshot})
}

// NotifyOutlier pushes an outlier alert to every connected client.
func (m *WSManager) NotifyOutlier(info domain.OutlierInfo) {
	m.broadcastMessage(WSMessage{Type: "outlier.alert", Payload: info})
}

// BroadcastScanStarted announces a newly launched scan.
func (m *WSManager) BroadcastScanStarted(job domain.ScanJob) {
	m.broadcastMessage(WSMessage{Type: "scan.started", Payload: job})
}

// ClientCount returns the number of connected clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

func (m *WSManager) broadcastMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Warn("websocket marshal failed", "error", err)
		return
	}

	m.mu.Lock()
	for conn := range m.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(m.clients, conn)
		}
	}
	m.mu.Unlock()
}
