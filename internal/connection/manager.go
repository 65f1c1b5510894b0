package connection

import (
	"fmt"
	"net"
	"sync"
	"time"
)

// ClientInfo holds information about a connected engine gateway
type ClientInfo struct {
	ConnectionID  string
	EngineID      string
	Vessel        string
	ConnectedAt   time.Time
	LastHeardFrom time.Time
	Conn          net.Conn
	mu            sync.RWMutex
}

// UpdateLastHeardFrom updates the last activity timestamp
func (c *ClientInfo) UpdateLastHeardFrom() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastHeardFrom = time.Now()
}

// GetLastHeardFrom returns the last activity timestamp
func (c *ClientInfo) GetLastHeardFrom() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LastHeardFrom
}

// Manager manages all active gateway connections
type Manager struct {
	clients  map[string]*ClientInfo // key: connection_id
	byEngine map[string][]string    // key: engine_id, value: []connection_id
	mu       sync.RWMutex
	maxConns int
}

// NewManager creates a new connection manager
func NewManager(maxConnections int) *Manager {
	return &Manager{
		clients:  make(map[string]*ClientInfo),
		byEngine: make(map[string][]string),
		maxConns: maxConnections,
	}
}

// Register adds a new gateway connection
func (m *Manager) Register(connectionID, engineID, vessel string, conn net.Conn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.clients) >= m.maxConns {
		return ErrMaxConnectionsReached
	}

	if _, exists := m.clients[connectionID]; exists {
		return fmt.Errorf("connection ID %s already registered", connectionID)
	}

	now := time.Now()
	clientInfo := &ClientInfo{
		ConnectionID:  connectionID,
		EngineID:      engineID,
		Vessel:        vessel,
		ConnectedAt:   now,
		LastHeardFrom: now,
		Conn:          conn,
	}

	m.clients[connectionID] = clientInfo
	m.byEngine[engineID] = append(m.byEngine[engineID], connectionID)

	return nil
}

// Unregister removes a gateway connection
func (m *Manager) Unregister(connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, exists := m.clients[connectionID]
	if !exists {
		return fmt.Errorf("connection ID %s not found", connectionID)
	}

	engineID := client.EngineID
	if connIDs, ok := m.byEngine[engineID]; ok {
		for i, id := range connIDs {
			if id == connectionID {
				m.byEngine[engineID] = append(connIDs[:i], connIDs[i+1:]...)
				break
			}
		}
		if len(m.byEngine[engineID]) == 0 {
			delete(m.byEngine, engineID)
		}
	}

	delete(m.clients, connectionID)

	return nil
}

// Get retrieves client information by connection ID
func (m *Manager) Get(connectionID string) (*ClientInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.clients[connectionID]
	return client, exists
}

// GetByEngine retrieves all connection IDs for an engine
func (m *Manager) GetByEngine(engineID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	connIDs := m.byEngine[engineID]
	// Return a copy to avoid race conditions
	result := make([]string, len(connIDs))
	copy(result, connIDs)
	return result
}

// UpdateActivity updates the last heard from timestamp for a connection
func (m *Manager) UpdateActivity(connectionID string) error {
	m.mu.RLock()
	client, exists := m.clients[connectionID]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("connection ID %s not found", connectionID)
	}

	client.UpdateLastHeardFrom()
	return nil
}

// GetInactiveConnections returns connection IDs that haven't been heard from in the given duration
func (m *Manager) GetInactiveConnections(timeout time.Duration) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var inactive []string

	for connID, client := range m.clients {
		lastHeard := client.GetLastHeardFrom()
		if now.Sub(lastHeard) > timeout {
			inactive = append(inactive, connID)
		}
	}

	return inactive
}

// Count returns the total number of active connections
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// CountByEngine returns the number of active connections per engine
func (m *Manager) CountByEngine() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]int)
	for engineID, connIDs := range m.byEngine {
		result[engineID] = len(connIDs)
	}
	return result
}

// Stats returns statistics about the connection manager
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ManagerStats{
		TotalConnections: len(m.clients),
		UniqueEngines:    len(m.byEngine),
		MaxConnections:   m.maxConns,
	}
}

// ManagerStats contains statistics about the connection manager
type ManagerStats struct {
	TotalConnections int
	UniqueEngines    int
	MaxConnections   int
}

var (
	ErrMaxConnectionsReached = &ConnectionError{"maximum connections reached"}
)

// ConnectionError represents a connection error
type ConnectionError struct {
	msg string
}

func (e *ConnectionError) Error() string {
	return e.msg
}
