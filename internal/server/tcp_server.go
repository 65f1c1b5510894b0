package server

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/poseidoneye/perception-server/internal/connection"
	"github.com/poseidoneye/perception-server/internal/protocol"
	"github.com/poseidoneye/perception-server/internal/queue"
	"github.com/poseidoneye/perception-server/internal/timer"
	"github.com/poseidoneye/perception-server/pkg/config"
)

// TCPServer accepts engine gateway connections and forwards their telemetry
// to the broker, keyed by engine ID so per-engine ordering is preserved.
type TCPServer struct {
	config      *config.TCPServerConfig
	connManager *connection.Manager
	scheduler   *timer.Scheduler
	producer    *queue.Producer
	listener    net.Listener
	wg          sync.WaitGroup
	stopCh      chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewTCPServer creates a new TCP server
func NewTCPServer(cfg *config.TCPServerConfig, connManager *connection.Manager, scheduler *timer.Scheduler, producer *queue.Producer) *TCPServer {
	ctx, cancel := context.WithCancel(context.Background())
	return &TCPServer{
		config:      cfg,
		connManager: connManager,
		scheduler:   scheduler,
		producer:    producer,
		stopCh:      make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the TCP server
func (s *TCPServer) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}

	s.listener = listener
	fmt.Printf("TCP server listening on %s\n", addr)

	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Stop stops the TCP server gracefully
func (s *TCPServer) Stop() {
	close(s.stopCh)
	s.cancel()

	if s.listener != nil {
		s.listener.Close()
	}

	s.wg.Wait()
	fmt.Println("TCP server stopped")
}

func (s *TCPServer) acceptConnections() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				fmt.Printf("Failed to accept connection: %v\n", err)
				continue
			}
		}

		if s.connManager.Count() >= s.config.MaxConnections {
			fmt.Println("Maximum connections reached, rejecting connection")
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *TCPServer) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	connectionID := uuid.New().String()
	fmt.Printf("New connection: %s from %s\n", connectionID, conn.RemoteAddr())

	// The gateway must identify itself before anything else
	conn.SetReadDeadline(time.Now().Add(s.config.IdentifyTimeout))

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		fmt.Printf("Failed to read identify message: %v\n", err)
		return
	}

	msg, err := protocol.ParseMessage([]byte(line))
	if err != nil {
		fmt.Printf("Failed to parse identify message: %v\n", err)
		s.sendError(conn)
		return
	}

	identifyMsg, ok := msg.(*protocol.IdentifyMessage)
	if !ok {
		fmt.Printf("Expected identify message, got %T\n", msg)
		s.sendError(conn)
		return
	}

	if err := s.connManager.Register(connectionID, identifyMsg.EngineID, identifyMsg.Vessel, conn); err != nil {
		fmt.Printf("Failed to register gateway: %v\n", err)
		s.sendError(conn)
		return
	}
	defer s.connManager.Unregister(connectionID)

	fmt.Printf("Gateway identified: %s (engine=%s, vessel=%s)\n", connectionID, identifyMsg.EngineID, identifyMsg.Vessel)

	ack := protocol.NewAckMessage(protocol.AckStatusIdentified)
	if err := s.sendMessage(conn, ack); err != nil {
		fmt.Printf("Failed to send ack: %v\n", err)
		return
	}

	s.scheduleInactivityTimer(connectionID)

	// Clear read deadline for normal operation
	conn.SetReadDeadline(time.Time{})

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		line, err := reader.ReadString('\n')
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			fmt.Printf("Connection %s closed: %v\n", connectionID, err)
			return
		}

		msg, err := protocol.ParseMessage([]byte(line))
		if err != nil {
			fmt.Printf("Failed to parse message: %v\n", err)
			continue
		}

		if err := s.handleMessage(connectionID, identifyMsg.EngineID, identifyMsg.Vessel, msg, conn); err != nil {
			fmt.Printf("Failed to handle message: %v\n", err)
		}

		s.connManager.UpdateActivity(connectionID)
		s.scheduleInactivityTimer(connectionID)
	}
}

func (s *TCPServer) handleMessage(connectionID, engineID, vessel string, msg interface{}, conn net.Conn) error {
	switch m := msg.(type) {
	case *protocol.TelemetryMessage:
		return s.handleTelemetry(connectionID, engineID, vessel, m)

	case *protocol.KeepaliveMessage:
		return s.handleKeepalive(conn)

	default:
		return fmt.Errorf("unknown message type: %T", msg)
	}
}

func (s *TCPServer) handleTelemetry(connectionID, engineID, vessel string, msg *protocol.TelemetryMessage) error {
	reading := &protocol.ReadingMessage{
		ConnectionID: connectionID,
		EngineID:     engineID,
		Vessel:       vessel,
		ReceivedAt:   time.Now(),
		Data:         msg.Data,
	}

	data, err := protocol.EncodeReadingMessage(reading)
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	// Key by engine ID so all readings from one engine land on one partition
	if err := s.producer.Publish(s.ctx, engineID, data); err != nil {
		return fmt.Errorf("failed to publish reading: %w", err)
	}

	return nil
}

func (s *TCPServer) handleKeepalive(conn net.Conn) error {
	ack := protocol.NewAckMessage(protocol.AckStatusAlive)
	return s.sendMessage(conn, ack)
}

func (s *TCPServer) sendMessage(conn net.Conn, msg interface{}) error {
	data, err := protocol.EncodeMessage(msg)
	if err != nil {
		return err
	}

	_, err = conn.Write(append(data, '\n'))
	return err
}

func (s *TCPServer) sendError(conn net.Conn) {
	ack := protocol.NewAckMessage(protocol.AckStatusError)
	s.sendMessage(conn, ack)
}

func (s *TCPServer) scheduleInactivityTimer(connectionID string) {
	timerID := fmt.Sprintf("inactivity-%s", connectionID)
	expiryAt := time.Now().Add(s.config.InactivityTimeout)

	callback := func() {
		fmt.Printf("Inactivity timeout for connection %s\n", connectionID)

		client, exists := s.connManager.Get(connectionID)
		if !exists {
			return
		}

		// Closing the connection unblocks the read loop, which unregisters
		client.Conn.Close()
	}

	s.scheduler.Schedule(timerID, expiryAt, callback)
}
