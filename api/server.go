package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
)

// ConvertServer is a TCP server that converts Arrow IPC messages
// into BSON document payloads.
type ConvertServer struct {
	listener net.Listener
	handler  *ConvertHandler
	auth     *Authenticator
	running  bool
	mu       sync.Mutex
	quit     chan struct{}
}

// NewConvertServer creates a new ConvertServer instance.
func NewConvertServer() *ConvertServer {
	return &ConvertServer{
		handler: NewConvertHandler(),
		auth:    NewAuthenticatorFromEnv(),
		quit:    make(chan struct{}),
	}
}

// Addr returns the address the server is listening on, or "" when stopped.
func (s *ConvertServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start starts the convert server on the specified address.
// This method blocks until the server is stopped or fails.
func (s *ConvertServer) Start(address string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	lis, err := net.Listen("tcp", address)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.listener = lis
	s.running = true
	s.mu.Unlock()

	defer s.Stop()

	for {
		conn, err := lis.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				continue
			}
		}

		go s.handleConnection(conn)
	}
}

// StartAsync starts the server in a background goroutine.
func (s *ConvertServer) StartAsync(address string) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	lis, err := net.Listen("tcp", address)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	s.listener = lis
	s.running = true
	s.mu.Unlock()

	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				select {
				case <-s.quit:
					return
				default:
					continue
				}
			}
			go s.handleConnection(conn)
		}
	}()

	return nil
}

// Stop stops the server.
func (s *ConvertServer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.running = false
	close(s.quit)
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			_ = err
		}
	}
}

// handleConnection handles a single client connection. When auth is
// enabled the first message must be an AuthMessage handshake; every
// message after that is an Arrow IPC request.
func (s *ConvertServer) handleConnection(conn net.Conn) {
	defer conn.Close()

	if s.auth.IsEnabled() {
		if err := s.authenticate(conn); err != nil {
			return
		}
	}

	for {
		data, err := ReadMessage(conn)
		if err != nil {
			if err != io.EOF {
				_ = err
			}
			return
		}

		start := time.Now()
		payload, err := s.handler.ProcessBatch(data)
		if err != nil {
			s.handler.metrics.RecordRequest("tcp", "error", time.Since(start))
			if werr := writeResponse(conn, StatusError, []byte(err.Error())); werr != nil {
				return
			}
			continue
		}

		s.handler.metrics.RecordRequest("tcp", "ok", time.Since(start))
		if err := writeResponse(conn, StatusOK, payload); err != nil {
			return
		}
	}
}

// authenticate runs the token handshake on a new connection.
func (s *ConvertServer) authenticate(conn net.Conn) error {
	data, err := ReadMessage(conn)
	if err != nil {
		return err
	}

	var msg AuthMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "auth" {
		writeAuthResponse(conn, AuthResponse{Success: false, Error: ErrAuthTokenInvalid.Error()})
		return ErrAuthTokenInvalid
	}

	if err := s.auth.ValidateToken(msg.Token); err != nil {
		writeAuthResponse(conn, AuthResponse{Success: false, Error: err.Error()})
		return err
	}

	return writeAuthResponse(conn, AuthResponse{Success: true})
}

func writeAuthResponse(conn net.Conn, resp AuthResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return WriteMessage(conn, data)
}

// writeResponse frames a reply as a status byte followed by the payload.
func writeResponse(conn net.Conn, status byte, payload []byte) error {
	framed := make([]byte, 0, len(payload)+1)
	framed = append(framed, status)
	framed = append(framed, payload...)
	return WriteMessage(conn, framed)
}
