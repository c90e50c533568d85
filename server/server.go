// Package server runs the iterative accept loop. Connections are served one
// at a time, to completion, on the calling goroutine: a slow client or a
// hung CGI program holds up every later client. There are no timeouts.
package server

import (
	"log"

	"github.com/nczempin/tinyhttpd/transport"
)

// Listener is the accepting side the loop drives
type Listener interface {
	Accept() (transport.Conn, error)
	Close() error
}

// Server ties a listener to a handler
type Server struct {
	Listener Listener
	Handler  *Handler
	// Logger, when set, reports per-connection failures.
	Logger *log.Logger
}

// New creates a Server
func New(l Listener, h *Handler, logger *log.Logger) *Server {
	return &Server{
		Listener: l,
		Handler:  h,
		Logger:   logger,
	}
}

// Run accepts and serves connections until Accept fails, and returns that
// error. Each connection is closed before the next Accept.
func (s *Server) Run() error {
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			return err
		}
		s.serve(conn)
	}
}

func (s *Server) serve(conn transport.Conn) {
	defer conn.Close()

	if err := s.Handler.Serve(conn); err != nil && s.Logger != nil {
		s.Logger.Printf("connection failed: %v", err)
	}
}

// Close stops the listener, which makes Run return
func (s *Server) Close() error {
	return s.Listener.Close()
}
