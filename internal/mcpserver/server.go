// Package mcpserver exposes the session coordinator to MCP clients over SSE,
// so agents can follow and drive route negotiation the same way an operator
// does in the TUI.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"tunnelctl/internal/config"
	"tunnelctl/pkg/logging"
)

const (
	subsystem = "MCP"

	serverName      = "tunnelctl"
	shutdownTimeout = 5 * time.Second
)

// Server serves the coordinator tools over SSE.
type Server struct {
	cfg     config.MCPConfig
	version string
	tools   *Tools

	mu        sync.Mutex
	mcpServer *server.MCPServer
	sseServer *server.SSEServer
	serveErr  chan error
}

// NewServer creates an MCP server for ctrl. Empty host and port fall back to
// the configuration defaults.
func NewServer(cfg config.MCPConfig, version string, ctrl Controller) *Server {
	if cfg.Host == "" {
		cfg.Host = config.DefaultMCPHost
	}
	if cfg.Port == 0 {
		cfg.Port = config.DefaultMCPPort
	}
	if version == "" {
		version = "dev"
	}
	return &Server{cfg: cfg, version: version, tools: NewTools(ctrl)}
}

// Addr is the address the SSE endpoint listens on.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start registers the tools and starts serving in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mcpServer != nil {
		return fmt.Errorf("mcp server already started")
	}

	s.mcpServer = server.NewMCPServer(
		serverName,
		s.version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	s.mcpServer.AddTools(s.tools.ServerTools()...)

	s.sseServer = server.NewSSEServer(
		s.mcpServer,
		server.WithBaseURL("http://"+s.Addr()),
		server.WithSSEEndpoint("/sse"),
		server.WithMessageEndpoint("/message"),
		server.WithKeepAlive(true),
		server.WithKeepAliveInterval(30*time.Second),
	)

	addr := s.Addr()
	logging.Info(subsystem, "Starting MCP tool server on %s", addr)

	sseServer := s.sseServer
	s.serveErr = make(chan error, 1)
	serveErr := s.serveErr
	go func() {
		err := sseServer.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(subsystem, err, "SSE server error")
			serveErr <- err
		}
		close(serveErr)
	}()
	return nil
}

// Stop shuts the SSE server down.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	sseServer := s.sseServer
	s.sseServer = nil
	s.mu.Unlock()

	if sseServer == nil {
		return fmt.Errorf("mcp server not started")
	}

	logging.Info(subsystem, "Stopping MCP tool server")
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := sseServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down mcp server: %w", err)
	}
	return nil
}

// Errors delivers a serve failure, then closes once serving has ended.
// It is nil before Start.
func (s *Server) Errors() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.serveErr
}
