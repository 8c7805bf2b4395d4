package rpcapi

import (
	"errors"
	"net"
	"sync"

	"google.golang.org/grpc"

	"github.com/xlnnetwork/xln/internal/replay"
	"github.com/xlnnetwork/xln/internal/server"
)

// Server is the egress gRPC server. Like the teacher's own
// internal/grpc.Server, it never registers a protoc-generated
// ServiceDesc (none of the teacher's grpc package does either — its
// handlers.go is plain Go request/response structs with no
// RegisterService call); *grpc.Server here exists to host the
// connection lifecycle (listener, graceful stop, message size limits)
// around hand-rolled handlers (handlers.go) that are plain Go methods
// on Server; no RPC method is registered on the wire, and
// GetGRPCServer leaves room to register a real ServiceDesc.
type Server struct {
	mu sync.RWMutex

	grpcServer *grpc.Server
	runtime    *replay.Runtime
	srv        *server.Server
	frameLog   replay.FrameLog
	config     *ServerConfig
	listener   net.Listener
	running    bool
}

// NewServer creates a new gRPC server bound to a replay.Runtime. log
// is the same FrameLog the Runtime persists to, needed directly by
// GetState to rebuild a non-tip tick.
func NewServer(cfg *ServerConfig, rt *replay.Runtime, srv *server.Server, log replay.FrameLog) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
	)
	return &Server{grpcServer: grpcServer, runtime: rt, srv: srv, frameLog: log, config: cfg}, nil
}

// Start starts the gRPC server and blocks until it stops.
func (s *Server) Start() error {
	listener, err := s.bind()
	if err != nil {
		return err
	}
	return s.grpcServer.Serve(listener)
}

// StartAsync starts the gRPC server in a goroutine.
func (s *Server) StartAsync() error {
	listener, err := s.bind()
	if err != nil {
		return err
	}
	go func() { _ = s.grpcServer.Serve(listener) }()
	return nil
}

func (s *Server) bind() (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, errors.New("rpcapi: server is already running")
	}
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return nil, err
	}
	s.listener = listener
	s.running = true
	return listener, nil
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.grpcServer.GracefulStop()
	s.running = false
}

// IsRunning reports whether the server is currently serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Address returns the address the server is bound to, once running.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// GetGRPCServer returns the underlying grpc.Server, for registering a
// generated ServiceDesc once one exists.
func (s *Server) GetGRPCServer() *grpc.Server {
	return s.grpcServer
}
