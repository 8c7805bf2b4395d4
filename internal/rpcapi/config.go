// Package rpcapi is the server's egress surface: a hand-rolled gRPC
// service (submit input, fetch frames/state, no protoc-generated
// stubs — see server.go's doc comment) plus a gorilla/websocket
// observer feed streaming committed ServerFrames and Events
// (spec.md §6 Egress).
//
// Grounded on LeJamon-goXRPLd's internal/grpc package (ServerConfig,
// Server lifecycle) and internal/rpc/websocket.go (per-connection
// send-channel pattern).
package rpcapi

import (
	"fmt"
	"net"
)

// ServerConfig holds configuration for the gRPC server.
type ServerConfig struct {
	Address        string
	MaxRecvMsgSize int
	MaxSendMsgSize int
}

// DefaultServerConfig returns a ServerConfig with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:        "127.0.0.1:50051",
		MaxRecvMsgSize: 4 * 1024 * 1024,
		MaxSendMsgSize: 4 * 1024 * 1024,
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("rpcapi: address is required")
	}
	host, port, err := net.SplitHostPort(c.Address)
	if err != nil {
		return fmt.Errorf("rpcapi: invalid address format: %w", err)
	}
	if port == "" {
		return fmt.Errorf("rpcapi: port cannot be empty")
	}
	_ = host
	if c.MaxRecvMsgSize <= 0 {
		return fmt.Errorf("rpcapi: max_recv_msg_size must be positive")
	}
	if c.MaxSendMsgSize <= 0 {
		return fmt.Errorf("rpcapi: max_send_msg_size must be positive")
	}
	return nil
}
