package root

import (
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/roasbeef/quiver/internal/wire"
)

// GRPCClientConfig mirrors the keepalive knobs the teacher's
// internal/api/grpc.ServerConfig exposes on the server side, applied here
// to the client's keepalive.ClientParameters.
type GRPCClientConfig struct {
	// PingTime is how often the client pings an idle connection.
	PingTime time.Duration
	// PingTimeout is how long the client waits for a ping ack before
	// considering the connection dead.
	PingTimeout time.Duration
}

// DefaultGRPCClientConfig mirrors the teacher's DefaultServerConfig
// keepalive defaults.
func DefaultGRPCClientConfig() GRPCClientConfig {
	return GRPCClientConfig{
		PingTime:    5 * time.Minute,
		PingTimeout: 1 * time.Minute,
	}
}

// NewGRPCClient dials addr and returns a wire.SearchServiceClient over it.
// Per spec.md §6's "lazy reconnect is mandatory": grpc.NewClient (unlike
// the legacy blocking grpc.Dial) never blocks waiting for the connection
// to come up and transparently reconnects on failure using its own
// exponential backoff, so a peer that's temporarily unreachable at dial
// time is not an error here — only a later RPC against it would fail.
func NewGRPCClient(addr string, cfg GRPCClientConfig) (wire.SearchServiceClient, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.PingTime,
			Timeout:             cfg.PingTimeout,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, nil, err
	}

	return wire.NewGRPCClient(conn), conn, nil
}
