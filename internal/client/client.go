// Package client calls a remote socwatch gRPC server.
package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/ppiankov/socwatch/internal/server"
)

// Client connects to a socwatch TriageService.
type Client struct {
	conn *grpc.ClientConn
}

// New creates a client for addr. The connection is established lazily on
// the first call.
func New(addr string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to triage server: %w", err)
	}
	return &Client{conn: conn}, nil
}

// Triage sends an incident and its signals and returns the "result" object.
// Server-side failures come back as gRPC status errors.
func (c *Client) Triage(ctx context.Context, incident, signals map[string]any, withAI bool) (map[string]any, error) {
	fields := map[string]any{
		"incident": incident,
		"ai":       withAI,
	}
	if signals != nil {
		fields["signals"] = signals
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode triage request: %w", err)
	}

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, server.TriageMethod, req, resp); err != nil {
		return nil, err
	}
	result, ok := resp.AsMap()["result"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("triage response has no result object")
	}
	return result, nil
}

// Health returns the server's reported status.
func (c *Client) Health(ctx context.Context) (string, error) {
	resp := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, server.HealthMethod, &structpb.Struct{}, resp); err != nil {
		return "", err
	}
	status, _ := resp.AsMap()["status"].(string)
	return status, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
