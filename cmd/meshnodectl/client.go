package main

import (
	"context"
	"time"

	"github.com/packetcraft-inc/meshnode/internal/admin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// client wraps a connection to a running meshnoded admin endpoint. All
// calls go through grpc.ClientConn.Invoke directly against the
// hand-built ServiceDesc in internal/admin, since there is no
// generated stub to call methods on.
type client struct {
	conn *grpc.ClientConn
}

func dial(addr string) (*client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	return &client{conn: conn}, nil
}

func (c *client) Close() error {
	return c.conn.Close()
}

func invoke[Req, Resp any](ctx context.Context, c *client, method string, req *Req) (*Resp, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	resp := new(Resp)
	if err := c.conn.Invoke(ctx, admin.FullMethod(method), req, resp, admin.ClientCodecOption()); err != nil {
		return nil, err
	}
	return resp, nil
}
