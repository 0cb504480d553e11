package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/funvibe/rcore/internal/serialize"
	"github.com/funvibe/rcore/internal/value"
)

// Client calls a remote evaluator.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to target without transport security.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Evaluate sends source and decodes the returned value. Failures keep their gRPC
// status; use status.Code to tell language errors from internal ones.
func (c *Client) Evaluate(ctx context.Context, source string) (value.Value, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.conn.Invoke(ctx, EvaluateMethod, wrapperspb.String(source), out); err != nil {
		return nil, err
	}
	return serialize.Unmarshal(out.GetValue())
}

func (c *Client) Close() error { return c.conn.Close() }
