package remote

import (
	"bytes"
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/funvibe/rcore/internal/session"
	"github.com/funvibe/rcore/internal/value"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	sc, err := session.New(session.Settings{Out: &bytes.Buffer{}, ErrOut: &bytes.Buffer{}})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := NewServer(sc)
	go func() { _ = srv.Serve(lis) }()

	client, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
		srv.Stop()
		_ = sc.Destroy()
	})
	return client
}

func TestEvaluateReturnsValue(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	v, err := client.Evaluate(ctx, "x <- c(a = 1, b = 2); x * 10")
	require.NoError(t, err)
	d, ok := v.(*value.DoubleVector)
	require.True(t, ok, "got %T", v)
	assert.Equal(t, []float64{10, 20}, d.Data())
	assert.Equal(t, []string{"a", "b"}, value.Names(d).Data())

	// State persists across requests.
	v, err = client.Evaluate(ctx, "length(x)")
	require.NoError(t, err)
	assert.Equal(t, []int32{2}, v.(*value.IntegerVector).Data())
}

func TestEvaluateErrorCodes(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		source string
		code   codes.Code
		text   string
	}{
		{"language error", `stop("nope")`, codes.InvalidArgument, "nope"},
		{"parse error", "1 +", codes.InvalidArgument, "1:"},
		{"unserializable result", "function(x) x", codes.InvalidArgument, "cannot be transferred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Evaluate(ctx, tt.source)
			require.Error(t, err)
			st, ok := status.FromError(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, st.Code())
			assert.Contains(t, st.Message(), tt.text)
		})
	}
}
