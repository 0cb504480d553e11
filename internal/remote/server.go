// Package remote exposes a context over gRPC: rcore.Evaluator/Evaluate takes program
// text and answers with the serialized value of its last expression.
package remote

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/funvibe/rcore/internal/config"
	"github.com/funvibe/rcore/internal/diagnostics"
	"github.com/funvibe/rcore/internal/serialize"
	"github.com/funvibe/rcore/internal/session"
)

const (
	ServiceName    = "rcore.Evaluator"
	EvaluateMethod = "/" + ServiceName + "/Evaluate"
)

// Server evaluates requests one at a time in a single context, so definitions made by
// one request are visible to the next.
type Server struct {
	ctx    *session.Context
	logger zerolog.Logger

	mu   sync.Mutex
	grpc *grpc.Server
}

// NewServer returns a server evaluating in ctx and registers it on a new gRPC server.
func NewServer(ctx *session.Context, opts ...grpc.ServerOption) *Server {
	s := &Server{
		ctx:    ctx,
		logger: config.ComponentLogger(ctx.Logger, "remote"),
		grpc:   grpc.NewServer(opts...),
	}
	s.grpc.RegisterService(&serviceDesc, s)
	return s
}

// Serve accepts connections on lis until Stop is called.
func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info().Str("addr", lis.Addr().String()).Msg("serving")
	err := s.grpc.Serve(lis)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// ListenAndServe listens on the TCP address addr and serves.
func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Stop waits for running requests and stops the server.
func (s *Server) Stop() { s.grpc.GracefulStop() }

// Evaluate runs the source of req and returns the serialized result.
func (s *Server) Evaluate(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	s.mu.Lock()
	v, err := s.ctx.Evaluate(req.GetValue())
	warnings := s.ctx.Warnings()
	s.mu.Unlock()

	for _, w := range warnings {
		s.logger.Debug().Str("code", string(w.Code)).Msg(w.String())
	}
	if err != nil {
		return nil, statusOf(err)
	}
	data, err := serialize.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "result cannot be transferred: %v", err)
	}
	return wrapperspb.Bytes(data), nil
}

// statusOf maps evaluation failures to gRPC codes: language and parse errors are the
// caller's fault, everything else is internal.
func statusOf(err error) error {
	var ie *diagnostics.InternalError
	if errors.As(err, &ie) {
		return status.Error(codes.Internal, ie.Message)
	}
	var de *diagnostics.Error
	if errors.As(err, &de) {
		return status.Error(codes.InvalidArgument, de.Error())
	}
	if errors.Is(err, session.ErrDestroyed) {
		return status.Error(codes.Unavailable, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

type evaluatorServer interface {
	Evaluate(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
}

func evaluateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(evaluatorServer).Evaluate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: EvaluateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(evaluatorServer).Evaluate(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*evaluatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Evaluate", Handler: evaluateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rcore/evaluator.proto",
}
