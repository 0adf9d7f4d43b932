package api

import (
	"context"
	"strings"
	"time"

	"todolist/internal/logging"
	"todolist/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const requestIDMetadataKey = "x-request-id"

// unaryInterceptors is the server chain, outermost first.
func unaryInterceptors(logger *zerolog.Logger) []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		requestIDUnaryInterceptor(logger),
		accessLogUnaryInterceptor(),
		recoveryUnaryInterceptor(),
	}
}

// requestIDUnaryInterceptor echoes the caller's x-request-id (or a fresh one)
// back as a header and stores a logger carrying it in the context.
func requestIDUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := logging.Component(logger, "grpc")
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, id))

		l := base.With().Str("request_id", id).Logger()
		return handler(l.WithContext(ctx), req)
	}
}

func accessLogUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		began := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		metrics.IncGRPC(info.FullMethod, code.String())

		ev := zerolog.Ctx(ctx).Info()
		if code == codes.Internal || code == codes.Unknown {
			ev = zerolog.Ctx(ctx).Warn()
		}
		ev.Str("method", info.FullMethod).
			Str("peer", peerAddr(ctx)).
			Stringer("code", code).
			Dur("latency", time.Since(began)).
			Msg("grpc call")
		return resp, err
	}
}

// recoveryUnaryInterceptor turns a handler panic into codes.Internal.
func recoveryUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				zerolog.Ctx(ctx).Error().Interface("panic", rec).Str("method", info.FullMethod).Msg("grpc handler panic")
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

func peerAddr(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return clientKeyUnknown
	}
	return p.Addr.String()
}

func requestIDFromMetadata(ctx context.Context) string {
	md, _ := metadata.FromIncomingContext(ctx)
	for _, v := range md.Get(requestIDMetadataKey) {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return uuid.NewString()
}
