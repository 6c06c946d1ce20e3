package gameserver

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/arena/internal/arena"
)

type ownerKey struct{}

type tokenKey struct{}

func ownerFrom(ctx context.Context) string {
	o, _ := ctx.Value(ownerKey{}).(string)
	return o
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey{}).(string)
	return t
}

// authenticate resolves the "authorization: Bearer <token>" metadata entry.
func authenticate(ctx context.Context, tokens *arena.Tokens) (context.Context, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	var tok string
	for _, v := range md.Get("authorization") {
		if strings.HasPrefix(v, "Bearer ") {
			tok = strings.TrimPrefix(v, "Bearer ")
			break
		}
	}
	owner, ok := tokens.Owner(tok)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing or invalid token")
	}
	ctx = context.WithValue(ctx, ownerKey{}, owner)
	return context.WithValue(ctx, tokenKey{}, tok), nil
}

// UnaryInterceptor authenticates private calls and logs every call.
func UnaryInterceptor(tokens *arena.Tokens, logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		if !publicMethods[info.FullMethod] {
			authed, err := authenticate(ctx, tokens)
			if err != nil {
				return nil, err
			}
			ctx = authed
		}
		resp, err := handler(ctx, req)
		logger.Debug("grpc call",
			zap.String("method", info.FullMethod),
			zap.String("code", status.Code(err).String()),
			zap.Duration("duration", time.Since(start)),
		)
		return resp, err
	}
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a authedStream) Context() context.Context { return a.ctx }

// StreamInterceptor authenticates every streaming call.
func StreamInterceptor(tokens *arena.Tokens) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authenticate(ss.Context(), tokens)
		if err != nil {
			return err
		}
		return handler(srv, authedStream{ServerStream: ss, ctx: ctx})
	}
}
