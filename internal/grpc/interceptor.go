package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/stealthdetect/internal/auth"
	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/sessionctx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// publicMethods need no session token.
var publicMethods = map[string]bool{
	fullMethod("Authenticate"): true,
}

// sessionTokenInterceptor resolves the session_token metadata to an open
// session and tags the handler context with it.
func (s *GRPCServer) sessionTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.SessionTokenHeaderName); len(values) > 0 {
			token = values[0]
		}
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}

	sessionID, err := auth.SessionIDFromToken(token, s.jwtSecret)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	sess, err := s.core.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrSessionNotFound) {
			return nil, status.Error(codes.Unauthenticated, common.ErrInvalidToken.Error())
		}
		s.logger.Error(ctx, "session lookup failed", "error", err)
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}
	if !sess.Active() {
		return nil, status.Error(codes.Unauthenticated, common.ErrSessionClosed.Error())
	}

	return handler(sessionctx.WithSession(ctx, sess), req)
}

// sessionFrom returns the session placed on ctx by the interceptor.
func sessionFrom(ctx context.Context) (*models.Session, error) {
	sess, ok := sessionctx.FromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing token")
	}
	return sess, nil
}
