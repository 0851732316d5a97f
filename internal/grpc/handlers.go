package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/stealthdetect/internal/auth"
	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// errInvalidPIN is the only status a failed Authenticate ever returns.
var errInvalidPIN = status.Error(codes.Unauthenticated, common.ErrInvalidPIN.Error())

// toStatus maps core errors for token-protected methods.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrSessionNotFound), errors.Is(err, common.ErrSessionClosed):
		return status.Error(codes.Unauthenticated, common.ErrSessionClosed.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, common.ErrorNotFound.Error())
	case errors.Is(err, common.ErrDecoyIsolation):
		return status.Error(codes.PermissionDenied, common.ErrDecoyIsolation.Error())
	}
	s.logger.Error(ctx, "request failed", "error", err)
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}

func (s *GRPCServer) Authenticate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	m := req.AsMap()
	userID := str(m, "user_id")
	if userID == "" {
		userID = common.DefaultUserID
	}
	pin := []byte(str(m, "pin"))
	defer common.WipeByteArray(pin)

	_, sess, err := s.core.Gate.Authenticate(ctx, userID, pin)
	if err != nil {
		if errors.Is(err, common.ErrRejected) || errors.Is(err, common.ErrUnknownUser) {
			return nil, errInvalidPIN
		}
		s.logger.Error(ctx, "authentication failed", "error", err)
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}

	token, err := auth.IssueSessionToken(sess.ID, s.jwtSecret, s.tokenTTL)
	if err != nil {
		s.logger.Error(ctx, "token issue failed", "error", err)
		return nil, status.Error(codes.Internal, common.ErrorInternal.Error())
	}

	return structpb.NewStruct(map[string]any{"session_token": token})
}

func (s *GRPCServer) Lock(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.core.Sessions.Close(ctx, sess.ID); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &structpb.Struct{}, nil
}

func (s *GRPCServer) Status(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"unlocked":  true,
		"opened_at": formatTime(sess.OpenedAt),
	})
}

func (s *GRPCServer) ListScans(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	reader, vctx, err := s.core.Scans.View(ctx, sess.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	found, err := reader.ListScans(vctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return scansToStruct(found)
}

func (s *GRPCServer) GetReport(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	scanID := str(req.AsMap(), "scan_id")
	if scanID == "" {
		return nil, status.Error(codes.InvalidArgument, "scan_id is required")
	}
	reader, vctx, err := s.core.Scans.View(ctx, sess.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	res, err := reader.GetReport(vctx, scanID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return resultToStruct(res)
}

func (s *GRPCServer) RecordScan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	res, err := resultFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	id, err := s.core.Scans.Record(ctx, sess.ID, res)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return structpb.NewStruct(map[string]any{"scan_id": id})
}

func (s *GRPCServer) History(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	sess, err := sessionFrom(ctx)
	if err != nil {
		return nil, err
	}
	reader, vctx, err := s.core.Scans.View(ctx, sess.ID)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	visible, err := reader.Sessions(vctx)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return historyToStruct(visible)
}
