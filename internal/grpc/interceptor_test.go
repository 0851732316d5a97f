package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/stealthdetect/internal/auth"
	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"github.com/dmitrijs2005/stealthdetect/internal/sessionctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func callInterceptor(t *testing.T, srv *GRPCServer, ctx context.Context, method string) (*models.Session, error) {
	t.Helper()
	var got *models.Session
	handler := func(ctx context.Context, req any) (any, error) {
		got, _ = sessionctx.FromContext(ctx)
		return "ok", nil
	}
	_, err := srv.sessionTokenInterceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: fullMethod(method)}, handler)
	return got, err
}

func withToken(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(common.SessionTokenHeaderName, token))
}

func TestInterceptor_SkipsAuthenticate(t *testing.T) {
	srv := NewGRPCServer("", nopLogger{}, nil, testSecret, time.Minute)
	got, err := callInterceptor(t, srv, context.Background(), "Authenticate")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInterceptor_RejectsMissingAndBadTokens(t *testing.T) {
	core := newCore(t)
	srv := NewGRPCServer("", nopLogger{}, core, testSecret, time.Minute)

	_, err := callInterceptor(t, srv, context.Background(), "Status")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = callInterceptor(t, srv, withToken("garbage"), "Status")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	foreign, err := auth.IssueSessionToken("whatever", []byte("other-secret"), time.Minute)
	require.NoError(t, err)
	_, err = callInterceptor(t, srv, withToken(foreign), "Status")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	unknown, err := auth.IssueSessionToken("no-such-session", testSecret, time.Minute)
	require.NoError(t, err)
	_, err = callInterceptor(t, srv, withToken(unknown), "Status")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestInterceptor_TagsContextWithOpenSession(t *testing.T) {
	core := newCore(t)
	srv := NewGRPCServer("", nopLogger{}, core, testSecret, time.Minute)
	ctx := context.Background()

	sess, err := core.Sessions.Open(ctx, "u1", models.ModeReal)
	require.NoError(t, err)
	token, err := auth.IssueSessionToken(sess.ID, testSecret, time.Minute)
	require.NoError(t, err)

	got, err := callInterceptor(t, srv, withToken(token), "ListScans")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.ID, got.ID)

	require.NoError(t, core.Sessions.Close(ctx, sess.ID))
	_, err = callInterceptor(t, srv, withToken(token), "ListScans")
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestInterceptor_ExpiredToken(t *testing.T) {
	core := newCore(t)
	srv := NewGRPCServer("", nopLogger{}, core, testSecret, time.Minute)

	token, err := auth.IssueSessionToken("sid", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = callInterceptor(t, srv, withToken(token), "Status")
	st, _ := status.FromError(err)
	assert.Equal(t, codes.Unauthenticated, st.Code())
	assert.Equal(t, common.ErrTokenExpired.Error(), st.Message())
}
