package grpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"github.com/dmitrijs2005/stealthdetect/internal/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	ErrUnavailable  = errors.New("daemon unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)

// Client talks to a running daemon. It keeps the session token returned by
// Authenticate and attaches it to every later call.
type Client struct {
	endpointURL  string
	conn         *grpc.ClientConn
	sessionToken string
}

func withSessionToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.SessionTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) sessionTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if c.sessionToken != "" {
		ctx = withSessionToken(ctx, c.sessionToken)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewClient connects to endpointURL. Extra options are appended to the
// defaults (insecure transport, token interceptor).
func NewClient(endpointURL string, opts ...grpc.DialOption) (*Client, error) {
	c := &Client{endpointURL: endpointURL}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.sessionTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) call(ctx context.Context, name string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, name, in)
}

func (c *Client) invoke(ctx context.Context, name string, in *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(name), in, out); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// Authenticate unlocks userID with pin. Every failure to authenticate
// comes back as common.ErrInvalidPIN.
func (c *Client) Authenticate(ctx context.Context, userID string, pin []byte) error {
	out, err := c.call(ctx, "Authenticate", map[string]any{"user_id": userID, "pin": string(pin)})
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return common.ErrInvalidPIN
		}
		return err
	}
	c.sessionToken = str(out.AsMap(), "session_token")
	return nil
}

// Lock closes the current session and forgets its token.
func (c *Client) Lock(ctx context.Context) error {
	if _, err := c.call(ctx, "Lock", nil); err != nil {
		return err
	}
	c.sessionToken = ""
	return nil
}

// Status reports whether the token names an open session and when it was
// opened.
func (c *Client) Status(ctx context.Context) (bool, string, error) {
	out, err := c.call(ctx, "Status", nil)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return false, "", nil
		}
		return false, "", err
	}
	m := out.AsMap()
	unlocked, _ := m["unlocked"].(bool)
	return unlocked, str(m, "opened_at"), nil
}

func (c *Client) ListScans(ctx context.Context) ([]models.ScanSession, error) {
	out, err := c.call(ctx, "ListScans", nil)
	if err != nil {
		return nil, err
	}
	return scansFromStruct(out)
}

func (c *Client) GetReport(ctx context.Context, scanID string) (*models.ScanResult, error) {
	out, err := c.call(ctx, "GetReport", map[string]any{"scan_id": scanID})
	if err != nil {
		return nil, err
	}
	return resultFromResponse(out)
}

func (c *Client) RecordScan(ctx context.Context, r *models.ScanResult) (string, error) {
	in, err := resultToRequest(r)
	if err != nil {
		return "", err
	}
	out, err := c.invoke(ctx, "RecordScan", in)
	if err != nil {
		return "", err
	}
	return str(out.AsMap(), "scan_id"), nil
}

func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	out, err := c.call(ctx, "History", nil)
	if err != nil {
		return nil, err
	}
	return historyFromStruct(out)
}

func mapError(err error) error {
	st, _ := status.FromError(err)
	switch st.Code() {
	case codes.Unauthenticated, codes.PermissionDenied:
		return ErrUnauthorized
	case codes.NotFound:
		return common.ErrorNotFound
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
