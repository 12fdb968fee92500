// Package connect provides the player control RPC: service implementation,
// handler wiring, token authentication and a typed client.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
)

const (
	// ControlTokenHeader is the header name for the control token.
	ControlTokenHeader = "X-Control-Token"
)

var errInvalidToken = errors.New("invalid or missing control token")

// TokenInterceptor checks the control token on the server side and sets it
// on the client side. An empty token disables it.
type TokenInterceptor struct {
	token string
}

// NewTokenInterceptor creates a token interceptor.
func NewTokenInterceptor(token string) *TokenInterceptor {
	return &TokenInterceptor{token: token}
}

var _ connect.Interceptor = (*TokenInterceptor)(nil)

func (i *TokenInterceptor) valid(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(i.token)) == 1
}

// WrapUnary implements connect.Interceptor.
func (i *TokenInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if i.token == "" {
			return next(ctx, req)
		}

		if req.Spec().IsClient {
			req.Header().Set(ControlTokenHeader, i.token)
			return next(ctx, req)
		}

		// Validate token
		if !i.valid(req.Header().Get(ControlTokenHeader)) {
			return nil, connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
		}

		// Call next handler
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *TokenInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		if i.token != "" {
			conn.RequestHeader().Set(ControlTokenHeader, i.token)
		}
		return conn
	}
}

// WrapStreamingHandler implements connect.Interceptor.
func (i *TokenInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if i.token != "" && !i.valid(conn.RequestHeader().Get(ControlTokenHeader)) {
			return connect.NewError(connect.CodeUnauthenticated, errInvalidToken)
		}
		return next(ctx, conn)
	}
}
