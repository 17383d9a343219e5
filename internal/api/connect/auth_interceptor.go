// Package connect provides Connect RPC service implementations.
package connect

import (
	"context"
	"crypto/subtle"

	"connectrpc.com/connect"
)

const (
	// AuthTokenHeader is the header name for the authentication token.
	AuthTokenHeader = "X-Auth-Token"
)

// authInterceptor validates the token header on unary and streaming calls.
type authInterceptor struct {
	token string
}

// NewAuthInterceptor creates an interceptor that rejects requests whose
// token header does not match token.
func NewAuthInterceptor(token string) connect.Interceptor {
	return &authInterceptor{token: token}
}

func (a *authInterceptor) valid(got string) bool {
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) == 1
}

func (a *authInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if !a.valid(req.Header().Get(AuthTokenHeader)) {
			return nil, connect.NewError(connect.CodeUnauthenticated, nil)
		}
		return next(ctx, req)
	}
}

func (a *authInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (a *authInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		if !a.valid(conn.RequestHeader().Get(AuthTokenHeader)) {
			return connect.NewError(connect.CodeUnauthenticated, nil)
		}
		return next(ctx, conn)
	}
}

// tokenInjector sets the token header on outgoing calls.
type tokenInjector struct {
	token string
}

func (t *tokenInjector) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		req.Header().Set(AuthTokenHeader, t.token)
		return next(ctx, req)
	}
}

func (t *tokenInjector) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		conn.RequestHeader().Set(AuthTokenHeader, t.token)
		return conn
	}
}

func (t *tokenInjector) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
