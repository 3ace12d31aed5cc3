package mcp

import (
	"context"
	"errors"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const (
	tenantIDKey contextKey = iota
	sessionIDKey
)

// ErrUnauthorized is returned when a request carries no usable bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// getTenantID extracts the technician ID from context.
func getTenantID(ctx context.Context) string {
	v, _ := ctx.Value(tenantIDKey).(string)
	return v
}

// getSessionID extracts session ID from context.
func getSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// TenantResolver resolves a technician ID from a bearer token.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, token string) (string, error)
}

// authMiddleware resolves the technician from the Authorization header.
// Protocol handshake methods pass through unauthenticated.
func authMiddleware(resolver TenantResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, &APIError{Code: "UNAUTHORIZED", Message: "missing headers"}
			}

			token := bearerToken(extra.Header.Get("Authorization"))
			if token == "" {
				return nil, &APIError{Code: "UNAUTHORIZED", Message: "missing bearer token"}
			}

			tenantID, err := resolver.ResolveTenant(ctx, token)
			if err != nil || tenantID == "" {
				return nil, &APIError{Code: "UNAUTHORIZED", Message: "invalid bearer token"}
			}

			ctx = context.WithValue(ctx, tenantIDKey, tenantID)
			return next(ctx, method, req)
		}
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// noAuthMiddleware injects a fixed technician when auth is disabled.
func noAuthMiddleware(defaultTenant string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx = context.WithValue(ctx, tenantIDKey, defaultTenant)
			return next(ctx, method, req)
		}
	}
}

// sessionMiddleware takes the session ID from the Mcp-Session-Id header (HTTP)
// or from _meta.session_id (stdio), falling back to the SDK session.
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			var sessionID string

			if extra := req.GetExtra(); extra != nil && extra.Header != nil {
				sessionID = extra.Header.Get("Mcp-Session-Id")
			}
			if sessionID == "" {
				sessionID = metaSessionID(req)
			}
			if sessionID == "" {
				sessionID = safeSessionID(req)
			}

			if sessionID != "" {
				ctx = context.WithValue(ctx, sessionIDKey, sessionID)
			}
			return next(ctx, method, req)
		}
	}
}

// metaSessionID reads _meta.session_id. Some notifications carry typed nil
// params whose GetMeta panics.
func metaSessionID(req sdkmcp.Request) (sessionID string) {
	defer func() { recover() }()
	params := req.GetParams()
	if params == nil {
		return ""
	}
	if meta := params.GetMeta(); meta != nil {
		sessionID, _ = meta["session_id"].(string)
	}
	return sessionID
}
