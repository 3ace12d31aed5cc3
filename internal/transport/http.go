package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rpggio/techtrace/internal/metrics"
)

// maxBodyBytes bounds a JSON-RPC request. Backup documents travel inline.
const maxBodyBytes = 32 << 20

// MCPHandler handles MCP method dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, tenantID, sessionID, method string, params json.RawMessage) (any, error)
}

// codedError is implemented by domain-mapped API errors.
type codedError interface {
	error
	CodeValue() string
	MessageValue() string
	DetailsValue() any
	RecoveryHintValue() string
}

// Options configures the HTTP router.
type Options struct {
	// Auth guards /rpc. When nil every request runs as DefaultTenant.
	Auth          func(http.Handler) http.Handler
	DefaultTenant string
	// MCP is the streamable MCP endpoint, mounted at /mcp when set. It
	// authenticates on its own.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	handler MCPHandler
	logger  *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(handler MCPHandler, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware(routePattern))

	srv := &Server{handler: handler, logger: logger}

	r.Get("/health", srv.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		} else {
			r.Use(StaticTenant(opts.DefaultTenant))
		}
		r.Use(SessionMiddleware)
		r.Post("/rpc", srv.handleRPC)
	})

	if opts.MCP != nil {
		r.Handle("/mcp", opts.MCP)
		r.Handle("/mcp/*", opts.MCP)
	}

	return r
}

// routePattern labels metrics by chi route so ids in paths do not explode
// cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		code := ErrInvalidReq
		if errors.Is(err, errParse) {
			code = ErrParseCode
		}
		WriteError(w, nil, code, err.Error(), nil)
		return
	}

	tenantID, ok := TenantFromContext(r.Context())
	if !ok || tenantID == "" {
		http.Error(w, "missing tenant", http.StatusUnauthorized)
		return
	}

	sessionID, _ := SessionIDFromContext(r.Context())

	result, err := s.handler.Handle(r.Context(), tenantID, sessionID, req.Method, req.Params)
	if err != nil {
		var coded codedError
		if errors.As(err, &coded) {
			WriteError(w, req.ID, rpcCode(coded.CodeValue()), coded.MessageValue(), ErrorData{
				Code:         coded.CodeValue(),
				Details:      coded.DetailsValue(),
				RecoveryHint: coded.RecoveryHintValue(),
			})
			return
		}
		s.logger.Error("rpc call failed", "method", req.Method, "tenant_id", tenantID, "error", err)
		WriteError(w, req.ID, ErrInternal, "internal error", nil)
		return
	}

	WriteResult(w, req.ID, result)
}

// ErrorData is the data member of an application error response.
type ErrorData struct {
	Code         string `json:"code"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func rpcCode(code string) int {
	switch code {
	case "METHOD_NOT_FOUND":
		return ErrMethodNotFound
	case "INVALID_INPUT":
		return ErrInvalidParams
	default:
		return ErrApplication
	}
}
