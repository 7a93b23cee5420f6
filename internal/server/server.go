// Package server runs the MCP stdio transport and the optional metrics and
// health HTTP endpoint under one supervisor.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/thejerf/suture/v4"

	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/app"
	"github.com/PinMeTo/pinmeto-location-mcp-sub001/internal/logging"
)

// DefaultShutdownTimeout bounds graceful shutdown of every service.
const DefaultShutdownTimeout = 10 * time.Second

// Options configures Run.
type Options struct {
	// MetricsAddr enables the /metrics and /healthz listener when non-empty.
	MetricsAddr     string
	ShutdownTimeout time.Duration
	Stdin           io.Reader
	Stdout          io.Writer
}

// Run serves mcp over stdio until the input stream closes or ctx is
// cancelled. End of input is a normal shutdown and returns nil.
func Run(ctx context.Context, sess *app.Session, mcp *mcpserver.MCPServer, opts Options) error {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}

	sup := suture.New("pinmeto-mcp", suture.Spec{
		EventHook: eventHook,
		Timeout:   opts.ShutdownTimeout,
	})
	sup.Add(&StdioService{Server: mcp, In: opts.Stdin, Out: opts.Stdout})
	if opts.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.MetricsAddr,
			Handler:           Router(sess),
			ReadHeaderTimeout: 5 * time.Second,
		}
		sup.Add(NewHTTPService(srv, opts.ShutdownTimeout))
		logging.Info().Str("addr", opts.MetricsAddr).Msg("metrics endpoint enabled")
	}

	err := sup.Serve(ctx)
	if err == nil || ctx.Err() != nil || errors.Is(err, suture.ErrTerminateSupervisorTree) {
		return nil
	}
	return err
}

func eventHook(e suture.Event) {
	switch e.Type() {
	case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate:
		logging.Error().Fields(e.Map()).Msg(e.String())
	case suture.EventTypeBackoff:
		logging.Warn().Fields(e.Map()).Msg(e.String())
	default:
		logging.Debug().Fields(e.Map()).Msg(e.String())
	}
}

// ─── Stdio ───────────────────────────────────────────────────────────────────

// StdioService serves the MCP protocol over a reader/writer pair. When the
// input reaches EOF the whole supervisor tree is terminated, since the host
// has gone away.
type StdioService struct {
	Server *mcpserver.MCPServer
	In     io.Reader
	Out    io.Writer
}

// Serve implements suture.Service.
func (s *StdioService) Serve(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.Server)
	stdio.SetErrorLogger(log.New(logging.Logger(), "", 0))

	logging.Info().Msg("serving MCP over stdio")
	err := stdio.Listen(ctx, s.In, s.Out)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("stdio transport: %w", err)
	}
	logging.Info().Msg("stdin closed, shutting down")
	return suture.ErrTerminateSupervisorTree
}

func (s *StdioService) String() string { return "mcp-stdio" }

// ─── HTTP ────────────────────────────────────────────────────────────────────

// HTTPServer is the part of *http.Server the HTTP service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService runs an HTTP server as a supervised service.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

// NewHTTPService wraps server. A non-positive timeout uses
// DefaultShutdownTimeout.
func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

// Serve implements suture.Service. http.ErrServerClosed is not an error.
func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "metrics-http" }
