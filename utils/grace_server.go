package utils

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	defaultReadTimeout     = 60 * time.Second
	defaultWriteTimeout    = defaultReadTimeout
	defaultShutdownTimeout = 30 * time.Second
)

// Server wraps http.Server and shuts it down gracefully on SIGINT/SIGTERM.
type Server struct {
	*http.Server
	signals chan os.Signal
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      writeTimeout,
		},
		signals: make(chan os.Signal, 1),
	}
}

// Serve accepts connections on ln until a shutdown signal or ctx cancellation,
// then drains in-flight requests.
func (srv *Server) Serve(ctx context.Context, ln net.Listener) error {
	signal.Notify(srv.signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(srv.signals)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-srv.signals:
		Logger.Info("received signal, graceful shutting down HTTP server", zap.String("signal", sig.String()))
	case <-ctx.Done():
		Logger.Info("context done, graceful shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		Logger.Error("HTTP server shutdown error", zap.Error(err))
		return err
	}
	Logger.Info("HTTP server shutdown success")
	return nil
}

// GraceServer starts an HTTP server with graceful shutdown.
func GraceServer(addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return NewServer(addr, handler, defaultReadTimeout, defaultWriteTimeout).Serve(context.Background(), ln)
}
