package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const (
	DEFAULT_READ_TIMEOUT     = 60 * time.Second
	DEFAULT_WRITE_TIMEOUT    = DEFAULT_READ_TIMEOUT
	DEFAULT_SHUTDOWN_TIMEOUT = 30 * time.Second
)

// Server wraps http.Server to shut down gracefully on SIGINT/SIGTERM and release
// resources (stores, redis) once in-flight requests have finished.
type Server struct {
	*http.Server

	closers    []func() error
	closeOnce  sync.Once
	signalChan chan os.Signal
}

// NewServer creates a Server with timeouts and handler.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
		},
		signalChan: make(chan os.Signal, 1),
	}
}

// OnShutdown registers a function run after the HTTP server stopped, in order.
func (srv *Server) OnShutdown(fn func() error) {
	srv.closers = append(srv.closers, fn)
}

// ListenAndServe serves until a termination signal arrives or the listener fails.
func (srv *Server) ListenAndServe() error {
	addr := srv.Addr
	if addr == "" {
		addr = ":http"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("net.Listen error: %w", err)
	}
	return srv.Serve(ln)
}

// Serve accepts connections on ln until shutdown.
func (srv *Server) Serve(ln net.Listener) error {
	signal.Notify(srv.signalChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(srv.signalChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Server.Serve(ln)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			// Shutdown was called directly and runs the closers itself.
			return nil
		}
		srv.runClosers()
		return err
	case sig := <-srv.signalChan:
		Sugar.Infof("received %s, graceful shutting down HTTP server", sig)
		return srv.Shutdown()
	}
}

// Shutdown drains in-flight requests and then runs the registered closers.
func (srv *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), DEFAULT_SHUTDOWN_TIMEOUT)
	defer cancel()
	err := srv.Server.Shutdown(ctx)
	if err != nil {
		Sugar.Errorf("HTTP server shutdown error: %v", err)
	} else {
		Sugar.Info("HTTP server shutdown success")
	}
	srv.runClosers()
	return err
}

func (srv *Server) runClosers() {
	srv.closeOnce.Do(func() {
		for _, fn := range srv.closers {
			if err := fn(); err != nil {
				Sugar.Warnf("shutdown hook failed: %v", err)
			}
		}
	})
}

// GraceServer starts an HTTP server with graceful shutdown, running closers on exit.
func GraceServer(addr string, handler http.Handler, closers ...func() error) error {
	srv := NewServer(addr, handler, DEFAULT_READ_TIMEOUT, DEFAULT_WRITE_TIMEOUT)
	for _, fn := range closers {
		srv.OnShutdown(fn)
	}
	return srv.ListenAndServe()
}
