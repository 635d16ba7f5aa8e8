package mux

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/soheilhy/cmux"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/grpc/server"
	"gmaps-scraper/internal/logging"
)

// Multiplexer serves gRPC and HTTP on one port, routing by protocol
type Multiplexer struct {
	cfg    *config.Config
	logger logging.Logger

	grpcServer *server.Server
	httpServer *http.Server

	mux      cmux.CMux
	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMultiplexer creates a new protocol multiplexer
func NewMultiplexer(cfg *config.Config, grpcServer *server.Server, httpHandler http.Handler) *Multiplexer {
	ctx, cancel := context.WithCancel(context.Background())

	// blocking endpoints must be able to write their response
	writeTimeout := cfg.Server.WriteTimeout
	if cfg.Server.LongTimeout > writeTimeout {
		writeTimeout = cfg.Server.LongTimeout + 10*time.Second
	}

	return &Multiplexer{
		cfg:        cfg,
		logger:     logging.GetGlobalLogger().WithField(logging.FieldComponent, "mux"),
		grpcServer: grpcServer,
		ctx:        ctx,
		cancel:     cancel,
		httpServer: &http.Server{
			Handler:           httpHandler,
			ReadTimeout:       cfg.Server.ReadTimeout,
			WriteTimeout:      writeTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       cfg.Server.IdleTimeout,
		},
	}
}

// Start listens on address and starts both servers
func (m *Multiplexer) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	m.listener = listener

	m.mux = cmux.New(listener)

	// grpc-go clients wait for the server SETTINGS frame before sending headers
	grpcListener := m.mux.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpListener := m.mux.Match(cmux.HTTP1Fast())

	addr := listener.Addr().String()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.grpcServer.Start(grpcListener); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
			m.logger.WithError(err).Error("gRPC server failed")
		}
	}()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.logger.Info("Starting HTTP server", map[string]interface{}{"address": addr})
		if err := m.httpServer.Serve(httpListener); err != nil && err != http.ErrServerClosed && !errors.Is(err, cmux.ErrListenerClosed) {
			m.logger.WithError(err).Error("HTTP server failed")
		}
	}()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.mux.Serve(); err != nil && m.ctx.Err() == nil {
			m.logger.WithError(err).Error("Multiplexer failed")
		}
	}()

	m.logger.Info("Multiplexer started successfully", map[string]interface{}{"address": addr})
	return nil
}

// Stop gracefully shuts down the multiplexer and both servers
func (m *Multiplexer) Stop(ctx context.Context) error {
	m.logger.Info("Stopping multiplexer...")

	m.cancel()

	var shutdownErr error
	if err := m.httpServer.Shutdown(ctx); err != nil {
		m.logger.WithError(err).Error("HTTP server shutdown failed")
		shutdownErr = err
	}

	m.grpcServer.Stop()

	if m.mux != nil {
		m.mux.Close()
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("Multiplexer stopped gracefully")
	case <-ctx.Done():
		m.logger.Warn("Multiplexer shutdown timed out")
		return ctx.Err()
	}

	return shutdownErr
}

// Wait blocks until all servers have returned
func (m *Multiplexer) Wait() {
	m.wg.Wait()
}

// Address returns the address the multiplexer is listening on
func (m *Multiplexer) Address() string {
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return ""
}
