package control

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/logging"
)

const shutdownTimeout = 5 * time.Second

// Server exposes Handler on a TCP address
type Server struct {
	listener net.Listener
	server   *http.Server
	logger   logging.Logger
}

// Listen binds addr right away so that a busy port fails at startup
func Listen(addr string, source StatusSource, logger logging.Logger) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.NewIOError("failed to listen for status requests", err).WithContext("addr", addr)
	}
	return &Server{
		listener: listener,
		server: &http.Server{
			Handler:           NewHandler(source, logger),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}, nil
}

func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until ctx is cancelled, then shuts the server down
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Infof("Status server listening, addr: %s", s.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.NewIOError("status server failed", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warnf("Status server shutdown: %v", err)
	}
	<-errCh
	s.logger.Infof("Status server stopped")
	return nil
}
