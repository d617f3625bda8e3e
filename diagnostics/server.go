package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gocrud/inject/di"
	"github.com/gocrud/inject/logging"
)

// Server 是独立的诊断 HTTP 服务。
type Server struct {
	server *http.Server
	logger logging.Logger

	mu   sync.Mutex
	done chan error
}

// NewServer 创建监听 addr 的诊断服务，logger 为 nil 时不记录日志。
func NewServer(addr string, c di.Container, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		server: &http.Server{Addr: addr, Handler: NewEngine(c)},
		logger: logger,
	}
}

// Address 返回实际监听地址，Start 之后有效。
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server.Addr
}

// Start 同步监听端口，然后在后台提供服务。
func (s *Server) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("diagnostics: failed to listen on %s: %w", s.server.Addr, err)
	}

	s.mu.Lock()
	s.server.Addr = ln.Addr().String()
	s.done = make(chan error, 1)
	s.mu.Unlock()

	s.logger.Info("diagnostics server started", logging.F("address", ln.Addr().String()))

	go func() {
		err := s.server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		if err != nil {
			s.logger.Error("diagnostics server error", logging.F("error", err))
		}
		s.done <- err
	}()
	return nil
}

// Stop 优雅关闭服务并等待后台协程退出。
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping diagnostics server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("diagnostics: shutdown: %w", err)
	}

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
