package sync

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"
)

// Server accepts newline-delimited JSON subscribers over plain TCP.
type Server struct {
	Addr string
	Hub  *Hub
	log  *zap.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

func NewServer(addr string, hub *Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Addr: addr, Hub: hub, log: log.Named("tcp-sync")}
}

// Listen binds the address; Serve must be called afterwards.
func (s *Server) Listen() (net.Addr, error) {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.log.Info("listening", zap.Stringer("addr", ln.Addr()))
	return ln.Addr(), nil
}

// Run listens and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve accepts clients until ctx is cancelled, then waits for every
// connection goroutine to finish.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("tcp sync server not listening")
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ln.Close()
	}()

	defer s.wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.Hub.Close()
				return nil
			}
			s.log.Warn("accept", zap.Error(err))
			continue
		}

		if err := s.Hub.Add(conn); err != nil {
			s.log.Debug("greet client", zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
			_ = conn.Close()
			continue
		}
		s.log.Info("client connected", zap.Stringer("remote", conn.RemoteAddr()))

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer func() {
				s.Hub.Remove(c)
				s.log.Info("client disconnected", zap.Stringer("remote", c.RemoteAddr()))
			}()

			// incoming lines are ignored; reading detects the hang-up
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}
