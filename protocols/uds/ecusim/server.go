package ecusim

import (
	"context"
	"io"
	"log"
	"net"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gavinwade12/udsgateway/protocols/uds"
)

// DefaultAddress is where the simulated ECU listens when nothing else is configured.
const DefaultAddress = ":5001"

// Server exposes a Handler over TCP. Each connection may carry any number of
// request/response exchanges; every read is treated as one request frame.
type Server struct {
	handler *Handler
	logger  uds.Logger

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool
}

// NewServer returns a Server backed by h.
func NewServer(h *Handler, l uds.Logger) *Server {
	if l == nil {
		l = uds.NopLogger
	}
	return &Server{
		handler: h,
		logger:  l,
		conns:   make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "listening on '%s'", address)
	}
	log.Printf("[ecusim] listening on %s", l.Addr())
	return s.Serve(ctx, l)
}

// Serve accepts connections on l until ctx is done. The listener and all open
// connections are closed before Serve returns.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.mu.Lock()
	s.closed = false
	s.mu.Unlock()

	errg, ctx := errgroup.WithContext(ctx)

	errg.Go(func() error {
		<-ctx.Done()
		l.Close()
		s.closeConns()
		return nil
	})

	errg.Go(func() error {
		for {
			c, err := l.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if opErr, ok := err.(*net.OpError); ok && opErr.Timeout() {
					continue
				}
				return errors.Wrap(err, "accepting connection")
			}

			if !s.track(c) {
				c.Close()
				return nil
			}
			errg.Go(func() error {
				defer s.untrack(c)
				s.handleConn(c)
				return nil
			})
		}
	})

	return errg.Wait()
}

func (s *Server) handleConn(c net.Conn) {
	s.logger.Debugf("connection from %s", c.RemoteAddr())
	defer s.logger.Debugf("%s disconnected", c.RemoteAddr())

	buf := make([]byte, uds.SessionBufferSize)
	for {
		n, err := c.Read(buf)
		if n > 0 {
			req := uds.Frame(buf[:n])
			resp := s.handler.ProcessRequest(req)
			s.logger.Debugf("%s: %s -> %s", c.RemoteAddr(), req.Hex(), resp.Hex())

			if _, werr := c.Write(resp); werr != nil {
				s.logger.Debugf("writing response: %v", werr)
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				s.logger.Debugf("reading request: %v", err)
			}
			return
		}
	}
}

func (s *Server) track(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	c.Close()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for c := range s.conns {
		c.Close()
	}
}
