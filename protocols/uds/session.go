package uds

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
)

const (
	// SessionTimeout bounds connecting to the ECU and each exchange's read.
	SessionTimeout time.Duration = 2 * time.Second
	// SessionMaxRetries is the total number of connection attempts per exchange.
	SessionMaxRetries int = 3
	// SessionRetryDelay is the wait between connection attempts.
	SessionRetryDelay time.Duration = 500 * time.Millisecond
	// SessionBufferSize is the size of the single read made per exchange.
	SessionBufferSize int = 4096
)

// ErrNoResponse is returned when the ECU accepted a request but sent nothing back.
var ErrNoResponse = errors.New("no response from ECU")

// SessionConfig holds the connection policy for a Session.
type SessionConfig struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	BufferSize int
}

// DefaultSessionConfig returns the standard connection policy.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Timeout:    SessionTimeout,
		MaxRetries: SessionMaxRetries,
		RetryDelay: SessionRetryDelay,
		BufferSize: SessionBufferSize,
	}
}

// Session owns the single connection to the ECU. Only one exchange is in
// flight at a time; callers block until the current one (including any
// reconnect attempts) finishes. The connection is opened lazily and thrown
// away on any I/O error so the next exchange starts from scratch.
type Session struct {
	mu     sync.Mutex
	open   Opener
	port   io.ReadWriteCloser
	cfg    SessionConfig
	logger Logger
}

// NewSession returns a Session that connects with open. Zero values in cfg
// fall back to the defaults.
func NewSession(open Opener, cfg SessionConfig, l Logger) *Session {
	def := DefaultSessionConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if l == nil {
		l = NopLogger
	}

	return &Session{
		open:   open,
		cfg:    cfg,
		logger: l,
	}
}

type deadlineSetter interface {
	SetDeadline(t time.Time) error
}

// Exchange writes the frame to the ECU and returns the bytes from a single
// bounded read. Any failure tears the connection down before returning.
func (s *Session) Exchange(ctx context.Context, frame Frame) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureConnection(ctx); err != nil {
		return nil, errors.Wrap(err, "connecting to ECU")
	}

	resp, err := s.roundTrip(frame)
	if err != nil {
		s.teardown()
		return nil, err
	}

	return resp, nil
}

func (s *Session) roundTrip(frame Frame) (Frame, error) {
	if d, ok := s.port.(deadlineSetter); ok {
		if err := d.SetDeadline(time.Now().Add(s.cfg.Timeout)); err != nil {
			return nil, errors.Wrap(err, "setting deadline")
		}
	}

	logFrame(s.logger, frame, "sending frame: ")
	for written := 0; written < len(frame); {
		n, err := s.port.Write(frame[written:])
		if err != nil {
			return nil, errors.Wrap(err, "writing frame bytes")
		}
		if n == 0 {
			return nil, errors.Errorf("only wrote %d bytes (frame had %d bytes)", written, len(frame))
		}
		written += n
	}

	buf := make([]byte, s.cfg.BufferSize)
	n, err := s.port.Read(buf)
	if n == 0 {
		if err == nil {
			return nil, ErrNoResponse
		}
		return nil, errors.Wrap(ErrNoResponse, err.Error())
	}
	if err != nil {
		// the bytes are still good but the connection isn't
		s.logger.Debugf("read %d bytes before error: %v", n, err)
		resp := Frame(buf[:n])
		s.teardown()
		return resp, nil
	}

	logFrame(s.logger, buf[:n], "read: ")
	return Frame(buf[:n]), nil
}

func (s *Session) ensureConnection(ctx context.Context) error {
	if s.port != nil {
		return nil
	}

	return retry.Do(func() error {
		port, err := s.open(ctx)
		if err != nil {
			if port != nil {
				port.Close()
			}
			return err
		}
		s.port = port
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(uint(s.cfg.MaxRetries)),
		retry.DelayType(retry.FixedDelay),
		retry.Delay(s.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debugf("connection attempt %d failed: %v", n+1, err)
		}),
	)
}

// Close closes the connection to the ECU, if there is one. It's safe to call
// more than once; a later Exchange will reconnect.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("closing session")
	s.teardown()
	return nil
}

func (s *Session) teardown() {
	if s.port == nil {
		return
	}
	if err := s.port.Close(); err != nil {
		s.logger.Debugf("closing port: %v", err)
	}
	s.port = nil
}
