// Package server accepts TCP connections and hands each one to a session.
package server

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"math-challenge-service/internal/domain"
	"math-challenge-service/internal/flag"
	"math-challenge-service/internal/monitor"
	"math-challenge-service/internal/problem"
	"math-challenge-service/internal/session"
)

// ProblemSource resolves the problem-set template sessions are generated
// from. Implementations cache; the listener asks once per connection.
type ProblemSource interface {
	GetProblemSet(ctx context.Context, id string) (domain.ProblemSet, error)
}

// Config configures a Listener.
type Config struct {
	Addr           string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Welcome        string
	SetID          string
	ProblemCount   int // overrides the set's count when > 0
	Source         ProblemSource
	Issuer         *flag.Issuer
	Events         *monitor.Hub
	Logger         logrus.FieldLogger
}

// Listener owns the accept loop. Each accepted connection gets its own
// session goroutine with a freshly generated problem list; one session's
// failure never touches another session or the loop itself.
type Listener struct {
	cfg Config
	ln  *net.TCPListener
	wg  sync.WaitGroup
}

func New(cfg Config) (*Listener, error) {
	if cfg.Source == nil {
		return nil, errors.New("problem source is required")
	}
	if cfg.Issuer == nil {
		return nil, errors.New("flag issuer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Listener{cfg: cfg}, nil
}

// Listen binds the configured address. Split from Serve so callers (and
// tests) can learn the bound address before serving.
func (l *Listener) Listen() error {
	ln, err := net.Listen("tcp", l.cfg.Addr)
	if err != nil {
		return errors.Wrap(err, "listen failed")
	}
	l.ln = ln.(*net.TCPListener)
	return nil
}

// Addr returns the bound address; valid after Listen.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections until ctx is cancelled. If no client ever
// connects within the connect timeout it returns domain.ErrConnectTimeout,
// which callers treat as fatal to the whole process. Once the first client
// has connected the listener serves indefinitely.
func (l *Listener) Serve(ctx context.Context) error {
	if l.ln == nil {
		if err := l.Listen(); err != nil {
			return err
		}
	}
	defer l.wg.Wait()
	defer l.ln.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = l.ln.Close()
		case <-done:
		}
	}()

	if l.cfg.ConnectTimeout > 0 {
		if err := l.ln.SetDeadline(time.Now().Add(l.cfg.ConnectTimeout)); err != nil {
			return errors.Wrap(err, "set accept deadline failed")
		}
	}

	l.cfg.Logger.WithField("addr", l.Addr().String()).Info("listening for challengers")

	accepted := false
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				l.cfg.Logger.Info("listener shutting down")
				return nil
			}
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() && !accepted {
				return domain.ErrConnectTimeout
			}
			return errors.Wrap(err, "accept failed")
		}
		if !accepted {
			accepted = true
			// Somebody showed up; from here on we serve until told to stop.
			if err := l.ln.SetDeadline(time.Time{}); err != nil {
				conn.Close()
				return errors.Wrap(err, "clear accept deadline failed")
			}
		}
		l.handle(ctx, conn)
	}
}

func (l *Listener) handle(ctx context.Context, conn net.Conn) {
	logger := l.cfg.Logger.WithField("remote", conn.RemoteAddr().String())

	set, err := l.cfg.Source.GetProblemSet(ctx, l.cfg.SetID)
	if err != nil {
		logger.WithError(err).Error("load problem set failed, dropping connection")
		conn.Close()
		return
	}
	if l.cfg.ProblemCount > 0 {
		set.Count = l.cfg.ProblemCount
	}

	sess := session.New(conn, session.Config{
		Welcome:     l.cfg.Welcome,
		ReadTimeout: l.cfg.ReadTimeout,
		Problems:    problem.Generate(set, time.Now().UnixNano()),
		Issuer:      l.cfg.Issuer,
		Events:      l.cfg.Events,
		Logger:      l.cfg.Logger,
	})
	logger.WithField("session", sess.ID().String()).Info("connection accepted")

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		// The session logs and reports its own outcome; nothing it returns
		// can take down the accept loop.
		_ = sess.Run()
	}()
}
