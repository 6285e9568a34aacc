// Package session drives the challenge protocol for one accepted connection.
package session

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"math-challenge-service/internal/domain"
	"math-challenge-service/internal/flag"
	"math-challenge-service/internal/monitor"
	"math-challenge-service/internal/verify"
)

// State is the session's position in the protocol.
type State int

const (
	StateAwaitingHello State = iota
	StateAwaitingAnswer
	StateCompleted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaitingHello:
		return "awaiting_hello"
	case StateAwaitingAnswer:
		return "awaiting_answer"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Config carries everything a session needs beyond its connection. Problems
// are generated fresh per connection by the caller; the issuer key material
// is shared read-only across sessions.
type Config struct {
	Welcome     string
	ReadTimeout time.Duration
	Problems    []domain.Problem
	Issuer      *flag.Issuer
	Events      *monitor.Hub
	Logger      logrus.FieldLogger
}

// Session owns one client connection from welcome to termination. It is not
// safe for concurrent use; Run is the only entry point and closes the
// connection on every exit path.
type Session struct {
	id        uuid.UUID
	conn      net.Conn
	reader    *bufio.Reader
	cfg       Config
	name      string
	state     State
	correct   int
	startedAt time.Time
}

func New(conn net.Conn, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Session{
		id:        uuid.New(),
		conn:      conn,
		reader:    bufio.NewReader(conn),
		cfg:       cfg,
		state:     StateAwaitingHello,
		startedAt: time.Now(),
	}
}

// ID returns the session's identifier used in logs and monitor events.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the state the session ended in; meaningful once Run returned.
func (s *Session) State() State { return s.state }

// Name returns the client name declared in the hello line, if any.
func (s *Session) Name() string { return s.name }

// Run executes the protocol: welcome, hello, one problem per answer, then
// the flag. Every failure is terminal; an aborted session writes nothing
// beyond what it already sent. The connection is always closed on return.
func (s *Session) Run() error {
	defer s.conn.Close()

	logger := s.cfg.Logger.WithField("session", s.id.String())
	s.publish(monitor.KindStarted, "")

	if err := s.writeLine(s.cfg.Welcome); err != nil {
		return s.abort(logger, err)
	}

	if err := s.awaitHello(); err != nil {
		return s.abort(logger, err)
	}
	logger = logger.WithField("name", s.name)
	logger.Info("client said hello")
	s.publish(monitor.KindHello, s.name)

	for i, p := range s.cfg.Problems {
		s.state = StateAwaitingAnswer
		if err := s.writeLine("MATH " + p.Prompt()); err != nil {
			return s.abort(logger, err)
		}
		raw, err := s.readLine()
		if err != nil {
			return s.abort(logger, err)
		}
		answer, ok := parseAnswer(raw)
		if !ok || !verify.Verify(p, answer) {
			logger.WithFields(logrus.Fields{
				"problem": p.Prompt(),
				"given":   raw,
			}).Info("wrong answer, aborting")
			return s.abort(logger, errors.Wrapf(domain.ErrProtocolViolation, "problem %d", i))
		}
		s.correct++
		s.publish(monitor.KindSolved, fmt.Sprintf("%d/%d", s.correct, len(s.cfg.Problems)))
	}

	s.state = StateCompleted
	issued := s.cfg.Issuer.Issue(s.name)
	if err := s.writeLine("DONE " + string(issued)); err != nil {
		return s.abort(logger, err)
	}
	s.publish(monitor.KindCompleted, "")
	logger.WithFields(logrus.Fields{
		"solved":   s.correct,
		"duration": time.Since(s.startedAt).String(),
	}).Info("session completed, flag issued")
	return nil
}

// awaitHello reads and validates the "HELLO <name>" line.
func (s *Session) awaitHello() error {
	line, err := s.readLine()
	if err != nil {
		return err
	}
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != "HELLO" {
		return errors.Wrap(domain.ErrProtocolViolation, "malformed hello")
	}
	s.name = fields[1]
	return nil
}

// parseAnswer extracts the value from an "ANSWER <n>" line.
func parseAnswer(line string) (string, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != "ANSWER" {
		return "", false
	}
	return fields[1], true
}

func (s *Session) readLine() (string, error) {
	if s.cfg.ReadTimeout > 0 {
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout)); err != nil {
			return "", errors.Wrap(err, "set read deadline failed")
		}
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return "", domain.ErrReadTimeout
		}
		return "", errors.Wrap(err, "read line failed")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Session) writeLine(line string) error {
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		return errors.Wrap(err, "write line failed")
	}
	return nil
}

// abort moves the session to its terminal failure state. No further protocol
// data is written; the deferred close in Run signals the client.
func (s *Session) abort(logger logrus.FieldLogger, err error) error {
	s.state = StateAborted
	s.publish(monitor.KindAborted, err.Error())
	logger.WithError(err).Info("session aborted")
	return err
}

func (s *Session) publish(kind monitor.EventKind, detail string) {
	s.cfg.Events.Publish(monitor.Event{
		SessionID: s.id.String(),
		Name:      s.name,
		Kind:      kind,
		Detail:    detail,
		At:        time.Now(),
	})
}
