// Package client implements the challenge solver: it speaks the line
// protocol, computes every answer, and walks away with the flag.
package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"math-challenge-service/internal/domain"
)

// ErrNoFlag indicates the server closed the connection before sending a
// flag, i.e. the session was aborted server-side.
var ErrNoFlag = errors.New("connection closed before a flag was issued")

// Solver dials a challenge server and completes one session.
type Solver struct {
	Addr    string
	Name    string
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// Run performs the whole exchange and returns the issued flag.
func (s *Solver) Run(ctx context.Context) (domain.Flag, error) {
	logger := s.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	dialer := &net.Dialer{Timeout: s.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.Addr)
	if err != nil {
		return "", errors.Wrap(err, "dial failed")
	}
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return "", errors.Wrap(scanner.Err(), "read welcome failed")
	}
	logger.WithField("welcome", scanner.Text()).Debug("connected")

	if _, err := fmt.Fprintf(conn, "HELLO %s\n", s.Name); err != nil {
		return "", errors.Wrap(err, "send hello failed")
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "DONE "):
			return domain.Flag(strings.TrimPrefix(line, "DONE ")), nil
		case strings.HasPrefix(line, "MATH "):
			answer, err := Solve(strings.TrimPrefix(line, "MATH "))
			if err != nil {
				return "", errors.Wrapf(err, "solve %q failed", line)
			}
			logger.WithFields(logrus.Fields{"problem": line, "answer": answer}).Debug("answering")
			if _, err := fmt.Fprintf(conn, "ANSWER %d\n", answer); err != nil {
				return "", errors.Wrap(err, "send answer failed")
			}
		default:
			return "", errors.Errorf("unexpected server line %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", errors.Wrap(err, "read failed")
	}
	return "", ErrNoFlag
}

// Solve evaluates a prompt of the form "<a> <op> <b>". Division truncates
// toward zero; the server only ever asks exactly divisible quotients.
func Solve(prompt string) (int64, error) {
	fields := strings.Fields(prompt)
	if len(fields) != 3 {
		return 0, errors.Errorf("malformed prompt %q", prompt)
	}
	a, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse left operand failed")
	}
	b, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "parse right operand failed")
	}
	switch fields[1] {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, errors.New("division by zero")
		}
		return a / b, nil
	default:
		return 0, errors.Errorf("unknown operator %q", fields[1])
	}
}
