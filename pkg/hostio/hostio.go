// Package hostio connects a dispatcher to a line oriented host pipe.
//
// Each request is one line, COMMAND or COMMAND|ARG. Each reply is one line
// holding a JSON array: ["ok", command], ["ok", command, result] or
// ["error", command, message].
package hostio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RedUtils/botcore/internal/dispatcher"
)

// TimestampCommand is answered by the server itself with the current UTC time in nanoseconds.
const TimestampCommand = ":TIMESTAMP:"

// MaxLineSize bounds a single request line. Tick packets with many cars and
// boost pads are a few tens of kilobytes.
const MaxLineSize = 4 << 20

// Dispatcher routes events to handlers.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
	HasHandler(command string) bool
}

// Option configures a Server.
type Option func(*Server)

// SplitArgs makes the server split ARG on '|' for the named commands so the
// handler receives every piece as its own argument. Other commands get ARG
// unsplit, since JSON payloads may contain the separator.
func SplitArgs(commands ...string) Option {
	return func(s *Server) {
		for _, c := range commands {
			s.split[c] = true
		}
	}
}

// WithClock replaces time.Now for event timestamps and :TIMESTAMP:.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// Server reads requests from r and writes replies to w.
type Server struct {
	d     Dispatcher
	r     io.Reader
	w     io.Writer
	split map[string]bool
	now   func() time.Time

	wmu sync.Mutex
}

// NewServer creates a server over the given pipe pair.
func NewServer(d Dispatcher, r io.Reader, w io.Writer, opts ...Option) *Server {
	s := &Server{
		d:     d,
		r:     r,
		w:     w,
		split: make(map[string]bool),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve handles lines until the reader hits EOF or ctx is cancelled.
// EOF returns nil.
func (s *Server) Serve(ctx context.Context) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.r)
		sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					if err != nil {
						return fmt.Errorf("reading host input: %w", err)
					}
				default:
				}
				return nil
			}
			reply, ok := s.Handle(line)
			if !ok {
				continue
			}
			if err := s.writeLine(reply); err != nil {
				return fmt.Errorf("writing host reply: %w", err)
			}
		}
	}
}

// Handle answers a single request line. ok is false for blank lines, which get no reply.
func (s *Server) Handle(line string) (reply string, ok bool) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return "", false
	}

	if line == TimestampCommand {
		return FormatResponse(TimestampCommand, strconv.FormatInt(s.now().UTC().UnixNano(), 10), nil), true
	}

	command, arg, hasArg := strings.Cut(line, "|")
	command = strings.TrimSpace(command)

	if s.d == nil || !s.d.HasHandler(command) {
		return FormatResponse(command, nil, fmt.Errorf("no handler registered")), true
	}

	var args []string
	if hasArg {
		if s.split[command] {
			args = strings.Split(arg, "|")
		} else {
			args = []string{arg}
		}
	}

	result, err := s.d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: s.now(),
	})
	return FormatResponse(command, result, err), true
}

func (s *Server) writeLine(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	_, err := io.WriteString(s.w, line+"\n")
	return err
}

// FormatResponse renders a dispatcher result as a reply line.
func FormatResponse(command string, result any, err error) string {
	var reply []any
	switch {
	case err != nil:
		reply = []any{"error", command, err.Error()}
	case result == nil:
		reply = []any{"ok", command}
	default:
		reply = []any{"ok", command, result}
	}

	data, mErr := json.Marshal(reply)
	if mErr != nil {
		data, _ = json.Marshal([]any{"error", command, "unencodable result: " + mErr.Error()})
	}
	return string(data)
}
