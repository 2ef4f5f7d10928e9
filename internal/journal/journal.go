// Package journal appends raw host commands to hourly zstd compressed JSONL
// files so a session can be replayed.
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/RedUtils/botcore/internal/queue"
	"github.com/klauspost/compress/zstd"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("journal closed")

// Entry is one journaled command.
type Entry struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Command string    `json:"command"`
	Args    []string  `json:"args,omitempty"`
}

// Writer appends entries to <dir>/<prefix>-<yyyy-mm-dd-hh>.jsonl.zst,
// rotating on the UTC hour of each entry. Append only queues the entry; a
// background goroutine does the file I/O so the tick path never blocks on disk.
type Writer struct {
	baseDir string
	prefix  string
	now     func() time.Time

	appendMu sync.Mutex
	seq      uint64
	pending  *queue.Queue[Entry]
	wake     chan struct{}
	stop     chan struct{}
	done     chan struct{}
	running  bool
	closed   bool

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	lastErr error
}

// NewWriter creates a journal writer and starts its background flusher.
// Files are opened lazily when the first entry is written.
func NewWriter(baseDir, prefix string) *Writer {
	w := newWriter(baseDir, prefix)
	w.start()
	return w
}

func newWriter(baseDir, prefix string) *Writer {
	return &Writer{
		baseDir: baseDir,
		prefix:  prefix,
		now:     time.Now,
		pending: queue.New[Entry](),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (w *Writer) start() {
	w.running = true
	go w.run()
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			_ = w.Flush()
		case <-w.stop:
			return
		}
	}
}

// Append queues one command for the background flusher. The sequence number
// and timestamp are taken here. A write error from an earlier flush is
// returned once so the caller can report it.
func (w *Writer) Append(command string, args []string) error {
	w.appendMu.Lock()
	if w.closed {
		w.appendMu.Unlock()
		return ErrClosed
	}
	w.seq++
	w.pending.Push(Entry{Seq: w.seq, Time: w.now().UTC(), Command: command, Args: args})
	w.appendMu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}

	w.mu.Lock()
	err := w.lastErr
	w.lastErr = nil
	w.mu.Unlock()
	return err
}

// Pending is the number of queued entries not yet written.
func (w *Writer) Pending() int {
	return w.pending.Len()
}

// Flush writes every queued entry to disk.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries := w.pending.GetAndEmpty()
	if len(entries) == 0 {
		return nil
	}
	for i, e := range entries {
		if err := w.writeLocked(e); err != nil {
			w.lastErr = fmt.Errorf("journal %d entries dropped: %w", len(entries)-i, err)
			return w.lastErr
		}
	}
	if err := w.w.Flush(); err != nil {
		w.lastErr = err
		return err
	}
	return nil
}

func (w *Writer) writeLocked(e Entry) error {
	hour := e.Time.Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Path is the file currently written to, empty until the first entry reaches disk.
func (w *Writer) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.curHour == "" {
		return ""
	}
	return w.pathForHour(w.curHour)
}

// Close stops the flusher, writes what is still queued and closes the
// current file. Appends after Close fail with ErrClosed.
func (w *Writer) Close() error {
	w.appendMu.Lock()
	if w.closed {
		w.appendMu.Unlock()
		return nil
	}
	w.closed = true
	w.appendMu.Unlock()

	if w.running {
		close(w.stop)
		<-w.done
	}

	err := w.Flush()
	w.mu.Lock()
	defer w.mu.Unlock()
	return errors.Join(err, w.closeLocked())
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 64*1024)
	w.curHour = hour
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		err = w.w.Flush()
	}
	if w.enc != nil {
		err = errors.Join(err, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.curHour = ""
	return err
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReadFile decodes every entry of a journal file. Appending to an existing
// hour file produces concatenated zstd frames, which the decoder reads as one stream.
func ReadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read decodes entries from a zstd JSONL stream.
func Read(r io.Reader) ([]Entry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open zstd stream: %w", err)
	}
	defer dec.Close()

	var out []Entry
	jd := json.NewDecoder(dec)
	for {
		var e Entry
		if err := jd.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("decode entry %d: %w", len(out)+1, err)
		}
		out = append(out, e)
	}
}
