package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// writeOp is either a line to write or, when ack is set, a flush request.
type writeOp struct {
	line []byte
	ack  chan error
}

// asyncWriter fans lines out to every sink from a single goroutine so callers never block on I/O
// unless the queue is full.
type asyncWriter struct {
	ops   chan writeOp
	done  chan struct{}
	sinks []*bufio.Writer

	// stateMu guards sends on ops against Close.
	stateMu sync.RWMutex
	closed  bool

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	w := &asyncWriter{
		ops:  make(chan writeOp, 256),
		done: make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for op := range w.ops {
		if op.ack != nil {
			op.ack <- w.flush()
			continue
		}
		for _, sink := range w.sinks {
			if _, err := sink.Write(op.line); err != nil {
				w.fail(err)
				break
			}
		}
		if len(w.ops) == 0 {
			if err := w.flush(); err != nil {
				w.fail(err)
			}
		}
	}
	if err := w.flush(); err != nil {
		w.fail(err)
	}
}

// Write queues a copy of p. The first sink error is sticky and returned by later calls.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.Err(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.ops <- writeOp{line: append([]byte(nil), p...)}
	return nil
}

// Flush blocks until every queued line has reached the sinks.
func (w *asyncWriter) Flush() error {
	w.stateMu.RLock()
	if w.closed {
		w.stateMu.RUnlock()
		return w.Err()
	}
	ack := make(chan error, 1)
	w.ops <- writeOp{ack: ack}
	w.stateMu.RUnlock()
	return <-ack
}

// Close drains the queue and stops the writer goroutine.
func (w *asyncWriter) Close() error {
	w.stateMu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.stateMu.Unlock()
	<-w.done
	return w.Err()
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) Err() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}

func (w *asyncWriter) fail(err error) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	if w.err == nil {
		w.err = err
	}
}
