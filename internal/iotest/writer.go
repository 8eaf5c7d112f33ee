// Package iotest provides IO helpers for tests.
package iotest

import (
	"bytes"
	"io"
	"log"
	"sync"
	"testing"
)

// Logger builds a logger that writes to the given testing.TB.
func Logger(t testing.TB) *log.Logger {
	return log.New(Writer(t), "", 0)
}

// Writer builds an io.Writer that logs to the given testing.TB,
// one call to Logf per line.
// Partial lines are held until a newline arrives
// or the test finishes.
func Writer(t testing.TB) io.Writer {
	w := &writer{t: t}
	t.Cleanup(w.flush)
	return w
}

type writer struct {
	t testing.TB

	mu   sync.Mutex
	buff bytes.Buffer // partial line from an earlier write
}

func (w *writer) Write(bs []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	total := len(bs)
	for len(bs) > 0 {
		idx := bytes.IndexByte(bs, '\n')
		if idx < 0 {
			w.buff.Write(bs)
			break
		}

		var line []byte
		line, bs = bs[:idx], bs[idx+1:]
		if w.buff.Len() > 0 {
			w.buff.Write(line)
			line = w.buff.Bytes()
		}
		w.t.Logf("%s", line)
		w.buff.Reset()
	}
	return total, nil
}

func (w *writer) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buff.Len() > 0 {
		w.t.Logf("%s", w.buff.Bytes())
		w.buff.Reset()
	}
}
