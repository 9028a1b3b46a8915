package engine

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
)

// lineWriter turns stdin writes into whole command lines on a buffered
// channel, so fake-engine handlers can block without wedging Send.
type lineWriter struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	lines chan string
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Partial command; put it back and wait for more.
			w.buf.WriteString(line)
			return len(p), nil
		}
		w.lines <- strings.TrimSpace(line)
	}
}

// newFakeProcess scripts a UCI conversation over in-memory pipes. handler
// runs on its own goroutine, one command at a time, and answers through
// respond. Kill closes the stdout pipe, which ends the instance read loop.
func newFakeProcess(handler func(cmd string, respond func(line string))) *Process {
	outR, outW := io.Pipe()
	errR, errW := io.Pipe()

	in := &lineWriter{lines: make(chan string, 64)}
	respond := func(line string) {
		_, _ = io.WriteString(outW, line+"\n")
	}

	go func() {
		for cmd := range in.lines {
			handler(cmd, respond)
		}
	}()

	return &Process{
		path:        "fake-engine",
		stdin:       in,
		stdout:      bufio.NewReader(outR),
		stderrNoise: watchStderr(errR),
		kill: func() {
			_ = outW.Close()
			_ = errW.Close()
		},
	}
}

// stockfishScript is the default well-behaved fake: immediate handshake,
// and a canned search result per go command.
func stockfishScript(searchLines ...string) func(cmd string, respond func(string)) {
	if len(searchLines) == 0 {
		searchLines = []string{
			"info depth 18 seldepth 24 score cp 35 nodes 4242 pv e2e4 e7e5",
			"bestmove e2e4 ponder e7e5",
		}
	}
	return func(cmd string, respond func(string)) {
		switch {
		case cmd == "uci":
			respond("id name FakeFish")
			respond("uciok")
		case cmd == "isready":
			respond("readyok")
		case strings.HasPrefix(cmd, "go "):
			for _, line := range searchLines {
				respond(line)
			}
		}
	}
}
