package engine

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
)

// Process owns the pipes of one spawned engine binary. Production code goes
// through startProcess; tests construct one over in-memory pipes. stderr has
// exactly one reader, started here: it closes stderrNoise on the first byte
// and keeps draining so the pipe never backs up into the engine.
type Process struct {
	path        string
	stdin       io.Writer
	stdout      *bufio.Reader
	stderrNoise <-chan struct{}
	kill        func()
}

func startProcess(path string) (*Process, error) {
	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", path, err)
	}

	return &Process{
		path:        path,
		stdin:       stdin,
		stdout:      bufio.NewReader(stdout),
		stderrNoise: watchStderr(stderr),
		kill: func() {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		},
	}, nil
}

// watchStderr signals the first stderr byte and then discards the rest.
func watchStderr(r io.Reader) <-chan struct{} {
	noise := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		if n, _ := r.Read(buf); n > 0 {
			close(noise)
		}
		_, _ = io.Copy(io.Discard, r)
	}()
	return noise
}

// Send writes one protocol command line to the engine.
func (p *Process) Send(cmd string) error {
	_, err := io.WriteString(p.stdin, cmd+"\n")
	return err
}

// Kill force-terminates the subprocess and reaps it.
func (p *Process) Kill() {
	if p.kill != nil {
		p.kill()
	}
}
