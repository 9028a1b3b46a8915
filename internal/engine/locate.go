package engine

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoEngine reports that no candidate engine binary responded.
var ErrNoEngine = errors.New("engine: no candidate binary responded")

const probeTimeout = time.Second

// CandidatePaths returns the ordered engine locations to try: common install
// directories first, then the bare name so the final attempt rides on $PATH.
func CandidatePaths() []string {
	name := "stockfish"
	if runtime.GOOS == "windows" {
		name = "stockfish.exe"
	}
	return []string{
		"/usr/local/bin/" + name,
		"/usr/bin/" + name,
		"/opt/homebrew/bin/" + name,
		name,
	}
}

// Locate tries each candidate until one proves responsive and returns the
// live process. A spawn failure, stderr output, or a silent second all mean
// "next candidate"; only running out of candidates is fatal.
func Locate(log zerolog.Logger, candidates []string) (*Process, error) {
	if len(candidates) == 0 {
		candidates = CandidatePaths()
	}

	var lastErr error
	for _, path := range candidates {
		proc, err := startProcess(path)
		if err != nil {
			log.Debug().Str("path", path).Err(err).Msg("candidate failed to start")
			lastErr = err
			continue
		}
		if err := probe(proc); err != nil {
			proc.Kill()
			log.Debug().Str("path", path).Err(err).Msg("candidate unresponsive")
			lastErr = err
			continue
		}
		log.Info().Str("path", path).Msg("engine binary located")
		return proc, nil
	}

	return nil, fmt.Errorf("%w (tried %v): %v", ErrNoEngine, candidates, lastErr)
}

// probe writes the init command and races the first stdout byte against
// stderr output and the probe deadline. The stdout byte is peeked, not
// consumed, so the handshake still sees the complete response. stderr is
// watched through the process's own stderrNoise signal, so no extra reader
// is left competing for the pipe after a successful probe.
func probe(proc *Process) error {
	if err := proc.Send("uci"); err != nil {
		return err
	}

	outCh := make(chan error, 1)
	go func() {
		_, err := proc.stdout.Peek(1)
		outCh <- err
	}()

	timer := time.NewTimer(probeTimeout)
	defer timer.Stop()

	select {
	case err := <-outCh:
		if err != nil {
			return fmt.Errorf("stdout closed: %w", err)
		}
		return nil
	case <-proc.stderrNoise:
		return errors.New("stderr output during probe")
	case <-timer.C:
		return errors.New("no output within probe deadline")
	}
}
