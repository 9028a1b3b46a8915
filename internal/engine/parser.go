package engine

import (
	"bytes"
	"strconv"
	"strings"
)

// EventKind identifies a parsed engine output event.
type EventKind int

const (
	EventUCIOk EventKind = iota
	EventReadyOk
	EventScore
	EventBestMove
)

// ScoreKind distinguishes centipawn scores from mate distances.
type ScoreKind int

const (
	ScoreCentipawn ScoreKind = iota
	ScoreMate
)

func (k ScoreKind) String() string {
	if k == ScoreMate {
		return "mate"
	}
	return "centipawn"
}

func (k ScoreKind) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(k.String())), nil
}

// Event is one structured item parsed from engine stdout.
type Event struct {
	Kind EventKind

	// EventScore fields. Score is from the side to move's perspective,
	// exactly as the engine reported it.
	Depth     int
	ScoreKind ScoreKind
	Score     int
	PV        []string

	// EventBestMove fields.
	BestMove string
	Ponder   string
}

// Parser incrementally splits engine stdout into events. Feed accepts
// arbitrary byte chunks; a trailing line fragment is buffered until its
// newline arrives, so the parser can sit directly on a pipe read loop or on
// canned bytes in tests.
type Parser struct {
	buf []byte
}

// Feed consumes a chunk and returns zero or more complete events.
func (p *Parser) Feed(chunk []byte) []Event {
	p.buf = append(p.buf, chunk...)

	var events []Event
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			return events
		}
		line := strings.TrimSpace(string(p.buf[:i]))
		p.buf = p.buf[i+1:]
		if ev, ok := parseLine(line); ok {
			events = append(events, ev)
		}
	}
}

func parseLine(line string) (Event, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, false
	}
	switch fields[0] {
	case "uciok":
		return Event{Kind: EventUCIOk}, true
	case "readyok":
		return Event{Kind: EventReadyOk}, true
	case "info":
		return parseInfoLine(fields)
	case "bestmove":
		return parseBestMoveLine(fields)
	}
	return Event{}, false
}

// parseInfoLine walks the token stream of a search-progress line. Lines
// without a score token (e.g. "info string ...", currmove reports) are
// dropped.
func parseInfoLine(fields []string) (Event, bool) {
	ev := Event{Kind: EventScore}
	scored := false

	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				if d, err := strconv.Atoi(fields[i+1]); err == nil {
					ev.Depth = d
				}
				i++
			}
		case "score":
			if i+2 < len(fields) {
				if v, err := strconv.Atoi(fields[i+2]); err == nil {
					switch fields[i+1] {
					case "cp":
						ev.ScoreKind = ScoreCentipawn
						ev.Score = v
						scored = true
					case "mate":
						ev.ScoreKind = ScoreMate
						ev.Score = v
						scored = true
					}
				}
				i += 2
			}
		case "pv":
			if i+1 < len(fields) {
				ev.PV = append([]string(nil), fields[i+1:]...)
			}
			i = len(fields)
		}
	}

	if !scored {
		return Event{}, false
	}
	return ev, true
}

func parseBestMoveLine(fields []string) (Event, bool) {
	if len(fields) < 2 {
		return Event{}, false
	}
	ev := Event{Kind: EventBestMove, BestMove: fields[1]}
	for i := 2; i+1 < len(fields); i++ {
		if fields[i] == "ponder" {
			ev.Ponder = fields[i+1]
			break
		}
	}
	return ev, true
}
