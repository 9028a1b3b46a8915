package analysis

import (
	"math"
	"strings"
)

// Phase buckets a move into the stage of the game it was played in.
type Phase string

const (
	Opening    Phase = "opening"
	Middlegame Phase = "middlegame"
	Endgame    Phase = "endgame"
)

// PlayerStats aggregates one side's results.
type PlayerStats struct {
	Moves    int                    `json:"moves"`
	Counts   map[Classification]int `json:"counts"`
	Accuracy float64                `json:"accuracy"`
}

// PhaseStats counts serious errors per phase, user moves only.
type PhaseStats struct {
	Blunders int `json:"blunders"`
	Mistakes int `json:"mistakes"`
}

// GameSummary is derived purely from a completed MoveRecord list.
type GameSummary struct {
	White  PlayerStats          `json:"white"`
	Black  PlayerStats          `json:"black"`
	Phases map[Phase]PhaseStats `json:"phases"`
}

// winPercent converts a centipawn evaluation (White's perspective) to an
// estimated win percentage for White.
func winPercent(cp int) float64 {
	return 50 + 50*(2/(1+math.Exp(-0.00368208*float64(cp)))-1)
}

// MoveAccuracy scores one move by the drop in the mover's own win
// probability. Equal evaluations score a full 100.
func MoveAccuracy(evalBefore, evalAfter int, whiteMove bool) float64 {
	loss := winPercent(evalBefore) - winPercent(evalAfter)
	if !whiteMove {
		loss = -loss
	}
	if loss < 0 {
		loss = 0
	}
	return 100 * math.Exp(-0.05*loss)
}

// PhaseOf buckets a move by move number and remaining material: twelve or
// fewer pieces on the FEN's board field counts as an endgame.
func PhaseOf(moveNumber int, fen string) Phase {
	if moveNumber <= 10 {
		return Opening
	}
	if piecesOnBoard(fen) <= 12 {
		return Endgame
	}
	return Middlegame
}

// PhaseByMoveNumber is the alternate heuristic used by the timeline report.
// It knows nothing about material and cuts the endgame at move 25; the two
// heuristics intentionally disagree in long material-heavy games.
func PhaseByMoveNumber(moveNumber int) Phase {
	switch {
	case moveNumber <= 10:
		return Opening
	case moveNumber <= 25:
		return Middlegame
	default:
		return Endgame
	}
}

func piecesOnBoard(fen string) int {
	board, _, _ := strings.Cut(fen, " ")
	n := 0
	for _, r := range board {
		if r != '/' && (r < '0' || r > '9') {
			n++
		}
	}
	return n
}

// Summarize folds a completed record list into per-player stats and the
// user's phase-keyed error breakdown.
func Summarize(records []MoveRecord) GameSummary {
	summary := GameSummary{
		White:  PlayerStats{Counts: map[Classification]int{}},
		Black:  PlayerStats{Counts: map[Classification]int{}},
		Phases: map[Phase]PhaseStats{},
	}

	var whiteAcc, blackAcc []float64
	for _, rec := range records {
		whiteMove := rec.Ply%2 == 1
		acc := MoveAccuracy(rec.EvalBefore.SignedCP(), rec.EvalAfter.SignedCP(), whiteMove)

		if whiteMove {
			summary.White.Moves++
			summary.White.Counts[rec.Classification]++
			whiteAcc = append(whiteAcc, acc)
		} else {
			summary.Black.Moves++
			summary.Black.Counts[rec.Classification]++
			blackAcc = append(blackAcc, acc)
		}

		if rec.IsUserMove && (rec.Classification == Blunder || rec.Classification == Mistake) {
			phase := PhaseOf(rec.MoveNumber, rec.FEN)
			ps := summary.Phases[phase]
			if rec.Classification == Blunder {
				ps.Blunders++
			} else {
				ps.Mistakes++
			}
			summary.Phases[phase] = ps
		}
	}

	summary.White.Accuracy = meanRounded(whiteAcc)
	summary.Black.Accuracy = meanRounded(blackAcc)
	return summary
}

// meanRounded is the arithmetic mean rounded to one decimal.
func meanRounded(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return math.Round(sum/float64(len(vals))*10) / 10
}
