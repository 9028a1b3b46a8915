package analysis

import "strings"

// Classification labels one move's quality.
type Classification string

const (
	Blunder    Classification = "blunder"
	Mistake    Classification = "mistake"
	Inaccuracy Classification = "inaccuracy"
	Brilliant  Classification = "brilliant"
	Great      Classification = "great"
	Best       Classification = "best"
	Excellent  Classification = "excellent"
	Good       Classification = "good"
)

// Loss thresholds in centipawns. Mate scores must be folded to signed
// centipawns (Evaluation.SignedCP) before classification.
const (
	blunderLoss    = 200
	mistakeLoss    = 100
	inaccuracyLoss = 50
	excellentLoss  = 15

	brilliantGain    = 80
	greatGain        = 40
	brilliantMaxEval = 200
)

// Classify maps one move's evaluation delta to a quality label. evalBefore
// and evalAfter are signed centipawns from White's perspective.
func Classify(cpLoss int, isBest bool, evalBefore, evalAfter int, whiteMove bool) Classification {
	switch {
	case cpLoss >= blunderLoss:
		return Blunder
	case cpLoss >= mistakeLoss:
		return Mistake
	case cpLoss >= inaccuracyLoss:
		return Inaccuracy
	}

	improvement := evalAfter - evalBefore
	if !whiteMove {
		improvement = evalBefore - evalAfter
	}

	if isBest {
		switch {
		case improvement > brilliantGain && abs(evalBefore) < brilliantMaxEval:
			return Brilliant
		case improvement > greatGain:
			return Great
		default:
			return Best
		}
	}
	if cpLoss < excellentLoss {
		return Excellent
	}
	return Good
}

// IsBestMove reports whether the played UCI move matches the engine's
// reported best move, case-insensitively and ignoring surrounding space.
func IsBestMove(played, engineBest string) bool {
	return engineBest != "" &&
		strings.EqualFold(strings.TrimSpace(played), strings.TrimSpace(engineBest))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
