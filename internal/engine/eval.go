package engine

// mateCentipawns is the per-move magnitude mate distances are folded into,
// large enough to dominate any real centipawn score.
const mateCentipawns = 10000

// Evaluation is a finished engine verdict for one position, normalized to
// White's perspective. Immutable once returned.
type Evaluation struct {
	Kind     ScoreKind `json:"kind"`
	Value    int       `json:"value"`
	BestMove string    `json:"best_move"`
	PV       []string  `json:"pv"`
}

// SignedCP folds mate scores into a large signed centipawn magnitude so that
// loss and comparison arithmetic downstream needs no mate-specific branches.
func (e Evaluation) SignedCP() int {
	if e.Kind == ScoreMate {
		return e.Value * mateCentipawns
	}
	return e.Value
}
