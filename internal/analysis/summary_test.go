package analysis

import (
	"math"
	"testing"

	"github.com/chessreview/api/internal/engine"
)

func cp(v int) engine.Evaluation {
	return engine.Evaluation{Kind: engine.ScoreCentipawn, Value: v}
}

func TestWinPercent(t *testing.T) {
	if got := winPercent(0); math.Abs(got-50) > 1e-9 {
		t.Errorf("winPercent(0) = %v, want 50", got)
	}
	if got := winPercent(300); got <= 50 || got >= 100 {
		t.Errorf("winPercent(300) = %v, want in (50, 100)", got)
	}
	// Symmetric around zero.
	if a, b := winPercent(120), winPercent(-120); math.Abs((a-50)-(50-b)) > 1e-9 {
		t.Errorf("winPercent not symmetric: %v vs %v", a, b)
	}
}

func TestMoveAccuracy(t *testing.T) {
	t.Run("equal evals score 100", func(t *testing.T) {
		if got := MoveAccuracy(40, 40, true); got != 100 {
			t.Errorf("MoveAccuracy = %v, want 100", got)
		}
	})
	t.Run("improvement clamps at 100", func(t *testing.T) {
		if got := MoveAccuracy(0, 150, true); got != 100 {
			t.Errorf("MoveAccuracy = %v, want 100", got)
		}
	})
	t.Run("white drop lowers accuracy", func(t *testing.T) {
		if got := MoveAccuracy(100, -100, true); got >= 100 {
			t.Errorf("MoveAccuracy = %v, want < 100", got)
		}
	})
	t.Run("black perspective flips", func(t *testing.T) {
		// Eval moving up is bad for Black.
		if got := MoveAccuracy(-100, 100, false); got >= 100 {
			t.Errorf("MoveAccuracy = %v, want < 100", got)
		}
		if got := MoveAccuracy(100, -100, false); got != 100 {
			t.Errorf("MoveAccuracy = %v, want 100", got)
		}
	})
}

func TestPhaseOf(t *testing.T) {
	const startBoard = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	const bareKings = "8/8/4k3/8/8/4K3/8/8 w - - 0 40"

	tests := []struct {
		name       string
		moveNumber int
		fen        string
		want       Phase
	}{
		{"early is opening regardless of material", 10, bareKings, Opening},
		{"full board past opening", 15, startBoard, Middlegame},
		{"sparse board past opening", 11, bareKings, Endgame},
		{"twelve pieces counts as endgame", 30, "4k3/ppppp3/8/8/8/8/PPPPP3/4K3 w - - 0 30", Endgame},
		{"thirteen pieces is still middlegame", 30, "4k3/ppppp3/8/8/8/8/PPPPPP2/4K3 w - - 0 30", Middlegame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PhaseOf(tt.moveNumber, tt.fen); got != tt.want {
				t.Errorf("PhaseOf(%d, %q) = %s, want %s", tt.moveNumber, tt.fen, got, tt.want)
			}
		})
	}
}

func TestPhaseByMoveNumber(t *testing.T) {
	tests := []struct {
		moveNumber int
		want       Phase
	}{
		{1, Opening},
		{10, Opening},
		{11, Middlegame},
		{25, Middlegame},
		{26, Endgame},
	}
	for _, tt := range tests {
		if got := PhaseByMoveNumber(tt.moveNumber); got != tt.want {
			t.Errorf("PhaseByMoveNumber(%d) = %s, want %s", tt.moveNumber, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	const bareKings = "8/8/4k3/8/8/4K3/8/8 w - - 0 40"

	records := []MoveRecord{
		{Ply: 1, MoveNumber: 1, FEN: startFEN(), EvalBefore: cp(30), EvalAfter: cp(30), Classification: Best, IsUserMove: true},
		{Ply: 2, MoveNumber: 1, FEN: startFEN(), EvalBefore: cp(30), EvalAfter: cp(30), Classification: Excellent},
		{Ply: 3, MoveNumber: 2, FEN: startFEN(), EvalBefore: cp(30), EvalAfter: cp(30), Classification: Mistake, IsUserMove: true},
		{Ply: 59, MoveNumber: 30, FEN: bareKings, EvalBefore: cp(30), EvalAfter: cp(30), Classification: Blunder, IsUserMove: true},
	}

	summary := Summarize(records)

	if summary.White.Moves != 3 || summary.Black.Moves != 1 {
		t.Errorf("moves = %d/%d, want 3/1", summary.White.Moves, summary.Black.Moves)
	}
	if summary.White.Counts[Best] != 1 || summary.White.Counts[Mistake] != 1 || summary.White.Counts[Blunder] != 1 {
		t.Errorf("white counts = %v", summary.White.Counts)
	}
	if summary.Black.Counts[Excellent] != 1 {
		t.Errorf("black counts = %v", summary.Black.Counts)
	}
	// Every eval pair is equal, so both sides sit at a flat 100.
	if summary.White.Accuracy != 100 || summary.Black.Accuracy != 100 {
		t.Errorf("accuracy = %v/%v, want 100/100", summary.White.Accuracy, summary.Black.Accuracy)
	}

	// Phase breakdown covers user moves only: the opening mistake and the
	// endgame blunder. Ply 2's excellent move is not counted anywhere.
	if got := summary.Phases[Opening]; got.Mistakes != 1 || got.Blunders != 0 {
		t.Errorf("opening phase = %+v", got)
	}
	if got := summary.Phases[Endgame]; got.Blunders != 1 || got.Mistakes != 0 {
		t.Errorf("endgame phase = %+v", got)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil)
	if summary.White.Accuracy != 0 || summary.Black.Accuracy != 0 {
		t.Errorf("accuracy on empty game = %v/%v, want 0/0", summary.White.Accuracy, summary.Black.Accuracy)
	}
}

func TestMeanRounded(t *testing.T) {
	got := meanRounded([]float64{96.15, 97.32, 98.01})
	if got != 97.2 {
		t.Errorf("meanRounded = %v, want 97.2", got)
	}
}

func startFEN() string {
	return "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
}
