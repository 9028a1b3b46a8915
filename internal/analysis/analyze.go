package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/notnil/chess"

	"github.com/chessreview/api/internal/engine"
)

// Evaluator scores a single position. *engine.Pool satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string, depth int) (engine.Evaluation, error)
}

// MoveRecord is the per-ply analysis output. Fields are fixed once produced.
type MoveRecord struct {
	Ply            int               `json:"ply"`
	MoveNumber     int               `json:"move_number"`
	FEN            string            `json:"fen"`
	SAN            string            `json:"san"`
	UCI            string            `json:"uci"`
	EvalBefore     engine.Evaluation `json:"eval_before"`
	EvalAfter      engine.Evaluation `json:"eval_after"`
	CPLoss         int               `json:"cp_loss"`
	Classification Classification    `json:"classification"`
	IsUserMove     bool              `json:"is_user_move"`
}

// AnalyzeGame replays pgn from the initial position and scores every ply.
// Invalid move text fails before any evaluation is requested. The position
// after ply i is the position before ply i+1, so a game of n plies costs
// n+1 evaluations.
func AnalyzeGame(ctx context.Context, ev Evaluator, pgn string, userColor chess.Color, depth int) ([]MoveRecord, error) {
	opt, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		return nil, fmt.Errorf("parse pgn: %w", err)
	}
	game := chess.NewGame(opt)
	moves := game.Moves()
	positions := game.Positions()

	evals := make([]engine.Evaluation, len(positions))
	for i, pos := range positions {
		e, err := ev.Evaluate(ctx, pos.String(), depth)
		if err != nil {
			return nil, fmt.Errorf("evaluate ply %d: %w", i, err)
		}
		evals[i] = e
	}

	notation := chess.AlgebraicNotation{}
	records := make([]MoveRecord, 0, len(moves))
	for i, move := range moves {
		pos := positions[i]
		whiteMove := pos.Turn() == chess.White

		before := evals[i].SignedCP()
		after := evals[i+1].SignedCP()
		loss := before - after
		if !whiteMove {
			loss = after - before
		}
		if loss < 0 {
			// An apparent improvement clamps to zero, never a bonus.
			loss = 0
		}

		uciMove := uciString(move)
		isBest := IsBestMove(uciMove, evals[i].BestMove)

		records = append(records, MoveRecord{
			Ply:            i + 1,
			MoveNumber:     i/2 + 1,
			FEN:            pos.String(),
			SAN:            notation.Encode(pos, move),
			UCI:            uciMove,
			EvalBefore:     evals[i],
			EvalAfter:      evals[i+1],
			CPLoss:         loss,
			Classification: Classify(loss, isBest, before, after, whiteMove),
			IsUserMove:     pos.Turn() == userColor,
		})
	}
	return records, nil
}

// uciString renders from-square + to-square + optional promotion letter.
func uciString(m *chess.Move) string {
	return m.S1().String() + m.S2().String() + m.Promo().String()
}
