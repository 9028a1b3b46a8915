package analysis

import (
	"context"

	"github.com/chessreview/api/internal/engine"
)

// EvalCache memoizes finished evaluations by position and depth.
// *store.EvalCache satisfies it.
type EvalCache interface {
	Get(fen string, depth int) (engine.Evaluation, bool)
	Put(fen string, depth int, eval engine.Evaluation)
}

// CachingEvaluator consults the cache before the inner evaluator and records
// fresh results into it. Repeated analysis of identical positions at the
// same depth skips the engine entirely.
type CachingEvaluator struct {
	Inner Evaluator
	Cache EvalCache
}

func (c CachingEvaluator) Evaluate(ctx context.Context, fen string, depth int) (engine.Evaluation, error) {
	if eval, ok := c.Cache.Get(fen, depth); ok {
		return eval, nil
	}
	eval, err := c.Inner.Evaluate(ctx, fen, depth)
	if err != nil {
		return engine.Evaluation{}, err
	}
	c.Cache.Put(fen, depth, eval)
	return eval, nil
}
